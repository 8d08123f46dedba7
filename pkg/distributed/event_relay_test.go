package distributed

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestEventRelay_PublishReachesSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	relay := NewEventRelay(client, "test:events", zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []RelayEvent
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx, func(ev RelayEvent) {
			mu.Lock()
			received = append(received, ev)
			mu.Unlock()
		})
	}()

	payload, _ := json.Marshal(map[string]int{"turn": 3})
	// 구독이 준비될 때까지 재발행
	require.Eventually(t, func() bool {
		_ = relay.Publish(ctx, RelayEvent{Kind: RelayToChannel, Channel: "match:1", Type: "turn", Payload: payload})
		mu.Lock()
		defer mu.Unlock()
		return len(received) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	got := received[0]
	mu.Unlock()
	assert.Equal(t, relay.InstanceID(), got.Origin)
	assert.Equal(t, RelayToChannel, got.Kind)
	assert.Equal(t, "match:1", got.Channel)
	assert.JSONEq(t, `{"turn":3}`, string(got.Payload))

	cancel()
	<-done
}
