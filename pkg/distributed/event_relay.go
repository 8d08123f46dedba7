package distributed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RelayEvent kinds.
const (
	RelayToPlayer     = "player"
	RelayToChannel    = "channel"
	RelayJoinChannel  = "join"
	RelayLeaveChannel = "leave"
)

// RelayEvent 인스턴스 간 전달되는 게이트웨이 이벤트
type RelayEvent struct {
	Origin   string          `json:"origin"`
	Kind     string          `json:"kind"`
	PlayerID string          `json:"playerId,omitempty"`
	Channel  string          `json:"channel,omitempty"`
	Type     string          `json:"type,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// EventRelay Redis Pub/Sub 기반 이벤트 중계
//
// Every instance subscribes to the same channel and receives all events,
// including its own, so local delivery happens in exactly one place.
type EventRelay struct {
	client     *redis.Client
	logger     *zap.Logger
	instanceID string
	channel    string
}

// NewEventRelay 이벤트 중계기 생성
func NewEventRelay(client *redis.Client, channel string, logger *zap.Logger) *EventRelay {
	if channel == "" {
		channel = "pvp:events"
	}
	return &EventRelay{
		client:     client,
		logger:     logger,
		instanceID: uuid.New().String(),
		channel:    channel,
	}
}

// InstanceID 인스턴스 고유 ID
func (r *EventRelay) InstanceID() string {
	return r.instanceID
}

// Publish 이벤트 발행
func (r *EventRelay) Publish(ctx context.Context, event RelayEvent) error {
	event.Origin = r.instanceID

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal relay event: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish relay event: %w", err)
	}
	return nil
}

// Run 구독 후 ctx가 끝날 때까지 handler로 이벤트 전달
func (r *EventRelay) Run(ctx context.Context, handler func(RelayEvent)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	// 구독 확인
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	r.logger.Info("Event relay started",
		zap.String("instance_id", r.instanceID),
		zap.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event RelayEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.logger.Error("Failed to unmarshal relay event", zap.Error(err))
				continue
			}
			handler(event)

		case <-ctx.Done():
			r.logger.Info("Event relay stopped", zap.String("instance_id", r.instanceID))
			return ctx.Err()
		}
	}
}
