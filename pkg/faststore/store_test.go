package faststore

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeHarness struct {
	store   Store
	advance func(time.Duration)
}

func newHarnesses(t *testing.T) map[string]storeHarness {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var mu sync.Mutex
	now := time.Unix(1_700_000_000, 0)
	mem := NewMemoryStore(WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}))

	return map[string]storeHarness{
		"redis": {
			store:   NewRedisStore(client),
			advance: mr.FastForward,
		},
		"memory": {
			store: mem,
			advance: func(d time.Duration) {
				mu.Lock()
				now = now.Add(d)
				mu.Unlock()
			},
		},
	}
}

func TestStore_SortedSetOrdering(t *testing.T) {
	for name, h := range newHarnesses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := h.store

			require.NoError(t, s.ZAdd(ctx, "z",
				Member{Member: "a", Score: 10},
				Member{Member: "c", Score: 30},
				Member{Member: "b", Score: 30},
				Member{Member: "d", Score: 20},
			))

			all, err := s.ZRevRange(ctx, "z", 0, -1)
			require.NoError(t, err)
			assert.Equal(t, []string{"c", "b", "d", "a"}, members(all))

			page, err := s.ZRevRange(ctx, "z", 1, 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "d"}, members(page))

			rank, err := s.ZRevRank(ctx, "z", "d")
			require.NoError(t, err)
			assert.Equal(t, int64(2), rank)

			_, err = s.ZRevRank(ctx, "z", "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			score, err := s.ZScore(ctx, "z", "c")
			require.NoError(t, err)
			assert.Equal(t, 30.0, score)

			n, err := s.ZCard(ctx, "z")
			require.NoError(t, err)
			assert.Equal(t, int64(4), n)
		})
	}
}

func TestStore_RangeByScore(t *testing.T) {
	for name, h := range newHarnesses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := h.store

			require.NoError(t, s.ZAdd(ctx, "q",
				Member{Member: "p1", Score: 1400},
				Member{Member: "p2", Score: 1500},
				Member{Member: "p3", Score: 1600},
				Member{Member: "p4", Score: 1700},
			))

			got, err := s.ZRangeByScore(ctx, "q", 1450, 1600, 0)
			require.NoError(t, err)
			assert.Equal(t, []string{"p2", "p3"}, members(got))

			limited, err := s.ZRangeByScore(ctx, "q", math.Inf(-1), math.Inf(1), 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"p1", "p2"}, members(limited))
		})
	}
}

func TestStore_ZRemIsSingleClaim(t *testing.T) {
	for name, h := range newHarnesses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := h.store
			require.NoError(t, s.ZAdd(ctx, "q", Member{Member: "waiting", Score: 1500}))

			var wg sync.WaitGroup
			var mu sync.Mutex
			claims := 0
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					n, err := s.ZRem(ctx, "q", "waiting")
					assert.NoError(t, err)
					mu.Lock()
					claims += int(n)
					mu.Unlock()
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, claims)
		})
	}
}

func TestStore_KeyValueTTL(t *testing.T) {
	for name, h := range newHarnesses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := h.store

			ok, err := s.SetNX(ctx, "entry", []byte("one"), time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = s.SetNX(ctx, "entry", []byte("two"), time.Minute)
			require.NoError(t, err)
			assert.False(t, ok, "second SetNX must not overwrite")

			got, err := s.Get(ctx, "entry")
			require.NoError(t, err)
			assert.Equal(t, "one", string(got))

			h.advance(2 * time.Minute)

			_, err = s.Get(ctx, "entry")
			assert.ErrorIs(t, err, ErrNotFound)

			ok, err = s.SetNX(ctx, "entry", []byte("three"), time.Minute)
			require.NoError(t, err)
			assert.True(t, ok, "expired key can be claimed again")
		})
	}
}

func TestStore_CompareAndDelete(t *testing.T) {
	for name, h := range newHarnesses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := h.store
			require.NoError(t, s.Set(ctx, "lock", []byte("token-a"), time.Minute))

			ok, err := s.CompareAndDelete(ctx, "lock", []byte("token-b"))
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = s.CompareAndExpire(ctx, "lock", []byte("token-a"), 5*time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)

			h.advance(2 * time.Minute)

			ok, err = s.CompareAndDelete(ctx, "lock", []byte("token-a"))
			require.NoError(t, err)
			assert.True(t, ok, "extended lock should still be held")

			_, err = s.Get(ctx, "lock")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_Del(t *testing.T) {
	for name, h := range newHarnesses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := h.store
			require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
			require.NoError(t, s.ZAdd(ctx, "z", Member{Member: "m", Score: 1}))

			require.NoError(t, s.Del(ctx, "k", "z"))

			_, err := s.Get(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)
			n, err := s.ZCard(ctx, "z")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func members(ms []Member) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Member)
	}
	return out
}
