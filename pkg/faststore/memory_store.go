package faststore

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"
)

type memoryValue struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is a process-local Store for tests and single-node development.
// Only key/value entries expire; sorted sets live until their members are removed.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]memoryValue
	zsets  map[string]map[string]float64
	now    func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the expiry clock.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		values: make(map[string]memoryValue),
		zsets:  make(map[string]map[string]float64),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) ZAdd(_ context.Context, key string, members ...Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(members) == 0 {
		return nil
	}

	set, ok := s.zsets[key]
	if !ok {
		set = make(map[string]float64)
		s.zsets[key] = set
	}
	for _, m := range members {
		set[m.Member] = m.Score
	}
	return nil
}

func (s *MemoryStore) ZRem(_ context.Context, key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.zsets[key]
	if !ok {
		return 0, nil
	}

	var removed int64
	for _, m := range members {
		if _, exists := set[m]; exists {
			delete(set, m)
			removed++
		}
	}
	if len(set) == 0 {
		delete(s.zsets, key)
	}
	return removed, nil
}

func (s *MemoryStore) ZRangeByScore(_ context.Context, key string, min, max float64, limit int64) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Member, 0)
	for _, m := range s.sortedLocked(key) {
		if m.Score < min || m.Score > max {
			continue
		}
		out = append(out, m)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) ZRevRange(_ context.Context, key string, start, stop int64) ([]Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := s.sortedLocked(key)
	reverse(sorted)

	n := int64(len(sorted))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return []Member{}, nil
	}

	out := make([]Member, stop-start+1)
	copy(out, sorted[start:stop+1])
	return out, nil
}

func (s *MemoryStore) ZRevRank(_ context.Context, key, member string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := s.sortedLocked(key)
	reverse(sorted)
	for i, m := range sorted {
		if m.Member == member {
			return int64(i), nil
		}
	}
	return 0, ErrNotFound
}

func (s *MemoryStore) ZScore(_ context.Context, key, member string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, ok := s.zsets[key][member]
	if !ok {
		return 0, ErrNotFound
	}
	return score, nil
}

func (s *MemoryStore) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return int64(len(s.zsets[key])), nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.liveLocked(key)
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v.data...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = s.newValue(value, ttl)
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.liveLocked(key); ok {
		return false, nil
	}
	s.values[key] = s.newValue(value, ttl)
	return true, nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.values, key)
		delete(s.zsets, key)
	}
	return nil
}

func (s *MemoryStore) CompareAndDelete(_ context.Context, key string, expected []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.liveLocked(key)
	if !ok || !bytes.Equal(v.data, expected) {
		return false, nil
	}
	delete(s.values, key)
	return true, nil
}

func (s *MemoryStore) CompareAndExpire(_ context.Context, key string, expected []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.liveLocked(key)
	if !ok || !bytes.Equal(v.data, expected) {
		return false, nil
	}
	s.values[key] = s.newValue(v.data, ttl)
	return true, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) newValue(value []byte, ttl time.Duration) memoryValue {
	v := memoryValue{data: append([]byte(nil), value...)}
	if ttl > 0 {
		v.expiresAt = s.now().Add(ttl)
	}
	return v
}

// liveLocked drops the entry when it has expired.
func (s *MemoryStore) liveLocked(key string) (memoryValue, bool) {
	v, ok := s.values[key]
	if !ok {
		return memoryValue{}, false
	}
	if !v.expiresAt.IsZero() && !s.now().Before(v.expiresAt) {
		delete(s.values, key)
		return memoryValue{}, false
	}
	return v, true
}

func (s *MemoryStore) sortedLocked(key string) []Member {
	set := s.zsets[key]
	out := make([]Member, 0, len(set))
	for member, score := range set {
		out = append(out, Member{Member: member, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out
}

func reverse(ms []Member) {
	for i, j := 0, len(ms)-1; i < j; i, j = i+1, j-1 {
		ms[i], ms[j] = ms[j], ms[i]
	}
}
