// Package faststore is the ephemeral keyed store behind the matchmaking queue,
// live battle state and ranking indexes.
//
// Sorted sets follow Redis ordering: ascending by score, ties by member in
// lexicographic order. Reverse reads invert both.
package faststore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for a missing key or sorted set member.
var ErrNotFound = errors.New("faststore: not found")

// Member 정렬 집합의 원소
type Member struct {
	Member string
	Score  float64
}

// Store 빠른 키 저장소 (정렬 집합 + TTL 키/값 + 조건부 삭제)
type Store interface {
	// ZAdd inserts or updates members of a sorted set.
	ZAdd(ctx context.Context, key string, members ...Member) error
	// ZRem removes members and reports how many were present. A return of 1
	// for a single member is the atomic "remove if present" claim.
	ZRem(ctx context.Context, key string, members ...string) (int64, error)
	// ZRangeByScore returns members with min <= score <= max in ascending
	// order. limit <= 0 means unbounded.
	ZRangeByScore(ctx context.Context, key string, min, max float64, limit int64) ([]Member, error)
	// ZRevRange returns members by descending position, stop inclusive.
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]Member, error)
	// ZRevRank returns the 0-based descending position of member.
	ZRevRank(ctx context.Context, key, member string) (int64, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	ZCard(ctx context.Context, key string) (int64, error)

	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value. ttl <= 0 keeps the key until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only if key is absent.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// CompareAndDelete deletes key only while it still holds expected.
	CompareAndDelete(ctx context.Context, key string, expected []byte) (bool, error)
	// CompareAndExpire resets the TTL of key only while it still holds expected.
	CompareAndExpire(ctx context.Context, key string, expected []byte, ttl time.Duration) (bool, error)

	Ping(ctx context.Context) error
}
