package distributed

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/xutongxue233/wanjielunhui-sub001/pkg/faststore"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
	ErrLockNotHeld     = errors.New("lock not held")
)

// Lock 빠른 저장소 기반 분산 락 (토큰 소유자만 해제/연장 가능)
type Lock struct {
	store faststore.Store
	key   string
	token []byte
	ttl   time.Duration
}

// LockManager 분산 락 관리자
type LockManager struct {
	store faststore.Store
}

// NewLockManager Lock Manager 생성
func NewLockManager(store faststore.Store) *LockManager {
	return &LockManager{store: store}
}

// AcquireLock 분산 락 획득 시도 (SET NX)
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	token := []byte(uuid.NewString())

	ok, err := m.store.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}

	return &Lock{
		store: m.store,
		key:   key,
		token: token,
		ttl:   ttl,
	}, nil
}

// TryLockWithRetry 재시도를 통한 락 획득
func (m *LockManager) TryLockWithRetry(
	ctx context.Context,
	key string,
	ttl time.Duration,
	maxRetries int,
	retryInterval time.Duration,
) (*Lock, error) {
	for i := 0; i < maxRetries; i++ {
		lock, err := m.AcquireLock(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryInterval):
			}
		}
	}

	return nil, ErrLockNotAcquired
}

// Release 락 해제 (자신의 토큰일 때만)
func (l *Lock) Release(ctx context.Context) error {
	ok, err := l.store.CompareAndDelete(ctx, l.key, l.token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockNotHeld
	}
	return nil
}

// Extend 락 TTL 연장
func (l *Lock) Extend(ctx context.Context, extension time.Duration) error {
	ok, err := l.store.CompareAndExpire(ctx, l.key, l.token, extension)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockNotHeld
	}

	l.ttl = extension
	return nil
}

// Key 락 키
func (l *Lock) Key() string {
	return l.key
}
