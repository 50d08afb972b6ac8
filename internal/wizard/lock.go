package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker guards a draft against concurrent saves. Acquire reports false when
// the lock is already held.
type Locker interface {
	Acquire(ctx context.Context, draftID string) (bool, error)
	Release(ctx context.Context, draftID string) error
}

type RedisLocker struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisLocker returns a locker whose locks expire after ttl even if never
// released.
func NewRedisLocker(rdb redis.Cmdable, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func lockKey(id string) string {
	return "wizard:" + id + ":saving"
}

func (l *RedisLocker) Acquire(ctx context.Context, draftID string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, lockKey(draftID), "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire save lock: %w", err)
	}
	return ok, nil
}

func (l *RedisLocker) Release(ctx context.Context, draftID string) error {
	if err := l.rdb.Del(ctx, lockKey(draftID)).Err(); err != nil {
		return fmt.Errorf("release save lock: %w", err)
	}
	return nil
}

type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) Acquire(_ context.Context, draftID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[draftID]; busy {
		return false, nil
	}
	l.held[draftID] = struct{}{}
	return true, nil
}

func (l *MemoryLocker) Release(_ context.Context, draftID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, draftID)
	return nil
}
