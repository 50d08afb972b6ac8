package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrDraftNotFound = errors.New("下書きが見つかりません")

// DraftStore keeps wizard drafts between requests. Drafts expire after the
// store's TTL of inactivity.
type DraftStore interface {
	Get(ctx context.Context, id string) (Draft, error)
	Put(ctx context.Context, d Draft) (Draft, error)
	Delete(ctx context.Context, id string) error
}

type RedisDraftStore struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewRedisDraftStore(rdb redis.Cmdable, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func draftKey(id string) string {
	return "wizard:" + id + ":draft"
}

func (s *RedisDraftStore) Get(ctx context.Context, id string) (Draft, error) {
	raw, err := s.rdb.Get(ctx, draftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrDraftNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("get draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

// Put stamps UpdatedAt and refreshes the TTL.
func (s *RedisDraftStore) Put(ctx context.Context, d Draft) (Draft, error) {
	d.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(d)
	if err != nil {
		return Draft{}, fmt.Errorf("encode draft: %w", err)
	}
	if err := s.rdb.Set(ctx, draftKey(d.ID), raw, s.ttl).Err(); err != nil {
		return Draft{}, fmt.Errorf("put draft: %w", err)
	}
	return d, nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, draftKey(id)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// MemoryDraftStore is used when no Redis is configured.
type MemoryDraftStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]Draft
}

func NewMemoryDraftStore(ttl time.Duration) *MemoryDraftStore {
	return &MemoryDraftStore{ttl: ttl, now: time.Now, drafts: make(map[string]Draft)}
}

func (s *MemoryDraftStore) Get(_ context.Context, id string) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	if s.ttl > 0 && s.now().Sub(d.UpdatedAt) > s.ttl {
		delete(s.drafts, id)
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

func (s *MemoryDraftStore) Put(_ context.Context, d Draft) (Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.UpdatedAt = s.now().UTC()
	s.drafts[d.ID] = d
	return d, nil
}

func (s *MemoryDraftStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, id)
	return nil
}
