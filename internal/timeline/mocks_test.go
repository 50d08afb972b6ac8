package timeline

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"timetable-service/internal/auth"
	"timetable-service/internal/genre"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateTimeline(ctx context.Context, t Timeline) (Timeline, error) {
	args := m.Called(ctx, t)
	return args.Get(0).(Timeline), args.Error(1)
}

func (m *MockStore) CreateEvents(ctx context.Context, timelineID string, events []Event) ([]Event, error) {
	args := m.Called(ctx, timelineID, events)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Event), args.Error(1)
}

func (m *MockStore) CreateItems(ctx context.Context, timelineID string, items []Item) ([]Item, error) {
	args := m.Called(ctx, timelineID, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Item), args.Error(1)
}

func (m *MockStore) ListByOwner(ctx context.Context, ownerID string, g genre.Genre) ([]Timeline, error) {
	args := m.Called(ctx, ownerID, g)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Timeline), args.Error(1)
}

func (m *MockStore) Get(ctx context.Context, id string) (Timeline, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(Timeline), args.Error(1)
}

func (m *MockStore) ListEvents(ctx context.Context, timelineID string) ([]Event, error) {
	args := m.Called(ctx, timelineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Event), args.Error(1)
}

func (m *MockStore) ListItems(ctx context.Context, timelineID string) ([]Item, error) {
	args := m.Called(ctx, timelineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Item), args.Error(1)
}

func (m *MockStore) SetPublic(ctx context.Context, id, ownerID string, isPublic bool) (Timeline, error) {
	args := m.Called(ctx, id, ownerID, isPublic)
	return args.Get(0).(Timeline), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) EnsureProfile(ctx context.Context, u auth.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockProfiles) FixMissingProfiles(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// recordingPublisher keeps every message published on the broadcast channel.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []map[string]any
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()

	var decoded map[string]any
	if s, ok := message.(string); ok && channel == broadcastChannel {
		_ = json.Unmarshal([]byte(s), &decoded)
		p.messages = append(p.messages, decoded)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		t, _ := m["type"].(string)
		out = append(out, t)
	}
	return out
}
