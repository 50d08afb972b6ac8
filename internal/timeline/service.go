package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"timetable-service/internal/auth"
	"timetable-service/internal/genre"
	"timetable-service/internal/metadata"
)

const broadcastChannel = "broadcast"

// Profiles creates the profile rows timelines are owned by.
type Profiles interface {
	EnsureProfile(ctx context.Context, u auth.User) error
	FixMissingProfiles(ctx context.Context) (int, error)
}

// Publisher is satisfied by *redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Service applies ownership and visibility rules on top of a Store.
type Service struct {
	store    Store
	profiles Profiles
	rdb      Publisher
	metrics  *Metrics
	logger   *zap.Logger
}

func NewService(store Store, profiles Profiles, rdb Publisher, metrics *Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		profiles: profiles,
		rdb:      rdb,
		metrics:  metrics,
		logger:   logger.Named("timeline"),
	}
}

// CreateTimelineRecord saves a finished draft for user. The timeline row is
// written first, then its events and items each in their own transaction.
// When a child stage fails the committed timeline is returned together with a
// *PartialSaveError.
func (s *Service) CreateTimelineRecord(ctx context.Context, user *auth.User, in CreateInput) (*Detail, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}

	if err := s.profiles.EnsureProfile(ctx, *user); err != nil {
		s.logger.Error("ensure profile", zap.String("user_id", user.ID), zap.Error(err))
		return nil, ErrProfile
	}

	g := in.Genre
	if g == "" {
		g = in.BasicInfo.Genre
	}
	doc, err := metadata.Project(g, in.BasicInfo)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	t, err := s.store.CreateTimeline(ctx, Timeline{
		Title:       in.BasicInfo.Title,
		Description: in.BasicInfo.Description,
		Genre:       doc.Genre(),
		StartDate:   in.BasicInfo.StartDate,
		EndDate:     in.BasicInfo.EndDate,
		Metadata:    meta,
		IsPublic:    false,
		CreatedBy:   user.ID,
	})
	if err != nil {
		s.logger.Error("create timeline", zap.String("user_id", user.ID), zap.Error(err))
		return nil, ErrCreate
	}
	s.metrics.timelineCreated(string(t.Genre))

	detail := &Detail{Timeline: t, Events: []Event{}, Items: []Item{}}

	events, err := eventRows(in.Events)
	if err != nil {
		return detail, s.partial(t.ID, StageEvents, err)
	}
	if detail.Events, err = s.store.CreateEvents(ctx, t.ID, events); err != nil {
		detail.Events = []Event{}
		return detail, s.partial(t.ID, StageEvents, err)
	}

	if detail.Items, err = s.store.CreateItems(ctx, t.ID, itemRows(in.Items)); err != nil {
		detail.Items = []Item{}
		return detail, s.partial(t.ID, StageItems, err)
	}

	s.publishEvent(ctx, "timeline.created", t.ID)
	return detail, nil
}

func (s *Service) partial(timelineID, stage string, err error) error {
	s.logger.Error("partial save", zap.String("timeline_id", timelineID), zap.String("stage", stage), zap.Error(err))
	s.metrics.partialFailure(stage)
	return &PartialSaveError{Stage: stage, Err: err}
}

func eventRows(in []EventInput) ([]Event, error) {
	out := make([]Event, 0, len(in))
	for i, ev := range in {
		meta, err := json.Marshal(metadata.ProjectEvent(ev.CustomFields))
		if err != nil {
			return nil, fmt.Errorf("encode event metadata: %w", err)
		}
		out = append(out, Event{
			Title:       ev.Title,
			Description: ev.Description,
			StartTime:   ev.StartTime,
			EndTime:     ev.EndTime,
			Location:    ev.Location,
			Metadata:    meta,
			OrderIndex:  i,
		})
	}
	return out, nil
}

func itemRows(in []ItemInput) []Item {
	out := make([]Item, 0, len(in))
	for i, it := range in {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		out = append(out, Item{
			Name:        it.Name,
			Description: it.Description,
			Quantity:    qty,
			Unit:        it.Unit,
			Category:    it.Category,
			IsRequired:  it.IsRequired,
			OrderIndex:  i,
		})
	}
	return out
}

// ListForUser returns the user's own timelines, newest first. Anonymous
// callers get an empty list rather than an error.
func (s *Service) ListForUser(ctx context.Context, user *auth.User, g genre.Genre) ([]Timeline, error) {
	if user == nil {
		return []Timeline{}, nil
	}
	return s.store.ListByOwner(ctx, user.ID, g)
}

// Get returns a timeline the caller may see: a public one, or one they own.
func (s *Service) Get(ctx context.Context, user *auth.User, id string, requireAuth bool) (*Detail, error) {
	if requireAuth && user == nil {
		return nil, ErrUnauthenticated
	}

	t, err := s.visible(ctx, user, id)
	if err != nil {
		return nil, err
	}

	events, err := s.store.ListEvents(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{Timeline: t, Events: events, Items: items}, nil
}

// CanView reports ErrNotFound unless user may see the timeline.
func (s *Service) CanView(ctx context.Context, user *auth.User, id string) error {
	_, err := s.visible(ctx, user, id)
	return err
}

func (s *Service) visible(ctx context.Context, user *auth.User, id string) (Timeline, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("get timeline", zap.String("timeline_id", id), zap.Error(err))
		}
		return Timeline{}, ErrNotFound
	}
	if !t.IsPublic && (user == nil || t.CreatedBy != user.ID) {
		return Timeline{}, ErrNotFound
	}
	return t, nil
}

func (s *Service) TogglePublic(ctx context.Context, user *auth.User, id string, isPublic bool) (*Timeline, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	t, err := s.store.SetPublic(ctx, id, user.ID, isPublic)
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, "timeline.updated", t.ID)
	return &t, nil
}

func (s *Service) Delete(ctx context.Context, user *auth.User, id string) error {
	if user == nil {
		return ErrUnauthenticated
	}

	t, err := s.store.Get(ctx, id)
	if err != nil {
		return ErrNotFound
	}
	if t.CreatedBy != user.ID {
		return ErrForbidden
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publishEvent(ctx, "timeline.deleted", id)
	return nil
}

// FixMissingProfiles backfills profiles for users who signed in before
// profiles were created on sign-in.
func (s *Service) FixMissingProfiles(ctx context.Context, user *auth.User) (int, error) {
	if user == nil {
		return 0, ErrUnauthenticated
	}
	n, err := s.profiles.FixMissingProfiles(ctx)
	if err != nil {
		s.logger.Error("fix missing profiles", zap.Error(err))
		return 0, err
	}
	s.logger.Info("fixed missing profiles", zap.Int("count", n))
	return n, nil
}

// publishEvent announces a change by id only. Viewers re-read the timeline
// through the API, which applies the visibility rule.
func (s *Service) publishEvent(ctx context.Context, eventType, timelineID string) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": map[string]string{"timelineId": timelineID},
	})
	if err != nil {
		s.logger.Warn("marshal event", zap.Error(err))
		return
	}
	if err := s.rdb.Publish(ctx, broadcastChannel, string(data)).Err(); err != nil {
		s.logger.Warn("publish event", zap.String("type", eventType), zap.Error(err))
	}
}
