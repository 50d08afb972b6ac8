package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"timetable-service/internal/auth"
	"timetable-service/internal/timeline"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateTimelineRecord(ctx context.Context, user *auth.User, in timeline.CreateInput) (*timeline.Detail, error) {
	args := m.Called(ctx, user, in)
	detail, _ := args.Get(0).(*timeline.Detail)
	return detail, args.Error(1)
}

var owner = &auth.User{ID: "owner-1", Email: "owner@example.com"}

func newTestSaver() (*Saver, *MockGateway, *MemoryDraftStore, *Metrics) {
	gw := new(MockGateway)
	store := NewMemoryDraftStore(time.Hour)
	metrics := NewMetrics(prometheus.NewRegistry())
	return NewSaver(gw, store, NewMemoryLocker(), metrics, zap.NewNop()), gw, store, metrics
}

func TestSaveRejectsDraftWithoutEvents(t *testing.T) {
	saver, gw, _, metrics := newTestSaver()
	d := readyDraft(t)
	d = d.RemoveEvent(d.Events[0].ID)

	_, err := saver.Save(context.Background(), owner, d)
	assert.ErrorIs(t, err, ErrNoEvents)
	assert.Equal(t, "少なくとも1つのイベントを追加してください。", err.Error())
	gw.AssertNotCalled(t, "CreateTimelineRecord", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rejected.WithLabelValues("no_events")))
}

func TestSaveRejectsIncompleteDraft(t *testing.T) {
	saver, gw, _, _ := newTestSaver()
	_, err := saver.Save(context.Background(), owner, New())
	assert.ErrorIs(t, err, ErrIncomplete)
	gw.AssertNotCalled(t, "CreateTimelineRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveSuccessDropsDraft(t *testing.T) {
	saver, gw, store, _ := newTestSaver()
	ctx := context.Background()
	d, err := store.Put(ctx, readyDraft(t))
	require.NoError(t, err)

	gw.On("CreateTimelineRecord", mock.Anything, owner, d.CreateInput()).
		Return(&timeline.Detail{Timeline: timeline.Timeline{ID: "tl-1"}}, nil).Once()

	detail, err := saver.Save(ctx, owner, d)
	require.NoError(t, err)
	assert.Equal(t, "tl-1", detail.ID)
	gw.AssertExpectations(t)

	_, err = store.Get(ctx, d.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestSaveFailureKeepsDraft(t *testing.T) {
	saver, gw, store, _ := newTestSaver()
	ctx := context.Background()
	d, err := store.Put(ctx, readyDraft(t))
	require.NoError(t, err)

	gw.On("CreateTimelineRecord", mock.Anything, owner, mock.Anything).
		Return(nil, timeline.ErrCreate).Once()

	_, err = saver.Save(ctx, owner, d)
	assert.ErrorIs(t, err, timeline.ErrCreate)

	kept, err := store.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Len(t, kept.Events, 1)

	// the lock is released, so a retry reaches the gateway again
	gw.On("CreateTimelineRecord", mock.Anything, owner, mock.Anything).
		Return(&timeline.Detail{Timeline: timeline.Timeline{ID: "tl-2"}}, nil).Once()
	detail, err := saver.Save(ctx, owner, kept)
	require.NoError(t, err)
	assert.Equal(t, "tl-2", detail.ID)
}

func TestSavePartialFailureReturnsRecord(t *testing.T) {
	saver, gw, store, _ := newTestSaver()
	ctx := context.Background()
	d, err := store.Put(ctx, readyDraft(t))
	require.NoError(t, err)

	partial := &timeline.PartialSaveError{Stage: timeline.StageItems, Err: errors.New("boom")}
	gw.On("CreateTimelineRecord", mock.Anything, owner, mock.Anything).
		Return(&timeline.Detail{Timeline: timeline.Timeline{ID: "tl-1"}}, partial)

	detail, err := saver.Save(ctx, owner, d)
	var pe *timeline.PartialSaveError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "tl-1", detail.ID)
}

func TestSaveRejectsConcurrentSave(t *testing.T) {
	gw := new(MockGateway)
	locker := NewMemoryLocker()
	saver := NewSaver(gw, NewMemoryDraftStore(time.Hour), locker, nil, zap.NewNop())
	d := readyDraft(t)

	ok, err := locker.Acquire(context.Background(), d.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = saver.Save(context.Background(), owner, d)
	assert.ErrorIs(t, err, ErrSaveInProgress)
	gw.AssertNotCalled(t, "CreateTimelineRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveStaleCopyAfterSave(t *testing.T) {
	saver, gw, store, metrics := newTestSaver()
	ctx := context.Background()
	d, err := store.Put(ctx, readyDraft(t))
	require.NoError(t, err)

	// Both requests read the draft before either one saves it.
	first, err := store.Get(ctx, d.ID)
	require.NoError(t, err)
	second, err := store.Get(ctx, d.ID)
	require.NoError(t, err)

	gw.On("CreateTimelineRecord", mock.Anything, owner, mock.Anything).
		Return(&timeline.Detail{Timeline: timeline.Timeline{ID: "tl-1"}}, nil).Once()

	_, err = saver.Save(ctx, owner, first)
	require.NoError(t, err)

	_, err = saver.Save(ctx, owner, second)
	assert.ErrorIs(t, err, ErrDraftNotFound)
	gw.AssertNumberOfCalls(t, "CreateTimelineRecord", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.rejected.WithLabelValues("already_saved")))
}

func TestSaveUsesStoredDraft(t *testing.T) {
	saver, gw, store, _ := newTestSaver()
	ctx := context.Background()
	d, err := store.Put(ctx, readyDraft(t))
	require.NoError(t, err)

	stale := d
	withItem, _, err := d.AddItem(timeline.ItemInput{Name: "DI", Quantity: 2})
	require.NoError(t, err)
	current, err := store.Put(ctx, withItem)
	require.NoError(t, err)

	gw.On("CreateTimelineRecord", mock.Anything, owner, current.CreateInput()).
		Return(&timeline.Detail{Timeline: timeline.Timeline{ID: "tl-1"}}, nil).Once()

	_, err = saver.Save(ctx, owner, stale)
	require.NoError(t, err)
	gw.AssertExpectations(t)
}
