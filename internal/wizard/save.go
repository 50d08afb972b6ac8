package wizard

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"timetable-service/internal/auth"
	"timetable-service/internal/timeline"
)

var (
	ErrIncomplete     = errors.New("ジャンルと基本情報を入力してください")
	ErrNoEvents       = errors.New("少なくとも1つのイベントを追加してください。")
	ErrSaveInProgress = errors.New("保存処理中です。しばらくお待ちください")
)

// Gateway persists a finished draft. *timeline.Service implements it.
type Gateway interface {
	CreateTimelineRecord(ctx context.Context, user *auth.User, in timeline.CreateInput) (*timeline.Detail, error)
}

type Metrics struct {
	rejected *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_wizard_saves_rejected_total",
			Help: "Wizard saves refused before reaching the database, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.rejected)
	}
	return m
}

func (m *Metrics) reject(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

type Saver struct {
	gateway Gateway
	drafts  DraftStore
	locker  Locker
	metrics *Metrics
	logger  *zap.Logger
}

func NewSaver(gateway Gateway, drafts DraftStore, locker Locker, metrics *Metrics, logger *zap.Logger) *Saver {
	return &Saver{
		gateway: gateway,
		drafts:  drafts,
		locker:  locker,
		metrics: metrics,
		logger:  logger.Named("wizard"),
	}
}

// Save hands the draft to the gateway in a single call. The draft is dropped
// from the store only after a successful save; on any error it is kept so the
// user can retry. A draft with no events never reaches the gateway.
//
// d may be a stale copy: under the lock the stored draft is read again, so a
// draft that another request already saved yields ErrDraftNotFound.
func (s *Saver) Save(ctx context.Context, user *auth.User, d Draft) (*timeline.Detail, error) {
	if err := s.check(d); err != nil {
		return nil, err
	}

	ok, err := s.locker.Acquire(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.metrics.reject("in_progress")
		return nil, ErrSaveInProgress
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), d.ID); err != nil {
			s.logger.Warn("release save lock", zap.String("draft_id", d.ID), zap.Error(err))
		}
	}()

	d, err = s.drafts.Get(ctx, d.ID)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			s.metrics.reject("already_saved")
		}
		return nil, err
	}
	if err := s.check(d); err != nil {
		return nil, err
	}

	detail, err := s.gateway.CreateTimelineRecord(ctx, user, d.CreateInput())
	if err != nil {
		s.logger.Error("save draft", zap.String("draft_id", d.ID), zap.Error(err))
		return detail, err
	}

	if err := s.drafts.Delete(ctx, d.ID); err != nil {
		s.logger.Warn("drop saved draft", zap.String("draft_id", d.ID), zap.Error(err))
	}
	s.logger.Info("draft saved",
		zap.String("draft_id", d.ID),
		zap.String("timeline_id", detail.ID),
		zap.Int("events", len(detail.Events)),
	)
	return detail, nil
}

func (s *Saver) check(d Draft) error {
	if d.Genre == "" || d.BasicInfo == nil {
		s.metrics.reject("incomplete")
		return ErrIncomplete
	}
	if len(d.Events) == 0 {
		s.metrics.reject("no_events")
		return ErrNoEvents
	}
	return nil
}
