package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"timetable-service/internal/genre"
)

// DB is implemented by *pgxpool.Pool and by pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Store interface {
	CreateTimeline(ctx context.Context, t Timeline) (Timeline, error)
	CreateEvents(ctx context.Context, timelineID string, events []Event) ([]Event, error)
	CreateItems(ctx context.Context, timelineID string, items []Item) ([]Item, error)
	ListByOwner(ctx context.Context, ownerID string, g genre.Genre) ([]Timeline, error)
	Get(ctx context.Context, id string) (Timeline, error)
	ListEvents(ctx context.Context, timelineID string) ([]Event, error)
	ListItems(ctx context.Context, timelineID string) ([]Item, error)
	SetPublic(ctx context.Context, id, ownerID string, isPublic bool) (Timeline, error)
	Delete(ctx context.Context, id string) error
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// AutoMigrate expects the profiles table to exist already.
func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS timelines (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          title       TEXT NOT NULL,
          description TEXT NOT NULL DEFAULT '',
          genre       TEXT NOT NULL,
          start_date  TEXT NOT NULL,
          end_date    TEXT NOT NULL,
          metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
          is_public   BOOLEAN NOT NULL DEFAULT FALSE,
          group_id    uuid,
          created_by  uuid NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return fmt.Errorf("migrate timelines: %w", err)
	}

	if _, err := db.Exec(ctx, `
      CREATE INDEX IF NOT EXISTS idx_timelines_created_by
      ON timelines(created_by, created_at DESC)
    `); err != nil {
		return fmt.Errorf("migrate timelines index: %w", err)
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS timeline_events (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          timeline_id uuid NOT NULL REFERENCES timelines(id) ON DELETE CASCADE,
          title       TEXT NOT NULL,
          description TEXT NOT NULL DEFAULT '',
          start_time  TEXT NOT NULL,
          end_time    TEXT NOT NULL,
          location    TEXT NOT NULL DEFAULT '',
          metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
          order_index INT NOT NULL,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return fmt.Errorf("migrate timeline_events: %w", err)
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS timeline_items (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          timeline_id uuid NOT NULL REFERENCES timelines(id) ON DELETE CASCADE,
          name        TEXT NOT NULL,
          description TEXT NOT NULL DEFAULT '',
          quantity    INT NOT NULL DEFAULT 1 CHECK (quantity >= 1),
          unit        TEXT NOT NULL DEFAULT '',
          category    TEXT NOT NULL DEFAULT '',
          is_required BOOLEAN NOT NULL DEFAULT FALSE,
          order_index INT NOT NULL,
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return fmt.Errorf("migrate timeline_items: %w", err)
	}

	return nil
}

const timelineColumns = `id, title, description, genre, start_date, end_date, metadata, is_public, created_by, created_at, updated_at`

func scanTimeline(row pgx.Row) (Timeline, error) {
	var t Timeline
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Genre,
		&t.StartDate,
		&t.EndDate,
		&t.Metadata,
		&t.IsPublic,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, err
}

// notFound folds "no row" and malformed ids into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "22P02" {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) CreateTimeline(ctx context.Context, t Timeline) (Timeline, error) {
	out, err := scanTimeline(s.db.QueryRow(ctx, `
		INSERT INTO timelines (title, description, genre, start_date, end_date, metadata, is_public, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+timelineColumns,
		t.Title, t.Description, string(t.Genre), t.StartDate, t.EndDate, t.Metadata, t.IsPublic, t.CreatedBy,
	))
	if err != nil {
		return Timeline{}, fmt.Errorf("insert timeline: %w", err)
	}
	return out, nil
}

// CreateEvents inserts all events in one transaction; either every row is
// written or none is.
func (s *PostgresStore) CreateEvents(ctx context.Context, timelineID string, events []Event) ([]Event, error) {
	if len(events) == 0 {
		return []Event{}, nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin events tx: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]Event, 0, len(events))
	for _, ev := range events {
		ev.TimelineID = timelineID
		if err := tx.QueryRow(ctx, `
			INSERT INTO timeline_events (timeline_id, title, description, start_time, end_time, location, metadata, order_index)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id, created_at
		`, timelineID, ev.Title, ev.Description, ev.StartTime, ev.EndTime, ev.Location, ev.Metadata, ev.OrderIndex,
		).Scan(&ev.ID, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert event %d: %w", ev.OrderIndex, err)
		}
		out = append(out, ev)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit events: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateItems(ctx context.Context, timelineID string, items []Item) ([]Item, error) {
	if len(items) == 0 {
		return []Item{}, nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin items tx: %w", err)
	}
	defer tx.Rollback(ctx)

	out := make([]Item, 0, len(items))
	for _, it := range items {
		it.TimelineID = timelineID
		if err := tx.QueryRow(ctx, `
			INSERT INTO timeline_items (timeline_id, name, description, quantity, unit, category, is_required, order_index)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			RETURNING id, created_at
		`, timelineID, it.Name, it.Description, it.Quantity, it.Unit, it.Category, it.IsRequired, it.OrderIndex,
		).Scan(&it.ID, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert item %d: %w", it.OrderIndex, err)
		}
		out = append(out, it)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit items: %w", err)
	}
	return out, nil
}

// ListByOwner returns the owner's timelines, newest first. An empty genre
// matches every genre.
func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID string, g genre.Genre) ([]Timeline, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+timelineColumns+`
		FROM timelines
		WHERE created_by = $1
		  AND ($2 = '' OR genre = $2)
		ORDER BY created_at DESC
	`, ownerID, string(g))
	if err != nil {
		return nil, fmt.Errorf("list timelines: %w", err)
	}
	defer rows.Close()

	out := []Timeline{}
	for rows.Next() {
		t, err := scanTimeline(rows)
		if err != nil {
			return nil, fmt.Errorf("list timelines scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list timelines rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Timeline, error) {
	t, err := scanTimeline(s.db.QueryRow(ctx, `
		SELECT `+timelineColumns+`
		FROM timelines
		WHERE id = $1
	`, id))
	if err != nil {
		return Timeline{}, notFound(err)
	}
	return t, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, timelineID string) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, timeline_id, title, description, start_time, end_time, location, metadata, order_index, created_at
		FROM timeline_events
		WHERE timeline_id = $1
		ORDER BY order_index ASC
	`, timelineID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var ev Event
		if err := rows.Scan(
			&ev.ID,
			&ev.TimelineID,
			&ev.Title,
			&ev.Description,
			&ev.StartTime,
			&ev.EndTime,
			&ev.Location,
			&ev.Metadata,
			&ev.OrderIndex,
			&ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("list events scan: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListItems(ctx context.Context, timelineID string) ([]Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, timeline_id, name, description, quantity, unit, category, is_required, order_index, created_at
		FROM timeline_items
		WHERE timeline_id = $1
		ORDER BY order_index ASC
	`, timelineID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(
			&it.ID,
			&it.TimelineID,
			&it.Name,
			&it.Description,
			&it.Quantity,
			&it.Unit,
			&it.Category,
			&it.IsRequired,
			&it.OrderIndex,
			&it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("list items scan: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// SetPublic only touches a row owned by ownerID; anything else is ErrNotFound.
func (s *PostgresStore) SetPublic(ctx context.Context, id, ownerID string, isPublic bool) (Timeline, error) {
	t, err := scanTimeline(s.db.QueryRow(ctx, `
		UPDATE timelines
		SET is_public = $3, updated_at = now()
		WHERE id = $1 AND created_by = $2
		RETURNING `+timelineColumns,
		id, ownerID, isPublic,
	))
	if err != nil {
		return Timeline{}, notFound(err)
	}
	return t, nil
}

// Delete removes the timeline; events and items go with it.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM timelines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timeline: %w", notFound(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
