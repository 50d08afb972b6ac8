package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetable-service/internal/genre"
)

var timelineCols = []string{
	"id", "title", "description", "genre", "start_date", "end_date",
	"metadata", "is_public", "created_by", "created_at", "updated_at",
}

func setupMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewPostgresStore(db), db
}

func TestStoreCreateTimeline(t *testing.T) {
	store, db := setupMockStore(t)
	defer db.Close()
	now := time.Now()

	db.ExpectQuery("INSERT INTO timelines").
		WithArgs("Trip", "", "travel", "2024-05-01T00:00", "2024-05-03T00:00", pgxmock.AnyArg(), false, "owner-1").
		WillReturnRows(pgxmock.NewRows(timelineCols).AddRow(
			"tl-1", "Trip", "", genre.Travel, "2024-05-01T00:00", "2024-05-03T00:00",
			json.RawMessage(`{"destination":"Tokyo"}`), false, "owner-1", now, now,
		))

	got, err := store.CreateTimeline(context.Background(), Timeline{
		Title:     "Trip",
		Genre:     genre.Travel,
		StartDate: "2024-05-01T00:00",
		EndDate:   "2024-05-03T00:00",
		Metadata:  json.RawMessage(`{"destination":"Tokyo"}`),
		CreatedBy: "owner-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "tl-1", got.ID)
	assert.Equal(t, genre.Travel, got.Genre)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestStoreCreateEventsInTransaction(t *testing.T) {
	store, db := setupMockStore(t)
	defer db.Close()
	now := time.Now()

	db.ExpectBegin()
	db.ExpectQuery("INSERT INTO timeline_events").
		WithArgs("tl-1", "搬入", "", "09:00", "10:00", "", pgxmock.AnyArg(), 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("ev-1", now))
	db.ExpectQuery("INSERT INTO timeline_events").
		WithArgs("tl-1", "本番", "", "18:00", "20:00", "", pgxmock.AnyArg(), 1).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("ev-2", now))
	db.ExpectCommit()

	got, err := store.CreateEvents(context.Background(), "tl-1", []Event{
		{Title: "搬入", StartTime: "09:00", EndTime: "10:00", Metadata: json.RawMessage(`{}`), OrderIndex: 0},
		{Title: "本番", StartTime: "18:00", EndTime: "20:00", Metadata: json.RawMessage(`{}`), OrderIndex: 1},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ev-1", got[0].ID)
	assert.Equal(t, "tl-1", got[1].TimelineID)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestStoreCreateEventsRollsBackOnFailure(t *testing.T) {
	store, db := setupMockStore(t)
	defer db.Close()

	db.ExpectBegin()
	db.ExpectQuery("INSERT INTO timeline_events").
		WithArgs("tl-1", "搬入", "", "09:00", "10:00", "", pgxmock.AnyArg(), 0).
		WillReturnError(errors.New("constraint"))
	db.ExpectRollback()

	_, err := store.CreateEvents(context.Background(), "tl-1", []Event{
		{Title: "搬入", StartTime: "09:00", EndTime: "10:00", Metadata: json.RawMessage(`{}`)},
	})
	assert.Error(t, err)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestStoreCreateItemsEmptySkipsDatabase(t *testing.T) {
	store, db := setupMockStore(t)
	defer db.Close()

	got, err := store.CreateItems(context.Background(), "tl-1", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestStoreCreateItems(t *testing.T) {
	store, db := setupMockStore(t)
	defer db.Close()

	db.ExpectBegin()
	db.ExpectQuery("INSERT INTO timeline_items").
		WithArgs("tl-1", "DI", "", 2, "台", "機材", true, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("it-1", time.Now()))
	db.ExpectCommit()

	got, err := store.CreateItems(context.Background(), "tl-1", []Item{
		{Name: "DI", Quantity: 2, Unit: "台", Category: "機材", IsRequired: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "it-1", got[0].ID)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestStoreListByOwner(t *testing.T) {
	store, db := setupMockStore(t)
	defer db.Close()
	now := time.Now()

	db.ExpectQuery("SELECT .* FROM timelines").
		WithArgs("owner-1", "").
		WillReturnRows(pgxmock.NewRows(timelineCols).
			AddRow("tl-2", "B", "", genre.PA, "s", "e", json.RawMessage(`{}`), false, "owner-1", now, now).
			AddRow("tl-1", "A", "", genre.Other, "s", "e", json.RawMessage(`{}`), true, "owner-1", now.Add(-time.Hour), now))

	got, err := store.ListByOwner(context.Background(), "owner-1", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tl-2", got[0].ID)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestStoreGetNotFound(t *testing.T) {
	store, db := setupMockStore(t)
	defer db.Close()

	db.ExpectQuery("SELECT .* FROM timelines").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	db.ExpectQuery("SELECT .* FROM timelines").
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02"})

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestStoreListEventsOrdered(t *testing.T) {
	store, db := setupMockStore(t)
	defer db.Close()
	now := time.Now()

	db.ExpectQuery("SELECT .* FROM timeline_events").
		WithArgs("tl-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "timeline_id", "title", "description", "start_time", "end_time", "location", "metadata", "order_index", "created_at",
		}).
			AddRow("ev-1", "tl-1", "搬入", "", "09:00", "10:00", "", json.RawMessage(`{}`), 0, now).
			AddRow("ev-2", "tl-1", "本番", "", "18:00", "20:00", "", json.RawMessage(`{}`), 1, now))

	got, err := store.ListEvents(context.Background(), "tl-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[1].OrderIndex)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestStoreSetPublicFiltersByOwner(t *testing.T) {
	store, db := setupMockStore(t)
	defer db.Close()

	db.ExpectQuery("UPDATE timelines").
		WithArgs("tl-1", "stranger-1", true).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.SetPublic(context.Background(), "tl-1", "stranger-1", true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestStoreDelete(t *testing.T) {
	store, db := setupMockStore(t)
	defer db.Close()

	db.ExpectExec("DELETE FROM timelines").
		WithArgs("tl-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	db.ExpectExec("DELETE FROM timelines").
		WithArgs("tl-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.NoError(t, store.Delete(context.Background(), "tl-1"))
	assert.ErrorIs(t, store.Delete(context.Background(), "tl-2"), ErrNotFound)
	assert.NoError(t, db.ExpectationsWereMet())
}
