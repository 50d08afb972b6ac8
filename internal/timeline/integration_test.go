//go:build integration

package timeline

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"timetable-service/internal/auth"
	"timetable-service/internal/field"
	"timetable-service/internal/genre"
	"timetable-service/internal/metadata"
)

// setupIntegrationTest uses DATABASE_URL when set, otherwise starts a
// throwaway postgres container. It skips when neither is available.
func setupIntegrationTest(t *testing.T) (*pgxpool.Pool, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbURL := os.Getenv("DATABASE_URL")
	var ctr *postgres.PostgresContainer
	if dbURL == "" {
		var err error
		ctr, err = postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("timetable"),
			postgres.WithUsername("timetable"),
			postgres.WithPassword("timetable"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Skipf("Skipping integration test: cannot start postgres: %v", err)
		}
		dbURL, err = ctr.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to DB: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("Skipping integration test: cannot ping DB: %v", err)
	}

	require.NoError(t, auth.AutoMigrate(ctx, pool))
	require.NoError(t, AutoMigrate(ctx, pool))

	return pool, func() {
		pool.Close()
		if ctr != nil {
			_ = testcontainers.TerminateContainer(ctr)
		}
	}
}

func TestCreateAndReadBackTimeline(t *testing.T) {
	pool, cleanup := setupIntegrationTest(t)
	defer cleanup()
	ctx := context.Background()

	users := auth.NewPostgresUserStore(pool)
	user, err := users.UpsertGoogleUser(ctx, "google-"+field.NewID(), auth.User{
		Email:    field.NewID() + "@example.com",
		FullName: "Integration",
	})
	require.NoError(t, err)

	svc := NewService(NewPostgresStore(pool), users, nil, nil, zap.NewNop())

	detail, err := svc.CreateTimelineRecord(ctx, &user, CreateInput{
		Genre: genre.PA,
		BasicInfo: metadata.BasicInfo{
			Title:      "ライブ",
			StartDate:  "2024-06-01T10:00",
			EndDate:    "2024-06-01T22:00",
			VenueName:  "Zepp",
			LoadInTime: "10:00",
			CustomFields: []field.CustomField{
				{ID: "f1", Type: field.TypeNumber, Label: "ワイヤレス", Value: "4", Unit: "本", Status: field.StatusPending},
			},
		},
		Events: []EventInput{
			{Title: "搬入", StartTime: "2024-06-01T10:00", EndTime: "2024-06-01T12:00"},
			{Title: "本番", StartTime: "2024-06-01T18:00", EndTime: "2024-06-01T20:00"},
		},
		Items: []ItemInput{{Name: "DI", Quantity: 0}},
	})
	require.NoError(t, err)

	got, err := svc.Get(ctx, &user, detail.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "ライブ", got.Title)
	require.Len(t, got.Events, 2)
	assert.Equal(t, "搬入", got.Events[0].Title)
	assert.Equal(t, 1, got.Items[0].Quantity)

	doc, err := metadata.Decode(got.Genre, got.Metadata)
	require.NoError(t, err)
	require.Len(t, doc.Fields(), 1)
	assert.Equal(t, "本", doc.Fields()[0].Unit)

	_, err = svc.Get(ctx, nil, detail.ID, false)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := svc.ListForUser(ctx, &user, genre.PA)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	require.NoError(t, svc.Delete(ctx, &user, detail.ID))
	events, err := NewPostgresStore(pool).ListEvents(ctx, detail.ID)
	require.NoError(t, err)
	assert.Empty(t, events)
}
