package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the stores use; pgxmock satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type UserStore interface {
	UpsertGoogleUser(ctx context.Context, googleID string, u User) (User, error)
	EnsureProfile(ctx context.Context, u User) error
	FixMissingProfiles(ctx context.Context) (int, error)
}

type PostgresUserStore struct {
	db DB
}

func NewPostgresUserStore(db DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS users (
          id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
          email       TEXT NOT NULL UNIQUE,
          google_id   TEXT UNIQUE,
          full_name   TEXT NOT NULL DEFAULT '',
          avatar_url  TEXT NOT NULL DEFAULT '',
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return fmt.Errorf("migrate users: %w", err)
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS profiles (
          id          uuid PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
          email       TEXT NOT NULL DEFAULT '',
          full_name   TEXT NOT NULL DEFAULT '',
          avatar_url  TEXT NOT NULL DEFAULT '',
          created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
      )
    `); err != nil {
		return fmt.Errorf("migrate profiles: %w", err)
	}
	return nil
}

// UpsertGoogleUser links a Google account to the user with the same email,
// creating the user on first sign-in.
func (s *PostgresUserStore) UpsertGoogleUser(ctx context.Context, googleID string, u User) (User, error) {
	var out User
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (email, google_id, full_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			google_id  = EXCLUDED.google_id,
			full_name  = COALESCE(NULLIF(EXCLUDED.full_name, ''), users.full_name),
			avatar_url = COALESCE(NULLIF(EXCLUDED.avatar_url, ''), users.avatar_url),
			updated_at = now()
		RETURNING id, email, full_name, avatar_url
	`, u.Email, googleID, u.FullName, u.AvatarURL).Scan(&out.ID, &out.Email, &out.FullName, &out.AvatarURL)
	if err != nil {
		return User{}, fmt.Errorf("upsert google user: %w", err)
	}
	return out, nil
}

// EnsureProfile creates the profile row for u unless it already exists.
func (s *PostgresUserStore) EnsureProfile(ctx context.Context, u User) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO profiles (id, email, full_name, avatar_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, u.ID, u.Email, u.DisplayName(), u.AvatarURL)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

// FixMissingProfiles creates profiles for users that signed in before profiles
// were created automatically. It reports how many were created.
func (s *PostgresUserStore) FixMissingProfiles(ctx context.Context) (int, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO profiles (id, email, full_name, avatar_url)
		SELECT u.id, u.email, COALESCE(NULLIF(u.full_name, ''), NULLIF(u.email, ''), 'User'), u.avatar_url
		FROM users u
		LEFT JOIN profiles p ON p.id = u.id
		WHERE p.id IS NULL
	`)
	if err != nil {
		return 0, fmt.Errorf("fix missing profiles: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
