package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps payout history in PostgreSQL, one row per GitHub user.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed payout history store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the payout history table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS payout_history (
            github_user_id BIGINT PRIMARY KEY,
            last_payout_timestamp TIMESTAMPTZ NOT NULL
        )`)
	return err
}

// MayCollect reports whether the user is outside the cooldown window.
func (s *PostgresStore) MayCollect(ctx context.Context, githubUserID int64) (Decision, error) {
	const query = `SELECT last_payout_timestamp FROM payout_history WHERE github_user_id = $1`

	var lastPayout time.Time
	if err := s.db.QueryRow(ctx, query, githubUserID).Scan(&lastPayout); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// First collection for this user.
			return Decision{Allowed: true}, nil
		}
		return Decision{}, err
	}

	return decide(lastPayout.UTC(), time.Now().UTC()), nil
}

// RecordPayout upserts the last payout timestamp for the user. Row-level
// locking in Postgres serializes concurrent writes to the same user while
// leaving other users untouched.
func (s *PostgresStore) RecordPayout(ctx context.Context, githubUserID int64, at time.Time) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO payout_history (github_user_id, last_payout_timestamp)
        VALUES ($1, $2)
        ON CONFLICT (github_user_id)
        DO UPDATE SET last_payout_timestamp = EXCLUDED.last_payout_timestamp`,
		githubUserID, at.UTC())
	return err
}
