package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore backs every store contract with one pgx pool. Identity
// columns hold the key string for the federation mode the row was written
// under, so lookups stay a single indexed equality regardless of mode.
type PostgresStore struct {
	pool     *pgxpool.Pool
	clientID string
}

// NewPostgresStore binds the store to the local client identifier owning the
// event cursor row.
func NewPostgresStore(pool *pgxpool.Pool, clientID string) *PostgresStore {
	return &PostgresStore{pool: pool, clientID: clientID}
}

// EnsureSchema creates all tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sync_state (
			client_id         TEXT PRIMARY KEY,
			last_event_cursor TEXT NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS connections (
			receiver_key        TEXT PRIMARY KEY,
			sender_id           UUID,
			sender_domain       TEXT NOT NULL DEFAULT '',
			receiver_id         UUID NOT NULL,
			receiver_domain     TEXT NOT NULL DEFAULT '',
			conversation_id     UUID NOT NULL,
			conversation_domain TEXT NOT NULL DEFAULT '',
			status              TEXT NOT NULL,
			last_update         TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_key     TEXT PRIMARY KEY,
			conversation_id      UUID NOT NULL,
			domain               TEXT NOT NULL DEFAULT '',
			name                 TEXT,
			team_id              UUID,
			access_roles         TEXT[] NOT NULL DEFAULT '{}',
			cipher_suite         INT,
			epoch                BIGINT,
			epoch_time           TIMESTAMPTZ,
			needs_backend_update BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_members (
			conversation_key TEXT NOT NULL REFERENCES conversations(conversation_key) ON DELETE CASCADE,
			user_key         TEXT NOT NULL,
			user_id          UUID NOT NULL,
			user_domain      TEXT NOT NULL DEFAULT '',
			role             TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (conversation_key, user_key)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id               UUID PRIMARY KEY,
			conversation_key TEXT NOT NULL REFERENCES conversations(conversation_key) ON DELETE CASCADE,
			sender_id        UUID NOT NULL,
			sender_domain    TEXT NOT NULL DEFAULT '',
			sender_client    TEXT NOT NULL,
			recipient_client TEXT NOT NULL DEFAULT '',
			ciphertext       TEXT NOT NULL,
			external_data    TEXT,
			received_at      TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS teams (
			team_key             TEXT PRIMARY KEY,
			team_id              UUID NOT NULL,
			domain               TEXT NOT NULL DEFAULT '',
			name                 TEXT NOT NULL DEFAULT '',
			needs_backend_update BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS memberships (
			team_key             TEXT NOT NULL,
			user_key             TEXT NOT NULL,
			team_id              UUID NOT NULL,
			team_domain          TEXT NOT NULL DEFAULT '',
			user_id              UUID NOT NULL,
			user_domain          TEXT NOT NULL DEFAULT '',
			permissions          BIGINT NOT NULL DEFAULT 0,
			needs_backend_update BOOLEAN NOT NULL DEFAULT FALSE,
			PRIMARY KEY (team_key, user_key)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) LastEventCursor(ctx context.Context) (string, error) {
	query := `SELECT last_event_cursor FROM sync_state WHERE client_id = $1`

	var cursor string
	err := s.pool.QueryRow(ctx, query, s.clientID).Scan(&cursor)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get event cursor: %w", err)
	}
	return cursor, nil
}

func (s *PostgresStore) StoreEventCursor(ctx context.Context, cursor string) error {
	query := `INSERT INTO sync_state (client_id, last_event_cursor, updated_at)
	          VALUES ($1, $2, NOW())
	          ON CONFLICT (client_id) DO UPDATE
	          SET last_event_cursor = EXCLUDED.last_event_cursor, updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, s.clientID, cursor); err != nil {
		return fmt.Errorf("failed to store event cursor: %w", err)
	}
	return nil
}

// withTx runs fn inside one transaction; any error rolls everything back.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
