/**
 * @description
 * Schema bootstrap for the PostgreSQL backend. EnsureSchema creates the tables
 * on startup when they do not exist yet and seeds the default user row, so a
 * fresh database is usable without a separate migration step.
 */

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT,
		password_hash TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		company TEXT,
		address TEXT,
		gst TEXT,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		description TEXT,
		default_duration INT NOT NULL,
		default_price DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS renewals (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		client_id BIGINT NOT NULL REFERENCES clients(id),
		service_id BIGINT NOT NULL REFERENCES services(id),
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		is_paid BOOLEAN NOT NULL DEFAULT FALSE,
		notification_sent BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS activities (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL,
		description TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_renewals_user_end_date ON renewals (user_id, end_date)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_user_created_at ON activities (user_id, created_at DESC)`,
}

// EnsureSchema creates the tables and seeds the default user. Safe to run on
// every startup.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool, defaultUserID int64) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}

	_, err := db.Exec(ctx, `
		INSERT INTO users (id, username)
		VALUES ($1, 'default')
		ON CONFLICT (id) DO NOTHING`, defaultUserID)
	if err != nil {
		return fmt.Errorf("failed to seed default user: %w", err)
	}

	// Keep the id sequence ahead of the seeded row.
	_, err = db.Exec(ctx, `SELECT setval('users_id_seq', GREATEST((SELECT MAX(id) FROM users), 1))`)
	if err != nil {
		return fmt.Errorf("failed to advance users id sequence: %w", err)
	}
	return nil
}
