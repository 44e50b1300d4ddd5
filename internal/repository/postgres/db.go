package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

// InitDB connects to Postgres and applies the schema.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Info("Database connected and migrated")
	return db, nil
}

func migrateDB(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			brand TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			images TEXT[] NOT NULL DEFAULT '{}',
			categories TEXT[] NOT NULL DEFAULT '{}',
			quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			version INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS prices (
			id SERIAL PRIMARY KEY,
			item_id TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
			amount DOUBLE PRECISION NOT NULL CHECK (amount >= 0),
			currency_code CHAR(3) NOT NULL,
			currency_name TEXT NOT NULL DEFAULT '',
			currency_symbol TEXT NOT NULL DEFAULT '',
			effective_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS prices_item_currency_idx
			ON prices (item_id, currency_code, effective_at DESC);

		CREATE TABLE IF NOT EXISTS processed_events (
			event_id TEXT PRIMARY KEY,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}
