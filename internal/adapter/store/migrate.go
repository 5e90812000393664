package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations run in order; user_version records how many have been applied.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS credentials (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL UNIQUE,
		provider_type TEXT NOT NULL,
		auth_type     TEXT NOT NULL,
		config        TEXT NOT NULL DEFAULT '{}',
		description   TEXT NOT NULL DEFAULT '',
		secret_fields TEXT NOT NULL DEFAULT '[]',
		created_at    TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS credentials_provider ON credentials(provider_type);

	CREATE TABLE IF NOT EXISTS vector_stores (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL UNIQUE,
		provider_type TEXT NOT NULL,
		credential_id INTEGER NOT NULL REFERENCES credentials(id),
		config        TEXT NOT NULL DEFAULT '{}',
		description   TEXT NOT NULL DEFAULT '',
		secret_fields TEXT NOT NULL DEFAULT '[]',
		created_at    TEXT NOT NULL
	);
	`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
