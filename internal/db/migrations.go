package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create capture tables",
		sql: `
CREATE TABLE IF NOT EXISTS capture_sessions (
	id TEXT PRIMARY KEY,
	target_addr TEXT NOT NULL,
	started_at TEXT NOT NULL,
	stopped_at TEXT NOT NULL DEFAULT '',
	events INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS monitor_events (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	ts REAL NOT NULL,
	db_index INTEGER NOT NULL DEFAULT 0,
	client TEXT NOT NULL DEFAULT '',
	command TEXT NOT NULL,
	arguments TEXT NOT NULL DEFAULT '',
	raw TEXT NOT NULL,
	captured_at TEXT NOT NULL,
	FOREIGN KEY(session_id) REFERENCES capture_sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_monitor_events_session ON monitor_events(session_id);
CREATE INDEX IF NOT EXISTS idx_monitor_events_command ON monitor_events(command);
CREATE INDEX IF NOT EXISTS idx_monitor_events_captured_at ON monitor_events(captured_at);
`,
	},
}

func RunMigrations(ctx context.Context, conn *sql.DB) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start migration transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS _meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`); err != nil {
		return fmt.Errorf("failed to ensure _meta table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO _meta (key, value) VALUES ('schema_version', '0')`); err != nil {
		return fmt.Errorf("failed to initialize schema version: %w", err)
	}

	var currentRaw string
	if err := tx.QueryRowContext(ctx, `SELECT value FROM _meta WHERE key = 'schema_version'`).Scan(&currentRaw); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	currentVersion, err := strconv.Atoi(currentRaw)
	if err != nil {
		return fmt.Errorf("invalid schema version %q: %w", currentRaw, err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("failed migration %03d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE _meta SET value = ? WHERE key = 'schema_version'`, strconv.Itoa(m.version)); err != nil {
			return fmt.Errorf("failed to set schema version %03d: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}

	return nil
}
