package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type EventRepo struct {
	db *sql.DB
}

func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Insert(ctx context.Context, ev *MonitorEvent) error {
	if ev == nil {
		return fmt.Errorf("monitor event is required")
	}
	if ev.ID == "" {
		ev.ID = NewID()
	}
	if ev.CapturedAt.IsZero() {
		ev.CapturedAt = nowUTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO monitor_events (id, session_id, ts, db_index, client, command, arguments, raw, captured_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		ev.ID,
		ev.SessionID,
		ev.Timestamp,
		ev.Database,
		ev.Client,
		ev.Command,
		ev.Arguments,
		ev.Raw,
		formatTimestamp(ev.CapturedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert monitor event: %w", err)
	}
	return nil
}

func (r *EventRepo) ListRecent(ctx context.Context, limit int) ([]*MonitorEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	return r.list(ctx, `
SELECT id, session_id, ts, db_index, client, command, arguments, raw, captured_at
FROM monitor_events
ORDER BY captured_at DESC
LIMIT ?
`, limit)
}

func (r *EventRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]*MonitorEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	return r.list(ctx, `
SELECT id, session_id, ts, db_index, client, command, arguments, raw, captured_at
FROM monitor_events
WHERE session_id = ?
ORDER BY captured_at DESC
LIMIT ?
`, sessionID, limit)
}

func (r *EventRepo) list(ctx context.Context, query string, args ...any) ([]*MonitorEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitor events: %w", err)
	}
	defer rows.Close()

	var out []*MonitorEvent
	for rows.Next() {
		var ev MonitorEvent
		var capturedRaw string
		if err := rows.Scan(
			&ev.ID,
			&ev.SessionID,
			&ev.Timestamp,
			&ev.Database,
			&ev.Client,
			&ev.Command,
			&ev.Arguments,
			&ev.Raw,
			&capturedRaw,
		); err != nil {
			return nil, fmt.Errorf("failed to scan monitor event: %w", err)
		}
		if ev.CapturedAt, err = parseTimestamp(capturedRaw); err != nil {
			return nil, err
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

// CountByCommand aggregates captured events per command name, most
// frequent first.
func (r *EventRepo) CountByCommand(ctx context.Context, limit int) ([]CommandCount, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT command, count(1)
FROM monitor_events
GROUP BY command
ORDER BY count(1) DESC, command ASC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to count by command: %w", err)
	}
	defer rows.Close()

	var out []CommandCount
	for rows.Next() {
		var cc CommandCount
		if err := rows.Scan(&cc.Command, &cc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan command count: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

// Prune drops events captured before the cutoff and returns how many
// rows went away.
func (r *EventRepo) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := nowUTC().Add(-olderThan)
	res, err := r.db.ExecContext(ctx, `
DELETE FROM monitor_events WHERE captured_at < ?
`, formatTimestamp(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune monitor events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return n, nil
}
