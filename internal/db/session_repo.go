package db

import (
	"context"
	"database/sql"
	"fmt"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, sess *CaptureSession) error {
	if sess == nil {
		return fmt.Errorf("capture session is required")
	}
	if sess.ID == "" {
		sess.ID = NewID()
	}
	if sess.StartedAt.IsZero() {
		sess.StartedAt = nowUTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO capture_sessions (id, target_addr, started_at, stopped_at, events)
VALUES (?, ?, ?, ?, ?)
`,
		sess.ID,
		sess.TargetAddr,
		formatTimestamp(sess.StartedAt),
		formatTimestampOrEmpty(sess.StoppedAt),
		sess.Events,
	)
	if err != nil {
		return fmt.Errorf("failed to create capture session: %w", err)
	}
	return nil
}

// Finish stamps the stop time and the final event count.
func (r *SessionRepo) Finish(ctx context.Context, id string, events int64) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE capture_sessions SET stopped_at = ?, events = ? WHERE id = ?
`, formatTimestamp(nowUTC()), events, id)
	if err != nil {
		return fmt.Errorf("failed to finish capture session %q: %w", id, err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*CaptureSession, error) {
	var sess CaptureSession
	var startedRaw, stoppedRaw string
	err := r.db.QueryRowContext(ctx, `
SELECT id, target_addr, started_at, stopped_at, events
FROM capture_sessions
WHERE id = ?
`, id).Scan(&sess.ID, &sess.TargetAddr, &startedRaw, &stoppedRaw, &sess.Events)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get capture session %q: %w", id, err)
	}
	if sess.StartedAt, err = parseTimestamp(startedRaw); err != nil {
		return nil, err
	}
	if sess.StoppedAt, err = parseOptionalTimestamp(stoppedRaw); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *SessionRepo) ListRecent(ctx context.Context, limit int) ([]*CaptureSession, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, target_addr, started_at, stopped_at, events
FROM capture_sessions
ORDER BY started_at DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture sessions: %w", err)
	}
	defer rows.Close()

	var out []*CaptureSession
	for rows.Next() {
		var sess CaptureSession
		var startedRaw, stoppedRaw string
		if err := rows.Scan(&sess.ID, &sess.TargetAddr, &startedRaw, &stoppedRaw, &sess.Events); err != nil {
			return nil, fmt.Errorf("failed to scan capture session: %w", err)
		}
		if sess.StartedAt, err = parseTimestamp(startedRaw); err != nil {
			return nil, err
		}
		if sess.StoppedAt, err = parseOptionalTimestamp(stoppedRaw); err != nil {
			return nil, err
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}
