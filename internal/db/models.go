package db

import (
	"time"

	"github.com/google/uuid"
)

// CaptureSession is one run of the monitor consumer against a target
// server.
type CaptureSession struct {
	ID         string    `json:"id"`
	TargetAddr string    `json:"target_addr"`
	StartedAt  time.Time `json:"started_at"`
	StoppedAt  time.Time `json:"stopped_at,omitempty"`
	Events     int64     `json:"events"`
}

// MonitorEvent is a captured monitoring line, one row per command the
// server reported.
type MonitorEvent struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Timestamp  float64   `json:"timestamp"`
	Database   int       `json:"database"`
	Client     string    `json:"client,omitempty"`
	Command    string    `json:"command"`
	Arguments  string    `json:"arguments,omitempty"`
	Raw        string    `json:"raw"`
	CapturedAt time.Time `json:"captured_at"`
}

// CommandCount is one row of a per-command aggregation.
type CommandCount struct {
	Command string `json:"command"`
	Count   int64  `json:"count"`
}

func NewID() string {
	return uuid.NewString()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimestampOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return formatTimestamp(t)
}

func parseTimestamp(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}

func parseOptionalTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return parseTimestamp(raw)
}
