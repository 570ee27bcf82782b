// Package journal keeps a local sqlite record of upload cycles so an
// operator can diagnose a struggling camera or endpoint after the fact.
// Only cycle metadata is stored; snapshot bytes are never persisted.
package journal

import (
	"context"
	"database/sql"
	"time"

	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// DefaultFileName is the journal's file name inside the config dir.
const DefaultFileName = "cycles.sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS upload_cycles (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	captured_at INTEGER NOT NULL,
	outcome TEXT NOT NULL,
	status_code INTEGER NOT NULL DEFAULT 0,
	snapshot_bytes INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_upload_cycles_captured_at ON upload_cycles(captured_at);
`

// Cycle is one capture/upload attempt as recorded in the journal.
type Cycle struct {
	CapturedAt    time.Time
	Outcome       string
	StatusCode    int
	SnapshotBytes int
	Duration      time.Duration
	Detail        string
}

// Journal wraps the sqlite handle.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open cycle journal %s", path)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "init cycle journal schema")
	}
	return &Journal{db: db}, nil
}

// Record appends one cycle row.
func (j *Journal) Record(ctx context.Context, c Cycle) error {
	if j == nil || j.db == nil {
		return nil
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO upload_cycles (captured_at, outcome, status_code, snapshot_bytes, duration_ms, detail)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.CapturedAt.UnixMilli(), c.Outcome, c.StatusCode, c.SnapshotBytes,
		c.Duration.Milliseconds(), c.Detail)
	return pkgerrors.Wrap(err, "record cycle")
}

// Recent returns up to limit cycles, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Cycle, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT captured_at, outcome, status_code, snapshot_bytes, duration_ms, detail
		 FROM upload_cycles ORDER BY captured_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query recent cycles")
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		var (
			capturedAt int64
			durationMS int64
			c          Cycle
		)
		if err := rows.Scan(&capturedAt, &c.Outcome, &c.StatusCode, &c.SnapshotBytes, &durationMS, &c.Detail); err != nil {
			return nil, pkgerrors.Wrap(err, "scan cycle row")
		}
		c.CapturedAt = time.UnixMilli(capturedAt)
		c.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, c)
	}
	return out, pkgerrors.Wrap(rows.Err(), "iterate cycle rows")
}

// Close releases the database handle.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
