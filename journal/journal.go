// Package journal persists one row per build attempt to SQLite.
//
// Writes are asynchronous: records queue on a buffered channel and a
// dedicated goroutine flushes them in batched transactions, so a slow
// or contended database never stalls a build.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chkforge/chkforge/dbopen"
)

// Schema for the builds table. Pass to dbopen.WithSchema or call Init.
const Schema = `
CREATE TABLE IF NOT EXISTS builds (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	spec_path TEXT NOT NULL,
	template_path TEXT NOT NULL,
	out_path TEXT,
	header_sheet TEXT,
	steps_sheet TEXT,
	steps INTEGER NOT NULL,
	status TEXT NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started_at);
`

// Status values for Record.Status.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Record is one build attempt, successful or not.
type Record struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"startedAt"`
	SpecPath     string    `json:"specPath"`
	TemplatePath string    `json:"templatePath"`
	OutPath      string    `json:"outPath,omitempty"`
	HeaderSheet  string    `json:"headerSheet,omitempty"`
	StepsSheet   string    `json:"stepsSheet,omitempty"`
	Steps        int       `json:"steps"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
}

// Journal writes build records to a SQLite table asynchronously.
type Journal struct {
	db      *sql.DB
	ch      chan Record
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
}

// New starts a journal backed by the given database connection. The
// builds table must already exist (dbopen.WithSchema(Schema) or Init).
func New(db *sql.DB) *Journal {
	j := &Journal{
		db:   db,
		ch:   make(chan Record, 1024),
		done: make(chan struct{}),
	}
	go j.flushLoop()
	return j
}

// Init creates the builds table if it doesn't exist.
func (j *Journal) Init() error {
	_, err := j.db.Exec(Schema)
	return err
}

// Record queues r for async persistence. Non-blocking; when the buffer
// is full the record is dropped and counted.
func (j *Journal) Record(r Record) {
	select {
	case j.ch <- r:
	default:
		j.dropped.Add(1)
	}
}

// Dropped reports how many records were discarded on a full buffer.
func (j *Journal) Dropped() int64 {
	return j.dropped.Load()
}

// Close drains the buffer and stops the flush goroutine. The database
// connection stays open; closing it is the caller's job.
func (j *Journal) Close() error {
	j.once.Do(func() {
		close(j.ch)
		<-j.done
	})
	return nil
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, spec_path, template_path, out_path,
		       header_sheet, steps_sheet, steps, status, error
		FROM builds
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var startedAt int64
		if err := rows.Scan(&r.ID, &startedAt, &r.SpecPath, &r.TemplatePath,
			&r.OutPath, &r.HeaderSheet, &r.StepsSheet, &r.Steps, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		r.StartedAt = time.Unix(startedAt, 0)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	return out, nil
}

func (j *Journal) flushLoop() {
	defer close(j.done)

	batch := make([]Record, 0, 64)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-j.ch:
			if !ok {
				j.flushBatch(batch)
				return
			}
			batch = append(batch, r)
			if len(batch) >= 64 {
				j.flushBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (j *Journal) flushBatch(batch []Record) {
	if len(batch) == 0 {
		return
	}

	err := dbopen.RunTx(context.Background(), j.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO builds (id, started_at, spec_path, template_path, out_path,
			                    header_sheet, steps_sheet, steps, status, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range batch {
			if _, err := stmt.Exec(r.ID, r.StartedAt.Unix(), r.SpecPath, r.TemplatePath,
				r.OutPath, r.HeaderSheet, r.StepsSheet, r.Steps, r.Status, r.Error); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		slog.Error("journal: flush batch", "records", len(batch), "error", err)
	}
}
