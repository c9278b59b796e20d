// Package runlog records command runs in a local DuckDB file so that
// batch history can be inspected later with the runs command.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/cloudconv/internal/logging"
)

var log = logging.Component("runlog")

const schema = `
CREATE SEQUENCE IF NOT EXISTS runs_id_seq;
CREATE TABLE IF NOT EXISTS runs (
	id          BIGINT PRIMARY KEY DEFAULT nextval('runs_id_seq'),
	started_at  TIMESTAMP NOT NULL,
	command     VARCHAR NOT NULL,
	root        VARCHAR NOT NULL,
	total       INTEGER NOT NULL,
	succeeded   INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	output      VARCHAR,
	duration_ms BIGINT NOT NULL
)`

// RunRecord is one command run.
type RunRecord struct {
	ID        int64
	StartedAt time.Time
	Command   string
	Root      string
	Total     int
	Succeeded int
	Failed    int
	Output    string
	Duration  time.Duration
}

// Store persists run records.
//
// Store is safe for concurrent use.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	closed bool
}

// Open opens (or creates) the run log at path. An empty path opens an
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// Record inserts one run record.
func (s *Store) Record(ctx context.Context, r RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, command, root, total, succeeded, failed, output, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt, r.Command, r.Root, r.Total, r.Succeeded, r.Failed, r.Output,
		r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	log.Debug("recorded run", "command", r.Command, "root", r.Root,
		"succeeded", r.Succeeded, "failed", r.Failed)
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, command, root, total, succeeded, failed, output, duration_ms
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var durationMs int64
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Command, &r.Root,
			&r.Total, &r.Succeeded, &r.Failed, &r.Output, &durationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(durationMs) * time.Millisecond
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}
