// Package history keeps a small SQLite database of past runs under the
// output root. It is informational only: nothing in a run depends on it.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/gdcfetch/internal/dbx"
	"github.com/dmitrijs2005/gdcfetch/internal/history/migrations"
	"github.com/dmitrijs2005/gdcfetch/internal/models"
	"github.com/pressly/goose/v3"
)

var ErrRunNotFound = errors.New("run not found")

const timeLayout = time.RFC3339Nano

// RunRecord is one row of the history.
type RunRecord struct {
	RunID            string
	StartedAt        time.Time
	FinishedAt       time.Time // zero while the run is in progress or if it crashed
	Mode             string
	Input            string
	SessionLog       string
	Counts           map[models.Status]int
	BytesTransferred int64
	Interrupted      bool
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := dbx.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history migrations: %w", err)
	}
	return NewStore(db), nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Start records a run that has begun.
func (s *Store) Start(ctx context.Context, run RunRecord) error {
	query := `INSERT INTO runs (run_id, started_at, mode, input, session_log)
		 VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		run.RunID, run.StartedAt.UTC().Format(timeLayout), run.Mode, run.Input, run.SessionLog)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Finish stores the final figures of a run and replaces its status counts.
func (s *Store) Finish(ctx context.Context, sum *models.RunSummary) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `UPDATE runs SET finished_at = ?, bytes_transferred = ?, interrupted = ?
			 WHERE run_id = ?`

		res, err := tx.ExecContext(ctx, query,
			sum.FinishedAt.UTC().Format(timeLayout), sum.BytesTransferred, sum.Interrupted, sum.RunID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, sum.RunID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM run_counts WHERE run_id = ?`, sum.RunID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		statuses := make([]string, 0, len(sum.Counts))
		for st := range sum.Counts {
			statuses = append(statuses, string(st))
		}
		sort.Strings(statuses)

		for _, st := range statuses {
			_, err := tx.ExecContext(ctx, `INSERT INTO run_counts (run_id, status, count) VALUES (?, ?, ?)`,
				sum.RunID, st, sum.Counts[models.Status(st)])
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	query := `SELECT run_id, started_at, finished_at, mode, input, session_log, bytes_transferred, interrupted
		 FROM runs
		 ORDER BY started_at DESC
		 LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			r           RunRecord
			started     string
			finished    sql.NullString
			interrupted bool
		)
		if err := rows.Scan(&r.RunID, &started, &finished, &r.Mode, &r.Input, &r.SessionLog, &r.BytesTransferred, &interrupted); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.Interrupted = interrupted
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", r.RunID, err)
		}
		if finished.Valid {
			if r.FinishedAt, err = time.Parse(timeLayout, finished.String); err != nil {
				return nil, fmt.Errorf("run %s: bad finished_at: %w", r.RunID, err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run rows: %w", err)
	}

	for i := range out {
		counts, err := s.counts(ctx, out[i].RunID)
		if err != nil {
			return nil, err
		}
		out[i].Counts = counts
	}
	return out, nil
}

func (s *Store) counts(ctx context.Context, runID string) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, count FROM run_counts WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make(map[models.Status]int)
	for rows.Next() {
		var st string
		var c int
		if err := rows.Scan(&st, &c); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		out[models.Status(st)] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate count rows: %w", err)
	}
	return out, nil
}
