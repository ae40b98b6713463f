// Package runstore keeps a history of pipeline runs in a SQLite database.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Dataset    string
	Rows       int
	Features   int
	Horizon    int
	Accuracy   float64
	Precision  float64 // positive class
	Recall     float64 // positive class
	F1         float64 // positive class
	ROCAUC     float64 // NaN when the test split held one class
	ModelPath  string
}

// Store is a run history backed by SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT    PRIMARY KEY,
	started_at  TEXT    NOT NULL,
	finished_at TEXT    NOT NULL,
	dataset     TEXT    NOT NULL,
	n_rows      INTEGER NOT NULL,
	n_features  INTEGER NOT NULL,
	horizon     INTEGER NOT NULL,
	accuracy    REAL    NOT NULL,
	precision   REAL    NOT NULL,
	recall      REAL    NOT NULL,
	f1          REAL    NOT NULL,
	roc_auc     REAL,
	model_path  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at);
`

// Open opens or creates the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("runstore: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("runstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("runstore: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("runstore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts r.
func (s *Store) Record(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, dataset, n_rows, n_features, horizon,
			accuracy, precision, recall, f1, roc_auc, model_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
		r.Dataset, r.Rows, r.Features, r.Horizon,
		r.Accuracy, r.Precision, r.Recall, r.F1, nullFloat(r.ROCAUC), r.ModelPath,
	)
	if err != nil {
		return fmt.Errorf("runstore: record %s: %w", r.ID, err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, dataset, n_rows, n_features, horizon,
			accuracy, precision, recall, f1, roc_auc, model_path
		FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("runstore: query: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
			auc               sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &started, &finished, &r.Dataset, &r.Rows, &r.Features, &r.Horizon,
			&r.Accuracy, &r.Precision, &r.Recall, &r.F1, &auc, &r.ModelPath); err != nil {
			return nil, fmt.Errorf("runstore: scan: %w", err)
		}
		r.ROCAUC = math.NaN()
		if auc.Valid {
			r.ROCAUC = auc.Float64
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("runstore: run %s: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("runstore: run %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// nullFloat stores NaN as NULL.
func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
