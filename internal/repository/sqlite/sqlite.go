// Package sqlite persists diagnostic run history. Intermittent display
// failures are diagnosed by comparing runs over time, so each report is
// stored whole alongside the indexed summary columns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kiya956/drm-test/internal/domain"

	_ "modernc.org/sqlite"
)

// Repository stores run reports in a SQLite database.
type Repository struct {
	db *sql.DB
}

// Run is one stored run summary.
type Run struct {
	ID        int64
	StartedAt time.Time
	Duration  time.Duration
	Flow      domain.Flow
	ExitCode  int
	Fails     int
	Warns     int
}

// New opens (creating if needed) the run-history database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		flow TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		fails INTEGER NOT NULL,
		warns INTEGER NOT NULL,
		report JSON NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveReport stores one report and returns its run ID.
func (r *Repository) SaveReport(ctx context.Context, report *domain.Report) (int64, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal report: %w", err)
	}

	counts := report.Counts()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (started_at, duration_ms, flow, exit_code, fails, warns, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		report.StartedAt.UTC(),
		report.Duration.Milliseconds(),
		string(report.Flow),
		report.ExitCode(),
		counts[domain.SeverityFail],
		counts[domain.SeverityWarn],
		data,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return res.LastInsertId()
}

// ListRuns returns the most recent run summaries, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, started_at, duration_ms, flow, exit_code, fails, warns
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			flow       string
			durationMS int64
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &durationMS, &flow, &run.ExitCode, &run.Fails, &run.Warns); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		run.Flow = domain.Flow(flow)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetReport loads one stored report by run ID.
func (r *Repository) GetReport(ctx context.Context, id int64) (*domain.Report, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %d: %w", id, err)
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}
