// Package runstore persists canonical runs over two interchangeable engines:
// an embedded SQLite file and a networked Postgres server. Both produce
// identical observable results; queries are built once with `?` placeholders
// and rendered into the engine's binding style by sqlx in a single step.
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hochfrequenz/ci-relay/internal/domain"
)

// Store provides run persistence over one of the two engines.
type Store struct {
	db      *sqlx.DB
	backend Backend
}

// Backend reports which engine this store runs on.
func (s *Store) Backend() Backend { return s.backend }

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Insert stores a new run and returns its assigned id. Every call creates a
// new row; repeated events for the same commit are kept append-only.
func (s *Store) Insert(ctx context.Context, f domain.RunFields) (int64, error) {
	now := time.Now().UTC()
	query := s.db.Rebind(`
		INSERT INTO runs (repo, workflow, branch, commit_sha, status, run_url, raw_payload, logs, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	args := []any{f.Repo, f.Workflow, f.Branch, f.CommitSHA, f.Status, f.RunURL, []byte(f.RawPayload), f.Logs, now, now}

	// Autoincrement mechanics are the one place the engines differ.
	if s.backend == BackendPostgres {
		var id int64
		err := s.db.QueryRowxContext(ctx, query+" RETURNING id", args...).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("insert run: %w", err)
		}
		return id, nil
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

const runColumns = `id, repo, workflow, branch, commit_sha, status, run_url, raw_payload, logs, created_at, updated_at`

// GetByID returns the run with the given id, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.Run, error) {
	var run domain.Run
	query := s.db.Rebind(`SELECT ` + runColumns + ` FROM runs WHERE id = ?`)
	err := s.db.GetContext(ctx, &run, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}
	return &run, nil
}

// List returns runs matching the filter, most recent first.
func (s *Store) List(ctx context.Context, f domain.Filter) ([]domain.Run, error) {
	where, args := buildWhere(f)
	query := `SELECT ` + runColumns + ` FROM runs` + where + ` ORDER BY created_at DESC, id DESC`

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	runs := []domain.Run{}
	if err := s.db.SelectContext(ctx, &runs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Count returns the number of runs matching the filter, ignoring pagination.
func (s *Store) Count(ctx context.Context, f domain.Filter) (int, error) {
	where, args := buildWhere(f)
	var count int
	query := s.db.Rebind(`SELECT COUNT(*) FROM runs` + where)
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return count, nil
}

// Update applies a partial patch of status and logs. Nil patch fields keep
// the stored value; updated_at is always refreshed.
func (s *Store) Update(ctx context.Context, id int64, p domain.Patch) error {
	query := s.db.Rebind(`
		UPDATE runs
		   SET status = COALESCE(?, status),
		       logs = COALESCE(?, logs),
		       updated_at = ?
		 WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, p.Status, p.Logs, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update run %d: %w", id, err)
	}
	return nil
}

// Stats returns the aggregate dashboard numbers: total rows, failures within
// the trailing 7 days, and the five workflows with the most failures.
func (s *Store) Stats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{TopFailingWorkflows: []domain.WorkflowFailures{}}

	if err := s.db.GetContext(ctx, &stats.TotalRuns, `SELECT COUNT(*) FROM runs`); err != nil {
		return nil, fmt.Errorf("stats total: %w", err)
	}

	sevenDaysAgo := time.Now().UTC().AddDate(0, 0, -7)
	query := s.db.Rebind(`SELECT COUNT(*) FROM runs WHERE status = 'failure' AND created_at >= ?`)
	if err := s.db.GetContext(ctx, &stats.FailuresLast7Days, query, sevenDaysAgo); err != nil {
		return nil, fmt.Errorf("stats failures: %w", err)
	}

	// Secondary sort on workflow keeps ties deterministic on both engines.
	err := s.db.SelectContext(ctx, &stats.TopFailingWorkflows, `
		SELECT workflow, COUNT(*) AS count
		  FROM runs
		 WHERE status = 'failure'
		 GROUP BY workflow
		 ORDER BY count DESC, workflow ASC
		 LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("stats top failing: %w", err)
	}
	return stats, nil
}

// buildWhere renders the filter as a growing conjunction in a fixed field
// order, using `?` placeholders that Rebind later maps to the engine's style.
func buildWhere(f domain.Filter) (string, []any) {
	var clauses []string
	var args []any

	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.Repo != "" {
		clauses = append(clauses, "repo = ?")
		args = append(args, f.Repo)
	}
	if f.Search != "" {
		clauses = append(clauses, "(branch LIKE ? OR commit_sha LIKE ?)")
		needle := "%" + f.Search + "%"
		args = append(args, needle, needle)
	}
	if f.StartDate != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, f.StartDate.UTC())
	}
	if f.EndDate != nil {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, f.EndDate.UTC())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
