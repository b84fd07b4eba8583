package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cueforge/internal/services"
)

// NewJob inserts a pending job and returns it.
func (s *Store) NewJob(ctx context.Context, source, language, provider string) (*Job, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, services.Wrap(services.ErrValidation, "jobstore", "new job", "source is required", nil)
	}
	id := uuid.NewString()
	now := formatTime(time.Now())
	if _, err := s.exec(ctx,
		`INSERT INTO jobs (id, source, language, provider, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, source, strings.TrimSpace(language), strings.TrimSpace(provider), StatusPending, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a job by id. A missing job returns (nil, nil).
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByPrefix resolves a job from the first characters of its id, which is
// what users type on the command line. Ambiguous prefixes are an error.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) (*Job, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, services.Wrap(services.ErrValidation, "jobstore", "find", "empty job id", nil)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id LIKE ? ESCAPE '\' ORDER BY created_at LIMIT 2`,
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	defer rows.Close()

	var matches []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		matches = append(matches, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, services.Wrap(services.ErrNotFound, "jobstore", "find", fmt.Sprintf("no job matches %q", prefix), nil)
	case 1:
		return matches[0], nil
	default:
		return nil, services.Wrap(services.ErrValidation, "jobstore", "find", fmt.Sprintf("job id %q is ambiguous", prefix), nil)
	}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// List returns jobs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(opts.Statuses)+1)
	if len(opts.Statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(opts.Statuses)) + `)`
		for _, st := range opts.Statuses {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at DESC, id`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkRunning moves a pending job to running.
func (s *Store) MarkRunning(ctx context.Context, id string) error {
	now := formatTime(time.Now())
	return s.transition(ctx, id, []Status{StatusPending},
		`UPDATE jobs SET status = ?, started_at = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusRunning, now, now, id, StatusPending)
}

// Complete records a successful run.
func (s *Store) Complete(ctx context.Context, id string, c Completion) error {
	now := formatTime(time.Now())
	return s.transition(ctx, id, []Status{StatusRunning},
		`UPDATE jobs
         SET status = ?, segment_count = ?, chunk_count = ?, score = ?, quality_level = ?,
             gate_passed = ?, category_failures = ?, output_path = ?,
             error_code = NULL, error_message = NULL, finished_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted, c.SegmentCount, c.ChunkCount, c.Score, nullableString(c.QualityLevel),
		boolToInt(c.GatePassed), nullableString(strings.Join(c.CategoryFailures, ",")), nullableString(c.OutputPath),
		now, now, id, StatusRunning)
}

// Fail records a terminal error with its taxonomy code. Pending jobs may fail
// directly, for example when chunk preparation is rejected up front.
func (s *Store) Fail(ctx context.Context, id string, cause error) error {
	code := services.Code(cause)
	if code == "" {
		code = services.CodeInternal
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	now := formatTime(time.Now())
	return s.transition(ctx, id, []Status{StatusPending, StatusRunning},
		`UPDATE jobs SET status = ?, error_code = ?, error_message = ?, finished_at = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusFailed, code, nullableString(msg), now, now, id, StatusPending, StatusRunning)
}

func (s *Store) transition(ctx context.Context, id string, from []Status, query string, args ...any) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return services.Wrap(services.ErrNotFound, "jobstore", "update", fmt.Sprintf("job %s", id), nil)
	}
	return fmt.Errorf("%w: job %s is %s, expected one of %v", ErrInvalidTransition, id, job.Status, from)
}

// ActiveIDs returns the ids of running jobs.
func (s *Store) ActiveIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM jobs WHERE status = ?`, StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("active jobs: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// ResetStuck fails jobs left running by a process that exited without
// recording an outcome. Jobs in excluded are left alone.
func (s *Store) ResetStuck(ctx context.Context, excluded map[string]struct{}) (int64, error) {
	running, err := s.ActiveIDs(ctx)
	if err != nil {
		return 0, err
	}
	now := formatTime(time.Now())
	var count int64
	for id := range running {
		if _, skip := excluded[id]; skip {
			continue
		}
		res, err := s.exec(ctx,
			`UPDATE jobs SET status = ?, error_code = ?, error_message = ?, finished_at = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusFailed, services.CodeInternal, "interrupted before completion", now, now, id, StatusRunning)
		if err != nil {
			return count, fmt.Errorf("reset stuck job %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		count += n
	}
	return count, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
