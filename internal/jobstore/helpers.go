package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const jobColumns = "id, source, language, provider, status, error_code, error_message, segment_count, chunk_count, score, quality_level, gate_passed, category_failures, output_path, created_at, updated_at, started_at, finished_at"

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job          Job
		statusStr    string
		errorCode    sql.NullString
		errorMessage sql.NullString
		score        sql.NullFloat64
		qualityLevel sql.NullString
		gatePassed   sql.NullInt64
		failures     sql.NullString
		outputPath   sql.NullString
		createdRaw   string
		updatedRaw   string
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&job.ID,
		&job.Source,
		&job.Language,
		&job.Provider,
		&statusStr,
		&errorCode,
		&errorMessage,
		&job.SegmentCount,
		&job.ChunkCount,
		&score,
		&qualityLevel,
		&gatePassed,
		&failures,
		&outputPath,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job.Status = Status(statusStr)
	job.ErrorCode = errorCode.String
	job.ErrorMessage = errorMessage.String
	job.QualityLevel = qualityLevel.String
	job.OutputPath = outputPath.String
	if score.Valid {
		v := score.Float64
		job.Score = &v
	}
	if gatePassed.Valid {
		v := gatePassed.Int64 != 0
		job.GatePassed = &v
	}
	if failures.String != "" {
		job.CategoryFailures = strings.Split(failures.String, ",")
	}
	job.CreatedAt, _ = parseTimeString(createdRaw)
	job.UpdatedAt, _ = parseTimeString(updatedRaw)
	if startedRaw.Valid {
		if t, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &t
		}
	}
	if finishedRaw.Valid {
		if t, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &t
		}
	}
	return &job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", count), ",")
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy repeats op while SQLite reports contention from concurrent
// batch jobs sharing the database.
func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
