package jobstore

import (
	"errors"
	"time"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed}
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrInvalidTransition is returned when a job is not in the state an update expects.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Job is one recorded pipeline run.
type Job struct {
	ID           string
	Source       string
	Language     string
	Provider     string
	Status       Status
	ErrorCode    string
	ErrorMessage string
	SegmentCount int
	ChunkCount   int
	// Score, QualityLevel and GatePassed are set once the job completes.
	Score            *float64
	QualityLevel     string
	GatePassed       *bool
	CategoryFailures []string
	OutputPath       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	StartedAt        *time.Time
	FinishedAt       *time.Time
}

// Elapsed returns how long the job ran, or zero before it finished.
func (j *Job) Elapsed() time.Duration {
	if j == nil || j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// Completion carries the outcome written by Complete.
type Completion struct {
	SegmentCount     int
	ChunkCount       int
	Score            float64
	QualityLevel     string
	GatePassed       bool
	CategoryFailures []string
	OutputPath       string
}

// ListOptions filters List results.
type ListOptions struct {
	Statuses []Status
	// Limit caps the number of rows; zero means no cap.
	Limit int
}
