package model

import "time"

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusTimedOut  = "timed_out"
)

// Job is one unit of scheduled SQL-validation work derived from a Submission.
// It travels as JSON, either on the Redis list or inside a fallback row, and
// lives in exactly one queue at a time.
type Job struct {
	ID            string    `json:"id"`
	SubmissionID  string    `json:"submission_id"`
	ProblemID     string    `json:"problem_id"`
	TimeoutMs     int       `json:"timeout_ms"`
	MemoryLimitKb int       `json:"memory_limit_kb"`
	// FallbackID is set when the job was recovered from the fallback table;
	// whoever writes the terminal result must close that record.
	FallbackID *string   `json:"fallback_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
