package model

import "time"

type Verdict string

const (
	VerdictAccepted          Verdict = "accepted"
	VerdictWrongAnswer       Verdict = "wrong_answer"
	VerdictSuspectedHardcode Verdict = "suspected_hardcode"
	VerdictTimeLimitExceeded Verdict = "time_limit_exceeded"
	VerdictRuntimeError      Verdict = "runtime_error"
	VerdictSystemError       Verdict = "system_error"
)

// ExecutionResult is the terminal outcome of one Submission. Exactly one row
// per submission, written once by whichever consumer gets there first.
type ExecutionResult struct {
	ID               string    `json:"id"`
	SubmissionID     string    `json:"submission_id"`
	Verdict          Verdict   `json:"verdict"`
	Passed           bool      `json:"passed"`
	ExecutionTimeMs  int       `json:"execution_time_ms"`
	RowsReturned     int       `json:"rows_returned"`
	ErrorMessage     *string   `json:"error_message,omitempty"`
	ValidationDetail *string   `json:"validation_detail,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
