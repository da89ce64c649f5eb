package model

import (
	"encoding/json"
	"time"
)

const (
	FallbackStatusPending    = "pending"
	FallbackStatusProcessing = "processing"
	FallbackStatusCompleted  = "completed"
	FallbackStatusFailed     = "failed"
)

// FallbackRecord is a durable mirror of a Job, written to Postgres when the
// Redis queue is unreachable at submit time. Claims are exclusive: the
// pending -> processing transition happens at most once per record.
type FallbackRecord struct {
	ID          string          `json:"id"`
	JobID       string          `json:"job_id"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}
