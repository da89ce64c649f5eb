package queue

import (
	"context"
	"encoding/json"
	"time"

	"sqlgym/internal/common"
	"sqlgym/internal/domain/model"
	"sqlgym/internal/domain/repository"

	"github.com/google/uuid"
)

// FallbackQueue is the durable JobQueue backed by the fallback_jobs table.
// The Dispatcher routes here when Redis is unreachable; writes must succeed
// independently of Redis health.
type FallbackQueue struct {
	repo repository.FallbackJobRepository
}

func NewFallbackQueue(repo repository.FallbackJobRepository) *FallbackQueue {
	return &FallbackQueue{repo: repo}
}

func (q *FallbackQueue) Enqueue(ctx context.Context, job *model.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return common.Errorf("failed to marshal job %s for fallback: %w", job.ID, err)
	}
	rec := &model.FallbackRecord{
		ID:        uuid.NewString(),
		JobID:     job.ID,
		Payload:   payload,
		Status:    model.FallbackStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := q.repo.CreateRecord(ctx, rec); err != nil {
		return common.Errorf("%w: %w", common.ErrStorageUnavailable, err)
	}
	return nil
}

// Dequeue claims the oldest pending record. It does not block; wait is
// ignored because the table is polled, not subscribed to.
func (q *FallbackQueue) Dequeue(ctx context.Context, _ time.Duration) (*model.Job, error) {
	rec, err := q.repo.ClaimNext(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	job, err := JobFromFallbackRecord(rec)
	if err != nil {
		if mErr := q.repo.MarkFailed(ctx, rec.ID); mErr != nil {
			return nil, common.Errorf("failed to fail corrupt fallback record %s: %w", rec.ID, mErr)
		}
		return nil, err
	}
	return job, nil
}

// JobFromFallbackRecord decodes the mirrored job and tags it with the record
// ID so the consumer that writes the terminal result can close the record.
func JobFromFallbackRecord(rec *model.FallbackRecord) (*model.Job, error) {
	var job model.Job
	if err := json.Unmarshal(rec.Payload, &job); err != nil {
		return nil, common.Errorf("corrupt fallback payload for job %s: %w", rec.JobID, err)
	}
	recID := rec.ID
	job.FallbackID = &recID
	return &job, nil
}
