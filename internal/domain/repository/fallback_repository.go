package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"sqlgym/internal/common"
	"sqlgym/internal/domain/model"
)

type FallbackJobRepository interface {
	CreateRecord(ctx context.Context, rec *model.FallbackRecord) error
	// ClaimNext atomically moves the oldest pending record to processing and
	// returns it. (nil, nil) when nothing is pending. A record is claimed by
	// at most one consumer.
	ClaimNext(ctx context.Context) (*model.FallbackRecord, error)
	MarkCompleted(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
	// ReleaseStale returns records stuck in processing longer than age back
	// to pending, so a consumer crash cannot strand them.
	ReleaseStale(ctx context.Context, age time.Duration) (int, error)
	CountPending(ctx context.Context) (int, error)
}

type PgFallbackJobRepository struct {
	db *sql.DB
}

func NewPgFallbackJobRepository(db *sql.DB) *PgFallbackJobRepository {
	return &PgFallbackJobRepository{db: db}
}

func (r *PgFallbackJobRepository) CreateRecord(ctx context.Context, rec *model.FallbackRecord) error {
	query := `INSERT INTO fallback_jobs (id, job_id, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, rec.ID, rec.JobID, string(rec.Payload), rec.Status, rec.CreatedAt)
	if err != nil {
		return common.Errorf("failed to insert fallback record for job %s: %w", rec.JobID, err)
	}
	return nil
}

func (r *PgFallbackJobRepository) ClaimNext(ctx context.Context) (*model.FallbackRecord, error) {
	query := `UPDATE fallback_jobs SET status = 'processing', processed_at = NOW()
		WHERE id = (
			SELECT id FROM fallback_jobs
			WHERE status = 'pending'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, job_id, payload, status, created_at, processed_at`
	rec := &model.FallbackRecord{}
	var payload string
	err := r.db.QueryRowContext(ctx, query).Scan(
		&rec.ID, &rec.JobID, &payload, &rec.Status, &rec.CreatedAt, &rec.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, common.Errorf("failed to claim fallback record: %w", err)
	}
	rec.Payload = []byte(payload)
	return rec, nil
}

func (r *PgFallbackJobRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, model.FallbackStatusCompleted)
}

func (r *PgFallbackJobRepository) MarkFailed(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, model.FallbackStatusFailed)
}

func (r *PgFallbackJobRepository) setStatus(ctx context.Context, id, status string) error {
	query := `UPDATE fallback_jobs SET status = $1, processed_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return common.Errorf("failed to mark fallback record %s %s: %w", id, status, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PgFallbackJobRepository) ReleaseStale(ctx context.Context, age time.Duration) (int, error) {
	query := `UPDATE fallback_jobs SET status = 'pending', processed_at = NULL
		WHERE status = 'processing' AND processed_at < NOW() - $1::interval`
	result, err := r.db.ExecContext(ctx, query, age.String())
	if err != nil {
		return 0, common.Errorf("failed to release stale fallback records: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, common.Errorf("failed to read released record count: %w", err)
	}
	return int(affected), nil
}

func (r *PgFallbackJobRepository) CountPending(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM fallback_jobs WHERE status = 'pending'`
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, common.Errorf("failed to count pending fallback records: %w", err)
	}
	return count, nil
}
