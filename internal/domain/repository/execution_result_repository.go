package repository

import (
	"context"
	"database/sql"
	"errors"

	"sqlgym/internal/common"
	"sqlgym/internal/domain/model"
)

type ExecutionResultRepository interface {
	// CreateResult inserts the terminal result for a submission. It returns
	// false when a result already exists: results are write-once, and a
	// duplicate delivery must not overwrite the first outcome.
	CreateResult(ctx context.Context, res *model.ExecutionResult) (inserted bool, err error)
	GetResultBySubmissionID(ctx context.Context, submissionID string) (*model.ExecutionResult, error)
	ResultExists(ctx context.Context, submissionID string) (bool, error)
}

type PgExecutionResultRepository struct {
	db *sql.DB
}

func NewPgExecutionResultRepository(db *sql.DB) *PgExecutionResultRepository {
	return &PgExecutionResultRepository{db: db}
}

func (r *PgExecutionResultRepository) CreateResult(ctx context.Context, res *model.ExecutionResult) (bool, error) {
	query := `INSERT INTO execution_results
		(id, submission_id, verdict, passed, execution_time_ms, rows_returned, error_message, validation_detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (submission_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query,
		res.ID, res.SubmissionID, res.Verdict, res.Passed, res.ExecutionTimeMs,
		res.RowsReturned, res.ErrorMessage, res.ValidationDetail, res.CreatedAt,
	)
	if err != nil {
		return false, common.Errorf("failed to insert execution result for submission %s: %w", res.SubmissionID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, common.Errorf("failed to read rows affected for submission %s: %w", res.SubmissionID, err)
	}
	return affected == 1, nil
}

func (r *PgExecutionResultRepository) GetResultBySubmissionID(ctx context.Context, submissionID string) (*model.ExecutionResult, error) {
	query := `SELECT id, submission_id, verdict, passed, execution_time_ms, rows_returned, error_message, validation_detail, created_at
		FROM execution_results WHERE submission_id = $1`
	res := &model.ExecutionResult{}
	err := r.db.QueryRowContext(ctx, query, submissionID).Scan(
		&res.ID, &res.SubmissionID, &res.Verdict, &res.Passed, &res.ExecutionTimeMs,
		&res.RowsReturned, &res.ErrorMessage, &res.ValidationDetail, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.Errorf("failed to fetch result for submission %s: %w", submissionID, err)
	}
	return res, nil
}

func (r *PgExecutionResultRepository) ResultExists(ctx context.Context, submissionID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM execution_results WHERE submission_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, submissionID).Scan(&exists); err != nil {
		return false, common.Errorf("failed to check result existence for submission %s: %w", submissionID, err)
	}
	return exists, nil
}
