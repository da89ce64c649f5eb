package service

import (
	"context"
	"errors"

	"sqlgym/internal/common"
	"sqlgym/internal/domain/repository"
)

const (
	ResultStatusPending   = "pending"
	ResultStatusCompleted = "completed"
)

// ResultResponse is what the polling client sees. While no terminal result
// exists the status is pending and everything else is omitted.
type ResultResponse struct {
	SubmissionID     string  `json:"submission_id"`
	Status           string  `json:"status"`
	Verdict          string  `json:"verdict,omitempty"`
	Passed           *bool   `json:"passed,omitempty"`
	ExecutionTimeMs  *int    `json:"execution_time_ms,omitempty"`
	RowsReturned     *int    `json:"rows_returned,omitempty"`
	ErrorMessage     *string `json:"error_message,omitempty"`
	ValidationDetail *string `json:"validation_detail,omitempty"`
}

type ResultService struct {
	submissionRepo repository.SubmissionRepository
	resultRepo     repository.ExecutionResultRepository
}

func NewResultService(subRepo repository.SubmissionRepository, resultRepo repository.ExecutionResultRepository) *ResultService {
	return &ResultService{submissionRepo: subRepo, resultRepo: resultRepo}
}

func (s *ResultService) GetResult(ctx context.Context, submissionID string) (*ResultResponse, error) {
	if submissionID == "" {
		return nil, common.Errorf("submission id is required: %w", common.ErrInvalidInput)
	}
	if _, err := s.submissionRepo.GetSubmissionByID(ctx, submissionID); err != nil {
		return nil, err
	}

	res, err := s.resultRepo.GetResultBySubmissionID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &ResultResponse{SubmissionID: submissionID, Status: ResultStatusPending}, nil
		}
		return nil, err
	}

	return &ResultResponse{
		SubmissionID:     res.SubmissionID,
		Status:           ResultStatusCompleted,
		Verdict:          string(res.Verdict),
		Passed:           &res.Passed,
		ExecutionTimeMs:  &res.ExecutionTimeMs,
		RowsReturned:     &res.RowsReturned,
		ErrorMessage:     res.ErrorMessage,
		ValidationDetail: res.ValidationDetail,
	}, nil
}
