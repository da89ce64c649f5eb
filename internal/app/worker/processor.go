package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"sqlgym/internal/app/sandbox"
	"sqlgym/internal/app/validator"
	"sqlgym/internal/common"
	"sqlgym/internal/domain/model"
	"sqlgym/internal/domain/repository"

	"github.com/google/uuid"
)

// Processor executes one job end to end: sandbox run, validation, terminal
// result write. It is the single execution path shared by the worker loop,
// the dispatcher's inline fallback, and the recovery sweeper, so all three
// inherit the same idempotence and write-once guarantees.
type Processor struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	resultRepo     repository.ExecutionResultRepository
	fallbackRepo   repository.FallbackJobRepository
	executor       *sandbox.Executor
	validator      *validator.Validator
}

func NewProcessor(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	resultRepo repository.ExecutionResultRepository,
	fallbackRepo repository.FallbackJobRepository,
	executor *sandbox.Executor,
	v *validator.Validator,
) *Processor {
	return &Processor{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		resultRepo:     resultRepo,
		fallbackRepo:   fallbackRepo,
		executor:       executor,
		validator:      v,
	}
}

// Process runs a job to a terminal state. Re-delivery is expected (the
// primary queue is at-least-once, the sweeper may race a worker poll), so it
// checks for an existing result before executing and writes the result with
// an insert that loses quietly to a concurrent first writer.
func (p *Processor) Process(ctx context.Context, job *model.Job) error {
	done, err := p.resultRepo.ResultExists(ctx, job.SubmissionID)
	if err != nil {
		return common.Errorf("failed idempotency check for submission %s: %w", job.SubmissionID, err)
	}
	if done {
		log.Printf("INFO: Job %s already has a result for submission %s, skipping.", job.ID, job.SubmissionID)
		p.closeFallback(ctx, job)
		return nil
	}

	// Best-effort observability; correctness never depends on this status.
	log.Printf("INFO: Job %s %s (submission %s)", job.ID, model.JobStatusRunning, job.SubmissionID)

	result := p.executeJob(ctx, job)

	inserted, err := p.resultRepo.CreateResult(ctx, result)
	if err != nil {
		return common.Errorf("failed to persist result for submission %s: %w", job.SubmissionID, err)
	}
	if !inserted {
		log.Printf("WARN: Result for submission %s was already written by another consumer.", job.SubmissionID)
	}
	p.closeFallback(ctx, job)
	log.Printf("INFO: Job %s %s with verdict %s (submission %s)", job.ID, terminalJobStatus(result.Verdict), result.Verdict, job.SubmissionID)
	return nil
}

// executeJob always returns a terminal result. Sandbox and validation
// failures become verdicts, not errors; panics from a hostile edge case are
// contained as system_error so one bad job cannot kill the consumer loop.
func (p *Processor) executeJob(ctx context.Context, job *model.Job) (result *model.ExecutionResult) {
	result = &model.ExecutionResult{
		ID:           uuid.NewString(),
		SubmissionID: job.SubmissionID,
		CreatedAt:    time.Now().UTC(),
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic while processing job %s: %v", job.ID, r)
			result.Verdict = model.VerdictSystemError
			result.Passed = false
			msg := "internal error during execution"
			result.ErrorMessage = &msg
		}
	}()

	sub, err := p.submissionRepo.GetSubmissionByID(ctx, job.SubmissionID)
	if err != nil {
		return systemError(result, "submission not found: "+err.Error())
	}
	problem, err := p.problemRepo.FindProblemByID(ctx, job.ProblemID)
	if err != nil {
		return systemError(result, "problem not found: "+err.Error())
	}

	timeout := time.Duration(job.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = time.Duration(problem.RuntimeLimitMs) * time.Millisecond
	}
	memLimit := job.MemoryLimitKb
	if memLimit <= 0 {
		memLimit = problem.MemoryLimitKb
	}

	// Hash comparison needs every row; the cap only protects value-compared
	// problems, whose expected sets are small by construction.
	keepAllRows := problem.Expected.Hash != nil
	execRes, err := p.executor.Execute(ctx, problem.DatasetSQL, sub.SQLText, timeout, memLimit, keepAllRows)
	if err != nil {
		if errors.Is(err, sandbox.ErrTimeout) {
			result.Verdict = model.VerdictTimeLimitExceeded
			result.ExecutionTimeMs = int(timeout / time.Millisecond)
			msg := "query exceeded the " + timeout.String() + " time limit"
			result.ErrorMessage = &msg
			return result
		}
		result.Verdict = model.VerdictRuntimeError
		msg := err.Error()
		result.ErrorMessage = &msg
		return result
	}

	outcome := p.validator.Validate(sub.SQLText, execRes, problem)
	result.Verdict = outcome.Verdict
	result.Passed = outcome.Passed
	result.ExecutionTimeMs = int(execRes.Duration / time.Millisecond)
	result.RowsReturned = execRes.RowsReturned
	if outcome.Detail != "" {
		detail := outcome.Rule + ": " + outcome.Detail
		result.ValidationDetail = &detail
	}
	return result
}

// closeFallback completes the mirrored fallback record once the terminal
// result is durably written. Failures here are recoverable: the sweeper's
// stale release will retry the record and re-processing is a no-op.
func (p *Processor) closeFallback(ctx context.Context, job *model.Job) {
	if job.FallbackID == nil {
		return
	}
	if err := p.fallbackRepo.MarkCompleted(ctx, *job.FallbackID); err != nil {
		log.Printf("ERROR: Failed to complete fallback record %s for job %s: %v", *job.FallbackID, job.ID, err)
	}
}

func systemError(result *model.ExecutionResult, msg string) *model.ExecutionResult {
	result.Verdict = model.VerdictSystemError
	result.Passed = false
	result.ErrorMessage = &msg
	return result
}

func terminalJobStatus(v model.Verdict) string {
	switch v {
	case model.VerdictTimeLimitExceeded:
		return model.JobStatusTimedOut
	case model.VerdictSystemError, model.VerdictRuntimeError:
		return model.JobStatusFailed
	default:
		return model.JobStatusCompleted
	}
}
