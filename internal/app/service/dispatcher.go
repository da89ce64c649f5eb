package service

import (
	"context"
	"log"
	"strings"
	"time"

	"sqlgym/internal/common"
	"sqlgym/internal/domain/model"
	domainqueue "sqlgym/internal/domain/queue"
	"sqlgym/internal/domain/repository"

	"github.com/google/uuid"
)

// WorkerLiveness is the dispatcher's view of the liveness monitor: a single
// cheap read. known=false means the signal itself is unavailable (primary
// queue down) and must be treated as not live.
type WorkerLiveness interface {
	IsWorkerLive(ctx context.Context) (live bool, known bool)
}

// InlineProcessor executes a job synchronously in-process. The worker
// package's Processor satisfies this.
type InlineProcessor interface {
	Process(ctx context.Context, job *model.Job) error
}

type DispatcherConfig struct {
	MaxSQLLength   int
	EnqueueTimeout time.Duration
	// Limits applied when a problem does not set its own.
	DefaultRuntimeLimitMs int
	DefaultMemoryLimitKb  int
}

// DispatcherService is the intake side of the pipeline. Per submission it
// produces exactly one of three outcomes: a job on the primary queue, a
// fallback record, or a synchronous inline execution.
type DispatcherService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	primary        domainqueue.JobQueue
	fallback       domainqueue.JobQueue
	liveness       WorkerLiveness
	processor      InlineProcessor
	cfg            DispatcherConfig
}

func NewDispatcherService(
	subRepo repository.SubmissionRepository,
	probRepo repository.ProblemRepository,
	primary domainqueue.JobQueue,
	fallback domainqueue.JobQueue,
	liveness WorkerLiveness,
	processor InlineProcessor,
	cfg DispatcherConfig,
) *DispatcherService {
	if cfg.MaxSQLLength <= 0 {
		cfg.MaxSQLLength = 16384
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 2 * time.Second
	}
	if cfg.DefaultRuntimeLimitMs <= 0 {
		cfg.DefaultRuntimeLimitMs = 5000
	}
	if cfg.DefaultMemoryLimitKb <= 0 {
		cfg.DefaultMemoryLimitKb = 65536
	}
	return &DispatcherService{
		submissionRepo: subRepo,
		problemRepo:    probRepo,
		primary:        primary,
		fallback:       fallback,
		liveness:       liveness,
		processor:      processor,
		cfg:            cfg,
	}
}

// Submit validates the request, persists the submission, and routes a job.
// The caller is never blocked by queue unavailability: a dead primary queue
// degrades to a durable fallback record, and a dead worker pool degrades to
// inline execution.
func (s *DispatcherService) Submit(ctx context.Context, userID, problemID, sqlText string) (string, error) {
	if userID == "" || problemID == "" {
		return "", common.Errorf("user and problem are required: %w", common.ErrInvalidInput)
	}
	if strings.TrimSpace(sqlText) == "" {
		return "", common.Errorf("sql text is empty: %w", common.ErrInvalidInput)
	}
	if len(sqlText) > s.cfg.MaxSQLLength {
		return "", common.Errorf("sql text exceeds %d bytes: %w", s.cfg.MaxSQLLength, common.ErrInvalidInput)
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return "", common.Errorf("problem %s: %w", problemID, err)
	}

	submission := &model.Submission{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProblemID: problem.ID,
		SQLText:   sqlText,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.submissionRepo.CreateSubmission(ctx, submission); err != nil {
		return "", common.Errorf("failed to persist submission: %w: %w", common.ErrStorageUnavailable, err)
	}

	timeoutMs := problem.RuntimeLimitMs
	if timeoutMs <= 0 {
		timeoutMs = s.cfg.DefaultRuntimeLimitMs
	}
	memoryKb := problem.MemoryLimitKb
	if memoryKb <= 0 {
		memoryKb = s.cfg.DefaultMemoryLimitKb
	}
	job := &model.Job{
		ID:            uuid.NewString(),
		SubmissionID:  submission.ID,
		ProblemID:     problem.ID,
		TimeoutMs:     timeoutMs,
		MemoryLimitKb: memoryKb,
		EnqueuedAt:    time.Now().UTC(),
	}

	live, known := s.liveness.IsWorkerLive(ctx)
	if !known {
		log.Printf("WARN: Worker liveness unknown (primary queue unreachable?); executing submission %s inline.", submission.ID)
	}
	if !live || !known {
		// No live consumer: enqueueing would park the job behind a dead
		// pool. Execute synchronously on the same path the worker uses.
		if err := s.processor.Process(ctx, job); err != nil {
			// The job must land somewhere durable or the submission would
			// poll pending forever. The sweeper recovers the record.
			log.Printf("WARN: Inline execution failed for submission %s, writing fallback record: %v", submission.ID, err)
			if fbErr := s.fallback.Enqueue(ctx, job); fbErr != nil {
				return "", common.Errorf("inline execution and fallback enqueue both failed for submission %s: %w", submission.ID, fbErr)
			}
		}
		return submission.ID, nil
	}

	enqueueCtx, cancel := context.WithTimeout(ctx, s.cfg.EnqueueTimeout)
	defer cancel()
	if err := s.primary.Enqueue(enqueueCtx, job); err != nil {
		log.Printf("WARN: Primary enqueue failed for submission %s, writing fallback record: %v", submission.ID, err)
		if fbErr := s.fallback.Enqueue(ctx, job); fbErr != nil {
			return "", common.Errorf("fallback enqueue failed for submission %s: %w", submission.ID, fbErr)
		}
	}
	log.Printf("INFO: Job %s %s (submission %s)", job.ID, model.JobStatusPending, submission.ID)
	return submission.ID, nil
}
