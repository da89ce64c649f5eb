package worker

import (
	"context"
	"log"
	"time"

	domainqueue "sqlgym/internal/domain/queue"
	"sqlgym/internal/domain/repository"
	platformqueue "sqlgym/internal/platform/queue"
)

// PrimaryQueue is what the sweeper needs from the primary side: enqueue plus
// a reachability probe.
type PrimaryQueue interface {
	domainqueue.JobQueue
	Ping(ctx context.Context) error
}

type SweeperConfig struct {
	Interval time.Duration
	StaleAge time.Duration
}

// Sweeper drains the fallback table back into normal processing once the
// primary queue recovers, and executes records inline while it is still
// down. Either way a fallback job always moves toward a terminal state.
type Sweeper struct {
	primary      PrimaryQueue
	fallbackRepo repository.FallbackJobRepository
	resultRepo   repository.ExecutionResultRepository
	processor    *Processor
	cfg          SweeperConfig
}

func NewSweeper(
	primary PrimaryQueue,
	fallbackRepo repository.FallbackJobRepository,
	resultRepo repository.ExecutionResultRepository,
	processor *Processor,
	cfg SweeperConfig,
) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.StaleAge <= 0 {
		cfg.StaleAge = 5 * time.Minute
	}
	return &Sweeper{
		primary:      primary,
		fallbackRepo: fallbackRepo,
		resultRepo:   resultRepo,
		processor:    processor,
		cfg:          cfg,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	log.Printf("INFO: Recovery sweeper started (interval %s).", s.cfg.Interval)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("INFO: Recovery sweeper stopping...")
			return
		case <-ticker.C:
			if pending, err := s.fallbackRepo.CountPending(ctx); err == nil && pending > 0 {
				log.Printf("INFO: Fallback backlog: %d pending jobs.", pending)
			}
			if n, err := s.Drain(ctx); err != nil {
				log.Printf("ERROR: Sweeper drain failed: %v", err)
			} else if n > 0 {
				log.Printf("INFO: Sweeper recovered %d fallback jobs.", n)
			}
		}
	}
}

// Drain claims pending fallback records in creation order and routes each
// back into processing. Records re-enqueued on the primary stay in
// processing until the worker that writes the result completes them; records
// executed inline are completed here. Returns how many records moved.
func (s *Sweeper) Drain(ctx context.Context) (int, error) {
	if released, err := s.fallbackRepo.ReleaseStale(ctx, s.cfg.StaleAge); err != nil {
		log.Printf("ERROR: Sweeper failed to release stale records: %v", err)
	} else if released > 0 {
		log.Printf("WARN: Sweeper released %d stale processing records back to pending.", released)
	}

	primaryUp := s.primary.Ping(ctx) == nil

	count := 0
	for {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		default:
		}

		rec, err := s.fallbackRepo.ClaimNext(ctx)
		if err != nil {
			return count, err
		}
		if rec == nil {
			return count, nil
		}

		job, err := platformqueue.JobFromFallbackRecord(rec)
		if err != nil {
			log.Printf("ERROR: Sweeper dropping corrupt fallback record %s: %v", rec.ID, err)
			if mErr := s.fallbackRepo.MarkFailed(ctx, rec.ID); mErr != nil {
				log.Printf("ERROR: Sweeper failed to fail fallback record %s: %v", rec.ID, mErr)
			}
			continue
		}

		// A record whose submission already has a result is finished work;
		// re-executing it would violate the one-result invariant.
		done, err := s.resultRepo.ResultExists(ctx, job.SubmissionID)
		if err != nil {
			return count, err
		}
		if done {
			if err := s.fallbackRepo.MarkCompleted(ctx, rec.ID); err != nil {
				log.Printf("ERROR: Sweeper failed to complete finished record %s: %v", rec.ID, err)
			}
			count++
			continue
		}

		if primaryUp {
			if err := s.primary.Enqueue(ctx, job); err != nil {
				log.Printf("WARN: Primary queue lost mid-drain, finishing inline: %v", err)
				primaryUp = false
			} else {
				count++
				continue
			}
		}

		if err := s.processor.Process(ctx, job); err != nil {
			// Record stays in processing; the stale release retries it.
			log.Printf("ERROR: Sweeper failed to process fallback job %s inline: %v", job.ID, err)
			continue
		}
		count++
	}
}
