package worker

import (
	"context"
	"errors"
	"log"
	"time"

	domainqueue "sqlgym/internal/domain/queue"
	platformqueue "sqlgym/internal/platform/queue"

	"github.com/google/uuid"
)

type Config struct {
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
}

// Worker is one long-running consumer: it blocks on the primary queue, polls
// the fallback table as a safety net when the queue stays empty, and beats
// its heart on a fixed tick regardless of what a job is doing.
type Worker struct {
	id         string
	primary    domainqueue.JobQueue
	fallback   domainqueue.JobQueue
	processor  *Processor
	heartbeats *platformqueue.HeartbeatStore
	cfg        Config
}

func NewWorker(
	primary domainqueue.JobQueue,
	fallback domainqueue.JobQueue,
	processor *Processor,
	heartbeats *platformqueue.HeartbeatStore,
	cfg Config,
) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 3 * time.Second
	}
	return &Worker{
		id:         uuid.NewString(),
		primary:    primary,
		fallback:   fallback,
		processor:  processor,
		heartbeats: heartbeats,
		cfg:        cfg,
	}
}

func (w *Worker) ID() string { return w.id }

func (w *Worker) Run(ctx context.Context) {
	log.Printf("INFO: Worker %s started.", w.id)
	go w.heartbeatLoop(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("INFO: Worker %s stopping...", w.id)
			return
		default:
		}

		job, err := w.primary.Dequeue(ctx, w.cfg.PollInterval)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Printf("ERROR: Worker %s failed to dequeue: %v", w.id, err)
			// Primary queue trouble; the fallback table may still hold work.
			w.pollFallback(ctx)
			sleepCtx(ctx, time.Second)
			continue
		}
		if job == nil {
			// Queue empty for the whole poll window; check the backstop.
			w.pollFallback(ctx)
			continue
		}
		if err := w.processor.Process(ctx, job); err != nil {
			log.Printf("ERROR: Worker %s failed to process job %s: %v", w.id, job.ID, err)
		}
	}
}

// pollFallback claims at most one pending fallback record and runs it.
func (w *Worker) pollFallback(ctx context.Context) {
	job, err := w.fallback.Dequeue(ctx, 0)
	if err != nil {
		log.Printf("ERROR: Worker %s failed to poll fallback queue: %v", w.id, err)
		return
	}
	if job == nil {
		return
	}
	log.Printf("INFO: Worker %s picked up fallback job %s.", w.id, job.ID)
	if err := w.processor.Process(ctx, job); err != nil {
		log.Printf("ERROR: Worker %s failed to process fallback job %s: %v", w.id, job.ID, err)
	}
}

// heartbeatLoop runs on its own goroutine so a long sandbox execution can
// never starve the liveness signal.
func (w *Worker) heartbeatLoop(ctx context.Context) {
	beat := func() {
		if err := w.heartbeats.Beat(ctx, w.id); err != nil {
			log.Printf("WARN: Worker %s heartbeat failed: %v", w.id, err)
		}
	}
	beat()
	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beat()
		}
	}
}

// Pool runs N workers over the same queue and processor.
type Pool struct {
	workers []*Worker
}

func NewPool(
	size int,
	primary domainqueue.JobQueue,
	fallback domainqueue.JobQueue,
	processor *Processor,
	heartbeats *platformqueue.HeartbeatStore,
	cfg Config,
) *Pool {
	if size <= 0 {
		size = 1
	}
	workers := make([]*Worker, size)
	for i := range workers {
		workers[i] = NewWorker(primary, fallback, processor, heartbeats, cfg)
	}
	return &Pool{workers: workers}
}

func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	log.Printf("INFO: Worker pool started with %d workers.", len(p.workers))
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
