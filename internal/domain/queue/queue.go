package queue

import (
	"context"
	"time"

	"sqlgym/internal/domain/model"
)

// JobQueue is the single abstraction over the two job backends: the Redis
// list (primary) and the fallback_jobs table (durable backstop). Routing
// between them is the Dispatcher's business; nothing backend-specific leaks
// past this interface.
type JobQueue interface {
	Enqueue(ctx context.Context, job *model.Job) error
	// Dequeue blocks up to wait for the next job. A (nil, nil) return means
	// the queue was empty for the whole window.
	Dequeue(ctx context.Context, wait time.Duration) (*model.Job, error)
}
