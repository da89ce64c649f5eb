package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"sqlgym/internal/common"
	"sqlgym/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is the primary job queue: a Redis list of JSON-encoded jobs.
// LPush/BRPop keeps approximate enqueue order; the pop itself is the
// exclusive claim, a job is handed to at most one consumer.
type RedisQueue struct {
	rdb       *redis.Client
	queueName string
}

func NewRedisQueue(rdb *redis.Client, queueName string) *RedisQueue {
	return &RedisQueue{rdb: rdb, queueName: queueName}
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return common.Errorf("failed to marshal job %s: %w", job.ID, err)
	}
	if err := q.rdb.LPush(ctx, q.queueName, data).Err(); err != nil {
		return common.Errorf("failed to push job %s: %w: %w", job.ID, common.ErrQueueUnavailable, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, wait time.Duration) (*model.Job, error) {
	res, err := q.rdb.BRPop(ctx, wait, q.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // empty for the whole window
		}
		return nil, common.Errorf("failed to pop job: %w: %w", common.ErrQueueUnavailable, err)
	}
	if len(res) < 2 || res[1] == "" {
		return nil, nil
	}
	var job model.Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, common.Errorf("failed to unmarshal job payload: %w", err)
	}
	return &job, nil
}

// Ping reports whether the primary queue is currently reachable.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
