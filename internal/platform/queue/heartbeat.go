package queue

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	workerHeartbeatKeyPrefix = "sqlgym:worker:heartbeat:"
	workersLiveKey           = "sqlgym:workers:live"
)

// HeartbeatStore holds worker liveness signals in Redis: one short-TTL key
// per worker instance for observability, plus a shared key whose presence
// answers "is any worker live" in a single lookup. Liveness degrades to
// unknown when Redis itself is unreachable, and unknown reads as not live.
type HeartbeatStore struct {
	rdb    *redis.Client
	window time.Duration
}

func NewHeartbeatStore(rdb *redis.Client, window time.Duration) *HeartbeatStore {
	return &HeartbeatStore{rdb: rdb, window: window}
}

// Beat refreshes both keys for workerID. Called on the worker's heartbeat
// tick, whether or not it is busy with a job.
func (h *HeartbeatStore) Beat(ctx context.Context, workerID string) error {
	pipe := h.rdb.Pipeline()
	pipe.Set(ctx, workerHeartbeatKeyPrefix+workerID, time.Now().UTC().Format(time.RFC3339), h.window)
	pipe.Set(ctx, workersLiveKey, workerID, h.window)
	_, err := pipe.Exec(ctx)
	return err
}

// IsWorkerLive reports whether at least one heartbeat is fresh. The second
// return value is false when Redis is unreachable and liveness is unknown;
// callers treat unknown as not live.
func (h *HeartbeatStore) IsWorkerLive(ctx context.Context) (live bool, known bool) {
	n, err := h.rdb.Exists(ctx, workersLiveKey).Result()
	if err != nil {
		return false, false
	}
	return n > 0, true
}
