package queue

import (
	"context"
	"testing"
	"time"
)

func TestHeartbeatLiveness(t *testing.T) {
	s, client := startRedis(t)
	h := NewHeartbeatStore(client, 9*time.Second)
	ctx := context.Background()

	if live, known := h.IsWorkerLive(ctx); live || !known {
		t.Fatalf("expected not live before any heartbeat, got live=%v known=%v", live, known)
	}

	if err := h.Beat(ctx, "worker-1"); err != nil {
		t.Fatalf("Beat: %v", err)
	}
	if live, known := h.IsWorkerLive(ctx); !live || !known {
		t.Fatalf("expected live after heartbeat, got live=%v known=%v", live, known)
	}
	if n, err := client.Exists(ctx, workerHeartbeatKeyPrefix+"worker-1").Result(); err != nil || n != 1 {
		t.Fatalf("expected per-worker heartbeat key, got n=%d err=%v", n, err)
	}

	// Let the freshness window lapse.
	s.FastForward(10 * time.Second)
	if live, known := h.IsWorkerLive(ctx); live || !known {
		t.Fatalf("expected stale heartbeat to read not live, got live=%v known=%v", live, known)
	}
}

func TestHeartbeatUnknownWhenRedisDown(t *testing.T) {
	s, client := startRedis(t)
	h := NewHeartbeatStore(client, 9*time.Second)
	ctx := context.Background()

	if err := h.Beat(ctx, "worker-1"); err != nil {
		t.Fatalf("Beat: %v", err)
	}
	s.Close()

	live, known := h.IsWorkerLive(ctx)
	if known {
		t.Fatal("expected liveness to be unknown when redis is unreachable")
	}
	if live {
		t.Fatal("unknown liveness must never read as live")
	}
}
