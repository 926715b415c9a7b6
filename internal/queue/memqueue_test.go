package queue

import (
	"context"
	"testing"
	"time"
)

func TestMemQueueFIFOOrder(t *testing.T) {
	ctx := context.Background()
	q := NewMemQueue()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Enqueue(ctx, id); err != nil {
			t.Fatalf("Enqueue %s: %v", id, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got, found, err := q.Dequeue(ctx, 0)
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if !found {
			t.Fatalf("expected a job")
		}
		if got != want {
			t.Fatalf("got %s want %s", got, want)
		}
	}

	if _, found, err := q.Dequeue(ctx, 0); err != nil || found {
		t.Fatalf("expected empty queue, found=%v err=%v", found, err)
	}
}

func TestMemQueueFailReturnsToPending(t *testing.T) {
	ctx := context.Background()
	q := NewMemQueue()
	_ = q.Enqueue(ctx, "job-1")

	jobID, found, err := q.Dequeue(ctx, 0)
	if err != nil || !found || jobID != "job-1" {
		t.Fatalf("Dequeue: %v %v %v", jobID, found, err)
	}

	if err := q.Fail(ctx, jobID); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Depth: %v", err)
	}
	if depth != 1 {
		t.Fatalf("expected depth 1 after Fail, got %d", depth)
	}
}

func TestMemQueueReapExpired(t *testing.T) {
	ctx := context.Background()
	q := NewMemQueue()
	_ = q.Enqueue(ctx, "job-1")
	if _, _, err := q.Dequeue(ctx, 0); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	q.mu.Lock()
	q.inFlight["job-1"] = time.Now().UTC().Add(-10 * time.Minute)
	q.mu.Unlock()

	reaped, err := q.ReapExpired(ctx, time.Minute)
	if err != nil {
		t.Fatalf("ReapExpired: %v", err)
	}
	if reaped != 1 {
		t.Fatalf("expected 1 reaped entry, got %d", reaped)
	}
	depth, _ := q.Depth(ctx)
	if depth != 1 {
		t.Fatalf("expected job returned to pending, depth=%d", depth)
	}
}
