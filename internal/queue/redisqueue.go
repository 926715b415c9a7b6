package queue

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ttbverify/labelverify/internal/pkg/logger"
)

const (
	pendingKey  = "verify:jobs"
	inFlightKey = "verify:in_flight"
)

// RedisQueue is the Redis-backed implementation of Queue. verify:jobs is a
// list (LPUSH to enqueue, BRPOP to dequeue, giving FIFO order); verify:
// in_flight is a sorted set keyed by job id with the claim unix timestamp
// as score, so a background reaper can find entries past their visibility
// timeout with ZRANGEBYSCORE.
type RedisQueue struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisQueue(log *logger.Logger, addr string) (*RedisQueue, error) {
	if log == nil {
		return nil, fmt.Errorf("queue: logger required")
	}
	if addr == "" {
		return nil, fmt.Errorf("queue: redis address required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	return &RedisQueue{log: log.With("service", "RedisQueue"), rdb: rdb}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, jobID string) error {
	if err := q.rdb.LPush(ctx, pendingKey, jobID).Err(); err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", jobID, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, bool, error) {
	res, err := q.rdb.BRPop(ctx, timeout, pendingKey).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("queue: dequeue: %w", err)
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return "", false, fmt.Errorf("queue: unexpected BRPOP reply %v", res)
	}
	jobID := res[1]
	now := float64(time.Now().UTC().Unix())
	if err := q.rdb.ZAdd(ctx, inFlightKey, goredis.Z{Score: now, Member: jobID}).Err(); err != nil {
		return "", false, fmt.Errorf("queue: claim %s: %w", jobID, err)
	}
	return jobID, true, nil
}

func (q *RedisQueue) Ack(ctx context.Context, jobID string) error {
	if err := q.rdb.ZRem(ctx, inFlightKey, jobID).Err(); err != nil {
		return fmt.Errorf("queue: ack %s: %w", jobID, err)
	}
	return nil
}

func (q *RedisQueue) Fail(ctx context.Context, jobID string) error {
	pipe := q.rdb.TxPipeline()
	pipe.LPush(ctx, pendingKey, jobID)
	pipe.ZRem(ctx, inFlightKey, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue: fail %s: %w", jobID, err)
	}
	return nil
}

func (q *RedisQueue) Depth(ctx context.Context) (int64, error) {
	n, err := q.rdb.LLen(ctx, pendingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: depth: %w", err)
	}
	return n, nil
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	if err := q.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("queue: ping: %w", err)
	}
	return nil
}

func (q *RedisQueue) Close() error {
	return q.rdb.Close()
}

// ReapExpired returns claimed entries older than visibility to the pending
// list. No process in this repository calls it, so an entry left in
// verify:in_flight by a worker that never acks or fails it stays there.
func (q *RedisQueue) ReapExpired(ctx context.Context, visibility time.Duration) (int, error) {
	cutoff := float64(time.Now().UTC().Add(-visibility).Unix())
	stale, err := q.rdb.ZRangeByScore(ctx, inFlightKey, &goredis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%f", cutoff),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: scan in-flight: %w", err)
	}
	for _, jobID := range stale {
		if err := q.Fail(ctx, jobID); err != nil {
			q.log.Warn("reap: requeue failed", "job_id", jobID, "error", err)
			continue
		}
	}
	return len(stale), nil
}
