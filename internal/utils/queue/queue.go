// Package queue provides at-least-once job delivery over a Redis list pair.
//
// Enqueue pushes onto the main list. Dequeue atomically moves one entry to a
// per-queue processing list (BLMOVE), so a worker crash never loses the
// entry; Ack removes it from the processing list once handling finished and
// Nack sends it straight back for another delivery attempt.
// RequeueStale moves processing entries back for redelivery and is driven by
// the reconciler, which knows the hard job timeout.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Dequeue when no entry arrived within the block
// timeout. It is a normal idle outcome, not a failure.
var ErrEmpty = errors.New("queue: empty")

type Queue struct {
	rdb *redis.Client
	key string
}

func New(rdb *redis.Client, key string) *Queue {
	return &Queue{rdb: rdb, key: key}
}

func (q *Queue) processingKey() string {
	return q.key + ":processing"
}

// Enqueue persists payload to the broker. Returning nil means the entry is
// durably queued; the caller may report the work as dispatched.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) error {
	return q.rdb.LPush(ctx, q.key, payload).Err()
}

// Dequeue blocks up to timeout for the next entry and moves it onto the
// processing list in the same Redis command.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) ([]byte, error) {
	val, err := q.rdb.BLMove(ctx, q.key, q.processingKey(), "RIGHT", "LEFT", timeout).Result()
	if err == redis.Nil {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

// Ack removes a delivered entry from the processing list.
func (q *Queue) Ack(ctx context.Context, payload []byte) error {
	return q.rdb.LRem(ctx, q.processingKey(), 1, payload).Err()
}

// Nack returns a delivered entry to the consuming end of the main list for
// prompt redelivery, instead of leaving it stranded on the processing list
// until the stale sweep. The job attempt counter bounds total retries.
func (q *Queue) Nack(ctx context.Context, payload []byte) error {
	pipe := q.rdb.TxPipeline()
	pipe.LRem(ctx, q.processingKey(), 1, payload)
	pipe.RPush(ctx, q.key, payload)
	_, err := pipe.Exec(ctx)
	return err
}

// RequeueStale moves every entry currently on the processing list back onto
// the main list. Entries belonging to live workers are redelivered too; the
// worker-side idempotency guard makes that harmless.
func (q *Queue) RequeueStale(ctx context.Context) (int, error) {
	moved := 0
	for {
		_, err := q.rdb.LMove(ctx, q.processingKey(), q.key, "RIGHT", "LEFT").Result()
		if err == redis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}
