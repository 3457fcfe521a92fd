package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// JobSpec is the wire payload handed to the broker: just enough for a worker
// to load the authoritative state from the database.
type JobSpec struct {
	JobID     uuid.UUID `json:"job_id"`
	SessionID uuid.UUID `json:"session_id"`
}

// BrokerQueue is the queue primitive the dispatcher needs; satisfied by
// utils/queue.Queue.
type BrokerQueue interface {
	Enqueue(ctx context.Context, payload []byte) error
}

type JobDispatcher struct {
	queue BrokerQueue
}

func NewJobDispatcher(queue BrokerQueue) *JobDispatcher {
	return &JobDispatcher{queue: queue}
}

// Enqueue persists the job payload to the broker. Delivery to the worker pool is
// at-least-once from here on; the worker's idempotency guard on the job id
// absorbs duplicates.
func (d *JobDispatcher) Enqueue(ctx context.Context, spec JobSpec) error {
	payload, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("marshal job spec: %w", err)
	}
	if err := d.queue.Enqueue(ctx, payload); err != nil {
		return fmt.Errorf("enqueue job %s: %w", spec.JobID, err)
	}
	log.Info().
		Str("job_id", spec.JobID.String()).
		Str("session_id", spec.SessionID.String()).
		Msg("AI job enqueued")
	return nil
}
