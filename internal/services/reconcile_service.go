package services

import (
	"context"
	"time"

	"secondbrain_go_backend/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StaleRequeuer moves broker entries stranded on the processing list back
// for redelivery; satisfied by utils/queue.Queue.
type StaleRequeuer interface {
	RequeueStale(ctx context.Context) (int, error)
}

// ReconcileService repairs the accepted inconsistency windows of the
// finalize-then-enqueue sequence:
//
//   - a pending job that never reached the broker is re-dispatched;
//   - a job stuck past the hard timeout is failed, together with its
//     session, and surfaced as an operational alert;
//   - a session claimed for processing but with no live job behind it
//     (job insert failed after the debit) is failed;
//   - broker entries abandoned by crashed workers are requeued.
type ReconcileService struct {
	db       *gorm.DB
	sessions SessionServiceDB
	jobs     AIJobServiceDB
	dispatch JobDispatch
	queue    StaleRequeuer

	redispatchAfter time.Duration
	hardTimeout     time.Duration
	gracePeriod     time.Duration

	lastRequeue time.Time
}

func NewReconcileService(
	db *gorm.DB,
	sessions SessionServiceDB,
	jobs AIJobServiceDB,
	dispatch JobDispatch,
	queue StaleRequeuer,
	redispatchAfter, hardTimeout, gracePeriod time.Duration,
) *ReconcileService {
	return &ReconcileService{
		db:              db,
		sessions:        sessions,
		jobs:            jobs,
		dispatch:        dispatch,
		queue:           queue,
		redispatchAfter: redispatchAfter,
		hardTimeout:     hardTimeout,
		gracePeriod:     gracePeriod,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *ReconcileService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *ReconcileService) Sweep(ctx context.Context) {
	s.redispatchStalePending(ctx)
	s.failTimedOut(ctx)
	s.failOrphanedSessions(ctx)
	s.requeueAbandoned(ctx)
}

// redispatchStalePending re-enqueues pending jobs that should have been
// picked up long ago. Duplicate deliveries are absorbed by the worker's
// idempotency guard, so re-dispatching an already-queued job is safe.
func (s *ReconcileService) redispatchStalePending(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.redispatchAfter)

	var jobs []models.AIJob
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.AIJobPending, cutoff).
		Limit(100).
		Find(&jobs).Error
	if err != nil {
		log.Error().Err(err).Msg("Reconciler: stale pending job query failed")
		return
	}

	for _, job := range jobs {
		if err := s.dispatch.Enqueue(ctx, JobSpec{JobID: job.ID, SessionID: job.SessionID}); err != nil {
			log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Reconciler: re-dispatch failed")
			continue
		}
		log.Warn().
			Str("job_id", job.ID.String()).
			Str("session_id", job.SessionID.String()).
			Msg("Reconciler: re-dispatched stale pending job")
	}
}

// failTimedOut moves jobs (and their sessions) that exceeded the hard
// timeout plus grace period to FAILED. A session advancing nowhere with a
// consumed credit is an alert condition, not business as usual.
func (s *ReconcileService) failTimedOut(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-(s.hardTimeout + s.gracePeriod))

	var jobs []models.AIJob
	err := s.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", models.AIJobProcessing, cutoff).
		Limit(100).
		Find(&jobs).Error
	if err != nil {
		log.Error().Err(err).Msg("Reconciler: timed-out job query failed")
		return
	}

	for _, job := range jobs {
		log.Error().
			Str("job_id", job.ID.String()).
			Str("session_id", job.SessionID.String()).
			Time("started_at", *job.StartedAt).
			Msg("Reconciler: job exceeded hard timeout, marking failed")
		if err := s.jobs.MarkFailed(ctx, job.ID); err != nil {
			log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Reconciler: failed to fail job")
			continue
		}
		if err := s.sessions.MarkFailed(ctx, job.SessionID); err != nil {
			log.Error().Err(err).Str("session_id", job.SessionID.String()).Msg("Reconciler: failed to fail session")
		}
	}
}

// failOrphanedSessions fails sessions that were claimed for processing but
// have no live job to advance them. That happens when the job insert failed
// after the credit debit: the session sits in PENDING_PROCESSING with no
// ai_jobs row, so neither job sweep above will ever see it.
func (s *ReconcileService) failOrphanedSessions(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-(s.redispatchAfter + s.gracePeriod))

	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]models.SessionStatus{models.SessionPendingProcessing, models.SessionProcessing}, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM ai_jobs WHERE ai_jobs.session_id = sessions.id AND ai_jobs.status IN ?)",
			[]models.AIJobStatus{models.AIJobPending, models.AIJobProcessing}).
		Limit(100).
		Find(&sessions).Error
	if err != nil {
		log.Error().Err(err).Msg("Reconciler: orphaned session query failed")
		return
	}

	for _, session := range sessions {
		log.Error().
			Str("session_id", session.ID.String()).
			Str("status", string(session.Status)).
			Msg("Reconciler: session has no live job, marking failed")
		if err := s.sessions.MarkFailed(ctx, session.ID); err != nil {
			log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Reconciler: failed to fail orphaned session")
		}
	}
}

// requeueAbandoned returns broker entries left on the processing list to the
// main queue, at most once per hard-timeout window so live long-running
// workers are not constantly re-shadowed.
func (s *ReconcileService) requeueAbandoned(ctx context.Context) {
	if time.Since(s.lastRequeue) < s.hardTimeout+s.gracePeriod {
		return
	}
	s.lastRequeue = time.Now()

	moved, err := s.queue.RequeueStale(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Reconciler: broker requeue failed")
		return
	}
	if moved > 0 {
		log.Warn().Int("entries", moved).Msg("Reconciler: requeued abandoned broker entries")
	}
}
