package services

import (
	"context"

	"secondbrain_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FinalizeOutcome is the non-error result of a finalize call. Status is
// either pending_processing (credit debited, job enqueued) or no_credits
// (saved without AI enrichment).
type FinalizeOutcome struct {
	SessionID uuid.UUID            `json:"session_id"`
	Status    models.SessionStatus `json:"status"`
	JobID     *uuid.UUID           `json:"job_id,omitempty"`
}

// FinalizeService coordinates the OPEN→{PENDING_PROCESSING|NO_CREDITS}
// decision: credit debit, status transition and job dispatch.
type FinalizeService struct {
	sessions SessionServiceDB
	jobs     AIJobServiceDB
	ledger   CreditLedger
	dispatch JobDispatch
}

func NewFinalizeService(
	sessions SessionServiceDB,
	jobs AIJobServiceDB,
	ledger CreditLedger,
	dispatch JobDispatch,
) *FinalizeService {
	return &FinalizeService{
		sessions: sessions,
		jobs:     jobs,
		ledger:   ledger,
		dispatch: dispatch,
	}
}

// Finalize closes an OPEN session, at most once per session.
//
// The conditional OPEN→PENDING_PROCESSING transition is the linearization
// point: a concurrent second finalize loses that update and is rejected
// before any debit, so there is never a second debit or a second job. The
// debit itself stays a single short statement against the ledger row; if it
// fails transiently after the claim, the claim is reverted so the caller can
// retry the whole attempt from a clean OPEN state.
func (s *FinalizeService) Finalize(ctx context.Context, sessionID, userID uuid.UUID) (*FinalizeOutcome, error) {
	session, err := s.sessions.GetSession(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionOpen {
		return nil, ErrSessionNotOpen
	}

	count, err := s.sessions.CountBlocks(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNoBlocks
	}

	// Cheap read-only precheck. An obviously short balance finalizes the
	// session straight to NO_CREDITS; the conditional Debit below stays the
	// authority when concurrent spenders race past this read.
	hasCredits, err := s.ledger.HasCredits(ctx, userID, SessionProcessingCost)
	if err != nil {
		return nil, err
	}
	if !hasCredits {
		claimed, err := s.sessions.TransitionStatus(ctx, sessionID, models.SessionOpen, models.SessionNoCredits)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, ErrSessionNotOpen
		}
		return &FinalizeOutcome{SessionID: sessionID, Status: models.SessionNoCredits}, nil
	}

	claimed, err := s.sessions.TransitionStatus(ctx, sessionID, models.SessionOpen, models.SessionPendingProcessing)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrSessionNotOpen
	}

	debited, err := s.ledger.Debit(ctx, userID, SessionProcessingCost)
	if err != nil {
		// Transient ledger failure after the claim. Revert so no partial
		// state is left behind; the client may retry the whole finalize.
		if _, revertErr := s.sessions.TransitionStatus(ctx, sessionID, models.SessionPendingProcessing, models.SessionOpen); revertErr != nil {
			log.Error().Err(revertErr).
				Str("session_id", sessionID.String()).
				Msg("Failed to revert finalize claim after debit error")
		}
		return nil, err
	}

	if !debited {
		// Insufficient balance is a normal terminal outcome, not an error:
		// the session is saved without AI enrichment.
		if _, err := s.sessions.TransitionStatus(ctx, sessionID, models.SessionPendingProcessing, models.SessionNoCredits); err != nil {
			return nil, err
		}
		return &FinalizeOutcome{SessionID: sessionID, Status: models.SessionNoCredits}, nil
	}

	job, err := s.jobs.CreateJob(ctx, userID, sessionID, SessionProcessingCost)
	if err != nil {
		// Debited and claimed, but no job row. The session stays in
		// PENDING_PROCESSING; the reconciler sweep surfaces and repairs it.
		log.Error().Err(err).
			Str("session_id", sessionID.String()).
			Msg("Job creation failed after debit; session left pending for reconciliation")
		return nil, err
	}

	if err := s.dispatch.Enqueue(ctx, JobSpec{JobID: job.ID, SessionID: sessionID}); err != nil {
		// The job row exists but never reached the broker. This is the
		// accepted bounded inconsistency window: the reconciler re-enqueues
		// stale pending jobs, so the work is delayed, not lost.
		log.Error().Err(err).
			Str("job_id", job.ID.String()).
			Str("session_id", sessionID.String()).
			Msg("Enqueue failed after debit; job will be re-dispatched by reconciler")
	}

	return &FinalizeOutcome{
		SessionID: sessionID,
		Status:    models.SessionPendingProcessing,
		JobID:     &job.ID,
	}, nil
}
