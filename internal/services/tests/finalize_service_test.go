package services_test

import (
	"context"
	"errors"
	"testing"

	"secondbrain_go_backend/internal/models"
	"secondbrain_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func openSession(sessionID, userID uuid.UUID) *models.Session {
	return &models.Session{
		ID:          sessionID,
		UserID:      userID,
		SessionType: models.SessionTypeMixed,
		Status:      models.SessionOpen,
	}
}

func TestFinalizeHappyPath(t *testing.T) {
	sessions := new(MockSessionServiceDB)
	jobs := new(MockAIJobServiceDB)
	ledger := new(MockCreditLedger)
	dispatch := new(MockJobDispatch)

	sessionID := uuid.New()
	userID := uuid.New()
	jobID := uuid.New()

	sessions.On("GetSession", mock.Anything, sessionID, userID).Return(openSession(sessionID, userID), nil)
	sessions.On("CountBlocks", mock.Anything, sessionID).Return(int64(3), nil)
	ledger.On("HasCredits", mock.Anything, userID, services.SessionProcessingCost).Return(true, nil)
	sessions.On("TransitionStatus", mock.Anything, sessionID, models.SessionOpen, models.SessionPendingProcessing).Return(true, nil)
	ledger.On("Debit", mock.Anything, userID, services.SessionProcessingCost).Return(true, nil)
	jobs.On("CreateJob", mock.Anything, userID, sessionID, services.SessionProcessingCost).
		Return(&models.AIJob{ID: jobID, UserID: userID, SessionID: sessionID}, nil)
	dispatch.On("Enqueue", mock.Anything, services.JobSpec{JobID: jobID, SessionID: sessionID}).Return(nil)

	svc := services.NewFinalizeService(sessions, jobs, ledger, dispatch)
	outcome, err := svc.Finalize(context.Background(), sessionID, userID)

	assert.NoError(t, err)
	assert.Equal(t, models.SessionPendingProcessing, outcome.Status)
	assert.Equal(t, sessionID, outcome.SessionID)
	assert.Equal(t, jobID, *outcome.JobID)
	sessions.AssertExpectations(t)
	jobs.AssertExpectations(t)
	ledger.AssertExpectations(t)
	dispatch.AssertExpectations(t)
}

func TestFinalizeInsufficientCredits(t *testing.T) {
	sessions := new(MockSessionServiceDB)
	jobs := new(MockAIJobServiceDB)
	ledger := new(MockCreditLedger)
	dispatch := new(MockJobDispatch)

	sessionID := uuid.New()
	userID := uuid.New()

	// The precheck already sees an empty balance, so the session goes
	// straight from OPEN to NO_CREDITS without a debit attempt.
	sessions.On("GetSession", mock.Anything, sessionID, userID).Return(openSession(sessionID, userID), nil)
	sessions.On("CountBlocks", mock.Anything, sessionID).Return(int64(1), nil)
	ledger.On("HasCredits", mock.Anything, userID, services.SessionProcessingCost).Return(false, nil)
	sessions.On("TransitionStatus", mock.Anything, sessionID, models.SessionOpen, models.SessionNoCredits).Return(true, nil)

	svc := services.NewFinalizeService(sessions, jobs, ledger, dispatch)
	outcome, err := svc.Finalize(context.Background(), sessionID, userID)

	assert.NoError(t, err)
	assert.Equal(t, models.SessionNoCredits, outcome.Status)
	assert.Nil(t, outcome.JobID)
	ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	jobs.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	dispatch.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	sessions.AssertExpectations(t)
}

func TestFinalizeDebitRaceStillEndsNoCredits(t *testing.T) {
	sessions := new(MockSessionServiceDB)
	jobs := new(MockAIJobServiceDB)
	ledger := new(MockCreditLedger)
	dispatch := new(MockJobDispatch)

	sessionID := uuid.New()
	userID := uuid.New()

	// The precheck passed, but a concurrent spender drained the balance
	// before the debit. The conditional debit is the authority.
	sessions.On("GetSession", mock.Anything, sessionID, userID).Return(openSession(sessionID, userID), nil)
	sessions.On("CountBlocks", mock.Anything, sessionID).Return(int64(1), nil)
	ledger.On("HasCredits", mock.Anything, userID, services.SessionProcessingCost).Return(true, nil)
	sessions.On("TransitionStatus", mock.Anything, sessionID, models.SessionOpen, models.SessionPendingProcessing).Return(true, nil)
	ledger.On("Debit", mock.Anything, userID, services.SessionProcessingCost).Return(false, nil)
	sessions.On("TransitionStatus", mock.Anything, sessionID, models.SessionPendingProcessing, models.SessionNoCredits).Return(true, nil)

	svc := services.NewFinalizeService(sessions, jobs, ledger, dispatch)
	outcome, err := svc.Finalize(context.Background(), sessionID, userID)

	assert.NoError(t, err)
	assert.Equal(t, models.SessionNoCredits, outcome.Status)
	assert.Nil(t, outcome.JobID)
	jobs.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	dispatch.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	sessions.AssertExpectations(t)
}

func TestFinalizeRejectsNonOpenSession(t *testing.T) {
	sessions := new(MockSessionServiceDB)
	jobs := new(MockAIJobServiceDB)
	ledger := new(MockCreditLedger)
	dispatch := new(MockJobDispatch)

	sessionID := uuid.New()
	userID := uuid.New()

	processed := openSession(sessionID, userID)
	processed.Status = models.SessionProcessed
	sessions.On("GetSession", mock.Anything, sessionID, userID).Return(processed, nil)

	svc := services.NewFinalizeService(sessions, jobs, ledger, dispatch)
	_, err := svc.Finalize(context.Background(), sessionID, userID)

	assert.ErrorIs(t, err, services.ErrSessionNotOpen)
	ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeRejectsEmptySession(t *testing.T) {
	sessions := new(MockSessionServiceDB)
	jobs := new(MockAIJobServiceDB)
	ledger := new(MockCreditLedger)
	dispatch := new(MockJobDispatch)

	sessionID := uuid.New()
	userID := uuid.New()

	sessions.On("GetSession", mock.Anything, sessionID, userID).Return(openSession(sessionID, userID), nil)
	sessions.On("CountBlocks", mock.Anything, sessionID).Return(int64(0), nil)

	svc := services.NewFinalizeService(sessions, jobs, ledger, dispatch)
	_, err := svc.Finalize(context.Background(), sessionID, userID)

	assert.ErrorIs(t, err, services.ErrNoBlocks)
	ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	sessions.AssertNotCalled(t, "TransitionStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeLostClaimMeansNoDebit(t *testing.T) {
	sessions := new(MockSessionServiceDB)
	jobs := new(MockAIJobServiceDB)
	ledger := new(MockCreditLedger)
	dispatch := new(MockJobDispatch)

	sessionID := uuid.New()
	userID := uuid.New()

	// A concurrent finalize won the conditional update first.
	sessions.On("GetSession", mock.Anything, sessionID, userID).Return(openSession(sessionID, userID), nil)
	sessions.On("CountBlocks", mock.Anything, sessionID).Return(int64(2), nil)
	ledger.On("HasCredits", mock.Anything, userID, services.SessionProcessingCost).Return(true, nil)
	sessions.On("TransitionStatus", mock.Anything, sessionID, models.SessionOpen, models.SessionPendingProcessing).Return(false, nil)

	svc := services.NewFinalizeService(sessions, jobs, ledger, dispatch)
	_, err := svc.Finalize(context.Background(), sessionID, userID)

	assert.ErrorIs(t, err, services.ErrSessionNotOpen)
	ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything)
	jobs.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeRevertsClaimOnDebitError(t *testing.T) {
	sessions := new(MockSessionServiceDB)
	jobs := new(MockAIJobServiceDB)
	ledger := new(MockCreditLedger)
	dispatch := new(MockJobDispatch)

	sessionID := uuid.New()
	userID := uuid.New()
	dbErr := errors.New("connection reset")

	sessions.On("GetSession", mock.Anything, sessionID, userID).Return(openSession(sessionID, userID), nil)
	sessions.On("CountBlocks", mock.Anything, sessionID).Return(int64(2), nil)
	ledger.On("HasCredits", mock.Anything, userID, services.SessionProcessingCost).Return(true, nil)
	sessions.On("TransitionStatus", mock.Anything, sessionID, models.SessionOpen, models.SessionPendingProcessing).Return(true, nil)
	ledger.On("Debit", mock.Anything, userID, services.SessionProcessingCost).Return(false, dbErr)
	sessions.On("TransitionStatus", mock.Anything, sessionID, models.SessionPendingProcessing, models.SessionOpen).Return(true, nil)

	svc := services.NewFinalizeService(sessions, jobs, ledger, dispatch)
	_, err := svc.Finalize(context.Background(), sessionID, userID)

	assert.ErrorIs(t, err, dbErr)
	sessions.AssertExpectations(t)
	jobs.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizeEnqueueFailureStillPending(t *testing.T) {
	sessions := new(MockSessionServiceDB)
	jobs := new(MockAIJobServiceDB)
	ledger := new(MockCreditLedger)
	dispatch := new(MockJobDispatch)

	sessionID := uuid.New()
	userID := uuid.New()
	jobID := uuid.New()

	sessions.On("GetSession", mock.Anything, sessionID, userID).Return(openSession(sessionID, userID), nil)
	sessions.On("CountBlocks", mock.Anything, sessionID).Return(int64(2), nil)
	ledger.On("HasCredits", mock.Anything, userID, services.SessionProcessingCost).Return(true, nil)
	sessions.On("TransitionStatus", mock.Anything, sessionID, models.SessionOpen, models.SessionPendingProcessing).Return(true, nil)
	ledger.On("Debit", mock.Anything, userID, services.SessionProcessingCost).Return(true, nil)
	jobs.On("CreateJob", mock.Anything, userID, sessionID, services.SessionProcessingCost).
		Return(&models.AIJob{ID: jobID, UserID: userID, SessionID: sessionID}, nil)
	dispatch.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	// The broker outage is absorbed: the job row exists, the reconciler
	// re-dispatches it, and the caller still sees a pending outcome.
	svc := services.NewFinalizeService(sessions, jobs, ledger, dispatch)
	outcome, err := svc.Finalize(context.Background(), sessionID, userID)

	assert.NoError(t, err)
	assert.Equal(t, models.SessionPendingProcessing, outcome.Status)
	assert.Equal(t, jobID, *outcome.JobID)
}

func TestFinalizeDuplicateJobRace(t *testing.T) {
	sessions := new(MockSessionServiceDB)
	jobs := new(MockAIJobServiceDB)
	ledger := new(MockCreditLedger)
	dispatch := new(MockJobDispatch)

	sessionID := uuid.New()
	userID := uuid.New()

	sessions.On("GetSession", mock.Anything, sessionID, userID).Return(openSession(sessionID, userID), nil)
	sessions.On("CountBlocks", mock.Anything, sessionID).Return(int64(2), nil)
	ledger.On("HasCredits", mock.Anything, userID, services.SessionProcessingCost).Return(true, nil)
	sessions.On("TransitionStatus", mock.Anything, sessionID, models.SessionOpen, models.SessionPendingProcessing).Return(true, nil)
	ledger.On("Debit", mock.Anything, userID, services.SessionProcessingCost).Return(true, nil)
	jobs.On("CreateJob", mock.Anything, userID, sessionID, services.SessionProcessingCost).
		Return(nil, services.ErrActiveJobExists)

	svc := services.NewFinalizeService(sessions, jobs, ledger, dispatch)
	_, err := svc.Finalize(context.Background(), sessionID, userID)

	assert.ErrorIs(t, err, services.ErrActiveJobExists)
	dispatch.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
}
