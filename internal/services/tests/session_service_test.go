package services_test

import (
	"context"
	"testing"

	"secondbrain_go_backend/internal/models"
	"secondbrain_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionStartsOpen(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 3)
	svc := services.NewSessionServiceDB(db)

	session, err := svc.CreateSession(context.Background(), user.ID, models.SessionTypeVoice)
	require.NoError(t, err)

	assert.Equal(t, models.SessionOpen, session.Status)
	assert.Equal(t, user.ID, session.UserID)
	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Nil(t, session.FinalizedAt)
}

func TestGetSessionScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, 3)
	other := createTestUser(t, db, 3)
	svc := services.NewSessionServiceDB(db)

	session, err := svc.CreateSession(context.Background(), owner.ID, models.SessionTypeMixed)
	require.NoError(t, err)

	_, err = svc.GetSession(context.Background(), session.ID, other.ID)
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	got, err := svc.GetSession(context.Background(), session.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
}

func TestAddBlockOnlyWhileOpen(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 3)
	svc := services.NewSessionServiceDB(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, user.ID, models.SessionTypeMixed)
	require.NoError(t, err)

	_, err = svc.AddBlock(ctx, session.ID, user.ID, &models.SessionBlock{
		BlockType:   models.BlockTypeText,
		TextContent: "first note",
	})
	require.NoError(t, err)

	claimed, err := svc.TransitionStatus(ctx, session.ID, models.SessionOpen, models.SessionPendingProcessing)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = svc.AddBlock(ctx, session.ID, user.ID, &models.SessionBlock{
		BlockType:   models.BlockTypeText,
		TextContent: "too late",
	})
	assert.ErrorIs(t, err, services.ErrSessionNotOpen)

	count, err := svc.CountBlocks(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestListBlocksInsertionOrder(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 3)
	svc := services.NewSessionServiceDB(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, user.ID, models.SessionTypeMixed)
	require.NoError(t, err)

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.AddBlock(ctx, session.ID, user.ID, &models.SessionBlock{
			BlockType:   models.BlockTypeText,
			TextContent: text,
		})
		require.NoError(t, err)
	}

	blocks, err := svc.ListBlocks(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, "one", blocks[0].TextContent)
	assert.Equal(t, "two", blocks[1].TextContent)
	assert.Equal(t, "three", blocks[2].TextContent)
}

func TestTransitionStatusIsConditional(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 3)
	svc := services.NewSessionServiceDB(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, user.ID, models.SessionTypeMixed)
	require.NoError(t, err)

	claimed, err := svc.TransitionStatus(ctx, session.ID, models.SessionOpen, models.SessionPendingProcessing)
	require.NoError(t, err)
	assert.True(t, claimed)

	// The second claim for the same edge must lose.
	claimed, err = svc.TransitionStatus(ctx, session.ID, models.SessionOpen, models.SessionPendingProcessing)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := svc.GetSession(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionPendingProcessing, got.Status)
	assert.NotNil(t, got.FinalizedAt)
}

func TestMarkProcessedRequiresProcessingState(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 3)
	svc := services.NewSessionServiceDB(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, user.ID, models.SessionTypeMixed)
	require.NoError(t, err)

	ok, err := svc.MarkProcessed(ctx, session.ID, "summary", "a title")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.TransitionStatus(ctx, session.ID, models.SessionOpen, models.SessionPendingProcessing)
	require.NoError(t, err)
	_, err = svc.TransitionStatus(ctx, session.ID, models.SessionPendingProcessing, models.SessionProcessing)
	require.NoError(t, err)

	ok, err = svc.MarkProcessed(ctx, session.ID, "summary", "a title")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := svc.GetSession(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionProcessed, got.Status)
	assert.Equal(t, "summary", got.AISummary)
	assert.Equal(t, "a title", got.SuggestedTitle)
	assert.NotNil(t, got.ProcessedAt)
}

func TestMarkFailedOnlyFromProcessingStates(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 3)
	svc := services.NewSessionServiceDB(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, user.ID, models.SessionTypeMixed)
	require.NoError(t, err)

	// Still open: MarkFailed must not touch it.
	require.NoError(t, svc.MarkFailed(ctx, session.ID))
	got, err := svc.GetSession(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionOpen, got.Status)

	_, err = svc.TransitionStatus(ctx, session.ID, models.SessionOpen, models.SessionPendingProcessing)
	require.NoError(t, err)
	require.NoError(t, svc.MarkFailed(ctx, session.ID))

	got, err = svc.GetSession(ctx, session.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionFailed, got.Status)
}

func TestDeleteSessionRemovesDependents(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 3)
	svc := services.NewSessionServiceDB(db)
	jobs := services.NewAIJobServiceDB(db)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, user.ID, models.SessionTypeMixed)
	require.NoError(t, err)
	_, err = svc.AddBlock(ctx, session.ID, user.ID, &models.SessionBlock{
		BlockType:   models.BlockTypeText,
		TextContent: "note",
	})
	require.NoError(t, err)
	_, err = jobs.CreateJob(ctx, user.ID, session.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, session.ID, user.ID))

	_, err = svc.GetSession(ctx, session.ID, user.ID)
	assert.ErrorIs(t, err, services.ErrSessionNotFound)

	var blockCount, jobCount int64
	require.NoError(t, db.Model(&models.SessionBlock{}).Where("session_id = ?", session.ID).Count(&blockCount).Error)
	require.NoError(t, db.Model(&models.AIJob{}).Where("session_id = ?", session.ID).Count(&jobCount).Error)
	assert.Zero(t, blockCount)
	assert.Zero(t, jobCount)
}
