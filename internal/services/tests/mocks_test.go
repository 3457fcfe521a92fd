package services_test

import (
	"context"
	"io"

	"secondbrain_go_backend/internal/ai"
	"secondbrain_go_backend/internal/models"
	"secondbrain_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockSessionServiceDB struct {
	mock.Mock
}

func (m *MockSessionServiceDB) CreateSession(ctx context.Context, userID uuid.UUID, sessionType models.SessionType) (*models.Session, error) {
	args := m.Called(ctx, userID, sessionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionServiceDB) GetSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, sessionID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionServiceDB) GetSessionByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionServiceDB) AddBlock(ctx context.Context, sessionID, userID uuid.UUID, block *models.SessionBlock) (*models.SessionBlock, error) {
	args := m.Called(ctx, sessionID, userID, block)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionBlock), args.Error(1)
}

func (m *MockSessionServiceDB) ListBlocks(ctx context.Context, sessionID uuid.UUID) ([]models.SessionBlock, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SessionBlock), args.Error(1)
}

func (m *MockSessionServiceDB) CountBlocks(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionServiceDB) TransitionStatus(ctx context.Context, sessionID uuid.UUID, from, to models.SessionStatus) (bool, error) {
	args := m.Called(ctx, sessionID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionServiceDB) MarkProcessed(ctx context.Context, sessionID uuid.UUID, summary, title string) (bool, error) {
	args := m.Called(ctx, sessionID, summary, title)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionServiceDB) MarkFailed(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSessionServiceDB) DeleteSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	args := m.Called(ctx, sessionID, userID)
	return args.Error(0)
}

type MockAIJobServiceDB struct {
	mock.Mock
}

func (m *MockAIJobServiceDB) CreateJob(ctx context.Context, userID, sessionID uuid.UUID, creditsUsed int) (*models.AIJob, error) {
	args := m.Called(ctx, userID, sessionID, creditsUsed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AIJob), args.Error(1)
}

func (m *MockAIJobServiceDB) GetJob(ctx context.Context, jobID uuid.UUID) (*models.AIJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AIJob), args.Error(1)
}

func (m *MockAIJobServiceDB) MarkProcessing(ctx context.Context, jobID uuid.UUID) (bool, error) {
	args := m.Called(ctx, jobID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAIJobServiceDB) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockAIJobServiceDB) MarkFailed(ctx context.Context, jobID uuid.UUID) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

type MockCreditLedger struct {
	mock.Mock
}

func (m *MockCreditLedger) HasCredits(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	args := m.Called(ctx, userID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockCreditLedger) Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error) {
	args := m.Called(ctx, userID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *MockCreditLedger) Credit(ctx context.Context, userID uuid.UUID, amount int) error {
	args := m.Called(ctx, userID, amount)
	return args.Error(0)
}

func (m *MockCreditLedger) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type MockJobDispatch struct {
	mock.Mock
}

func (m *MockJobDispatch) Enqueue(ctx context.Context, spec services.JobSpec) error {
	args := m.Called(ctx, spec)
	return args.Error(0)
}

type MockEmbeddingStore struct {
	mock.Mock
}

func (m *MockEmbeddingStore) CreateEmbedding(ctx context.Context, sessionID uuid.UUID, blockID *uuid.UUID, provider string, vector []float32, text string) error {
	args := m.Called(ctx, sessionID, blockID, provider, vector, text)
	return args.Error(0)
}

func (m *MockEmbeddingStore) DeleteBySession(ctx context.Context, sessionID uuid.UUID, provider string) error {
	args := m.Called(ctx, sessionID, provider)
	return args.Error(0)
}

func (m *MockEmbeddingStore) FindSimilar(ctx context.Context, userID uuid.UUID, vector []float32, provider string, limit int, threshold float64) ([]services.SearchHit, error) {
	args := m.Called(ctx, userID, vector, provider, limit, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.SearchHit), args.Error(1)
}

type MockProvider struct {
	mock.Mock
	name string
}

func (m *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockProvider) Summarize(ctx context.Context, blocks []ai.BlockContent) (string, error) {
	args := m.Called(ctx, blocks)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) IsConfigured() bool {
	return true
}

func (m *MockProvider) Name() string {
	if m.name == "" {
		return "openai"
	}
	return m.name
}

// MockEnrichedProvider additionally serves transcription, vision and title
// capabilities, like the OpenAI provider does.
type MockEnrichedProvider struct {
	MockProvider
}

func (m *MockEnrichedProvider) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	args := m.Called(ctx, audio, filename)
	return args.String(0), args.Error(1)
}

func (m *MockEnrichedProvider) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	args := m.Called(ctx, imageURL)
	return args.String(0), args.Error(1)
}

func (m *MockEnrichedProvider) SuggestTitle(ctx context.Context, blocks []ai.BlockContent) (string, error) {
	args := m.Called(ctx, blocks)
	return args.String(0), args.Error(1)
}

type MockMediaLookup struct {
	mock.Mock
}

func (m *MockMediaLookup) ListUploadedBySession(ctx context.Context, sessionID uuid.UUID) ([]models.MediaFile, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MediaFile), args.Error(1)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) IssueUploadURL(ctx context.Context, objectKey, contentType string) (string, error) {
	args := m.Called(ctx, objectKey, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) IssueDownloadURL(ctx context.Context, objectKey string) (string, error) {
	args := m.Called(ctx, objectKey)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStorage) ReadObject(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	args := m.Called(ctx, objectKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0)
}
