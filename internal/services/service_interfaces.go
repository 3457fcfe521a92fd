package services

import (
	"context"
	"errors"
	"io"

	"secondbrain_go_backend/internal/models"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found or access denied")
	ErrSessionNotOpen  = errors.New("session is not open")
	ErrNoBlocks        = errors.New("session has no blocks")
	ErrActiveJobExists = errors.New("session already has a non-terminal AI job")
	ErrMediaNotFound   = errors.New("media file not found")
	ErrEmptyQuery      = errors.New("query text cannot be empty")

	// ErrProviderUnavailable wraps upstream AI provider failures on the
	// request path so handlers can answer 503 instead of 500.
	ErrProviderUnavailable = errors.New("ai provider unavailable")
)

// CreditLedger owns the per-user integer credit balance. Debit never allows
// the balance to go negative, under arbitrary concurrent callers.
type CreditLedger interface {
	HasCredits(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	Debit(ctx context.Context, userID uuid.UUID, amount int) (bool, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int) error
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)
}

// SessionServiceDB is the session and block store. TransitionStatus is the
// single primitive for moving the status state machine: a conditional update
// whose row count tells the caller whether it won the transition.
type SessionServiceDB interface {
	CreateSession(ctx context.Context, userID uuid.UUID, sessionType models.SessionType) (*models.Session, error)
	GetSession(ctx context.Context, sessionID, userID uuid.UUID) (*models.Session, error)
	GetSessionByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	AddBlock(ctx context.Context, sessionID, userID uuid.UUID, block *models.SessionBlock) (*models.SessionBlock, error)
	ListBlocks(ctx context.Context, sessionID uuid.UUID) ([]models.SessionBlock, error)
	CountBlocks(ctx context.Context, sessionID uuid.UUID) (int64, error)
	TransitionStatus(ctx context.Context, sessionID uuid.UUID, from, to models.SessionStatus) (bool, error)
	MarkProcessed(ctx context.Context, sessionID uuid.UUID, summary, title string) (bool, error)
	MarkFailed(ctx context.Context, sessionID uuid.UUID) error
	DeleteSession(ctx context.Context, sessionID, userID uuid.UUID) error
}

// AIJobServiceDB owns AIJob rows. Mark* methods are conditional so a
// redelivered job can never regress a terminal status.
type AIJobServiceDB interface {
	CreateJob(ctx context.Context, userID, sessionID uuid.UUID, creditsUsed int) (*models.AIJob, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.AIJob, error)
	MarkProcessing(ctx context.Context, jobID uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, jobID uuid.UUID) error
	MarkFailed(ctx context.Context, jobID uuid.UUID) error
}

// JobDispatch hands a job spec to the broker. Returning nil guarantees
// at-least-once delivery to a worker.
type JobDispatch interface {
	Enqueue(ctx context.Context, spec JobSpec) error
}

// SearchHit is one ranked semantic-search result.
type SearchHit struct {
	SessionID  uuid.UUID  `json:"session_id"`
	BlockID    *uuid.UUID `json:"block_id,omitempty"`
	Text       string     `json:"text"`
	Similarity float64    `json:"similarity"`
	Provider   string     `json:"provider"`
}

// EmbeddingStore persists chunk vectors and answers nearest-neighbor
// queries scoped to one user's sessions and one provider.
type EmbeddingStore interface {
	CreateEmbedding(ctx context.Context, sessionID uuid.UUID, blockID *uuid.UUID, provider string, vector []float32, text string) error
	// DeleteBySession clears a session's rows for one provider so a
	// redelivered job regenerates the index instead of duplicating it.
	DeleteBySession(ctx context.Context, sessionID uuid.UUID, provider string) error
	FindSimilar(ctx context.Context, userID uuid.UUID, vector []float32, provider string, limit int, threshold float64) ([]SearchHit, error)
}

// ObjectStorage is the bucket surface the services need: signed client
// URLs for direct uploads and downloads, worker-side reads, and cleanup.
type ObjectStorage interface {
	IssueUploadURL(ctx context.Context, objectKey, contentType string) (string, error)
	IssueDownloadURL(ctx context.Context, objectKey string) (string, error)
	ReadObject(ctx context.Context, objectKey string) (io.ReadCloser, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// MediaLookup is the worker-side view of uploaded media, used by the
// processing pipeline to find audio and images worth enriching.
type MediaLookup interface {
	ListUploadedBySession(ctx context.Context, sessionID uuid.UUID) ([]models.MediaFile, error)
}
