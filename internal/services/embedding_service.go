package services

import (
	"context"

	"secondbrain_go_backend/internal/models"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingService implements EmbeddingStore on the pgvector-backed
// embeddings table. Similarity queries use the cosine distance operator
// (`<=>`); similarity = 1 - distance.
type EmbeddingService struct {
	db *gorm.DB
}

func NewEmbeddingService(db *gorm.DB) *EmbeddingService {
	return &EmbeddingService{db: db}
}

func (s *EmbeddingService) CreateEmbedding(ctx context.Context, sessionID uuid.UUID, blockID *uuid.UUID, provider string, vector []float32, text string) error {
	row := &models.Embedding{
		SessionID: sessionID,
		BlockID:   blockID,
		Provider:  provider,
		Embedding: pgvector.NewVector(vector),
		Text:      text,
	}
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *EmbeddingService) DeleteBySession(ctx context.Context, sessionID uuid.UUID, provider string) error {
	return s.db.WithContext(ctx).
		Where("session_id = ? AND provider = ?", sessionID, provider).
		Delete(&models.Embedding{}).Error
}

// FindSimilar ranks the user's embeddings by cosine similarity to vector.
// Rows from other providers are excluded: cosine distance across provider
// vector spaces is meaningless.
func (s *EmbeddingService) FindSimilar(ctx context.Context, userID uuid.UUID, vector []float32, provider string, limit int, threshold float64) ([]SearchHit, error) {
	queryVec := pgvector.NewVector(vector)
	distanceCeiling := 1.0 - threshold

	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT e.session_id, e.block_id, e.text, e.provider,
		       (e.embedding <=> ?) AS distance
		FROM embeddings e
		JOIN sessions s ON s.id = e.session_id
		WHERE s.user_id = ?
		  AND e.provider = ?
		  AND (e.embedding <=> ?) < ?
		ORDER BY e.embedding <=> ?
		LIMIT ?`,
		queryVec, userID, provider, queryVec, distanceCeiling, queryVec, limit,
	).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var (
			hit      SearchHit
			distance float64
		)
		if err := rows.Scan(&hit.SessionID, &hit.BlockID, &hit.Text, &hit.Provider, &distance); err != nil {
			return nil, err
		}
		hit.Similarity = clamp01(1.0 - distance)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
