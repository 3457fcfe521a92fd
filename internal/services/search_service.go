package services

import (
	"context"
	"fmt"
	"strings"

	"secondbrain_go_backend/internal/ai"

	"github.com/google/uuid"
)

const (
	DefaultSearchLimit     = 10
	MaxSearchLimit         = 50
	DefaultSearchThreshold = 0.7
)

// SearchService answers semantic queries over a user's processed sessions.
// The query is embedded with the same provider that produced the stored
// vectors, so distances are comparable.
type SearchService struct {
	store    EmbeddingStore
	embedder ai.Provider
}

func NewSearchService(store EmbeddingStore, embedder ai.Provider) *SearchService {
	return &SearchService{store: store, embedder: embedder}
}

// Search returns hits with similarity >= threshold, best first. An empty
// result set is a valid outcome, not an error.
func (s *SearchService) Search(ctx context.Context, userID uuid.UUID, query string, limit int, threshold float64) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSearchThreshold
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		// An upstream outage is retryable for the caller, unlike a bad
		// request or a store failure.
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return s.store.FindSimilar(ctx, userID, vector, s.embedder.Name(), limit, threshold)
}
