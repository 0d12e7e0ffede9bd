package category

import (
	"context"

	"go.uber.org/zap"

	domcat "github.com/zoomfind/prodex/internal/domain/category"
	"github.com/zoomfind/prodex/internal/logger"
)

// Service is the category oracle boundary: candidate pre-retrieval followed
// by one LLM selection attempt, bounded by the caller's context deadline.
type Service struct {
	retriever *Retriever
	embedder  Embedder
	oracle    Oracle
	topK      int
}

// New creates a category service.
func New(retriever *Retriever, embedder Embedder, oracle Oracle, topK int) *Service {
	return &Service{retriever: retriever, embedder: embedder, oracle: oracle, topK: topK}
}

// Predict returns the oracle's category choice for the query, or nil when no
// prediction could be made. Failures are logged and swallowed here: an absent
// prediction is an expected outcome on the retrieval path, never an error.
func (s *Service) Predict(ctx context.Context, rawQuery, normalizedQuery string) *domcat.Prediction {
	log := logger.FromContext(ctx)

	emb, err := s.embedder.Embed(ctx, normalizedQuery)
	if err != nil {
		log.Warn("category query embedding failed, proceeding without prediction", zap.Error(err))
		return nil
	}

	candidates := s.retriever.TopK(emb.Embedding, normalizedQuery, s.topK)
	if len(candidates) == 0 {
		log.Debug("no subcategory candidates cleared the score floor")
		return nil
	}

	pred, err := s.oracle.Select(ctx, rawQuery, candidates)
	if err != nil {
		log.Warn("category oracle failed, proceeding without prediction", zap.Error(err))
		return nil
	}
	return pred
}
