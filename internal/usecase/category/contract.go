package category

import (
	"context"

	"github.com/zoomfind/prodex/internal/domain"
	domcat "github.com/zoomfind/prodex/internal/domain/category"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Oracle picks the best candidate for a query. A nil prediction with nil
// error means the oracle declined every candidate.
type Oracle interface {
	Select(ctx context.Context, queryText string, candidates []domcat.Candidate) (*domcat.Prediction, error)
}
