package retrieval

import (
	"context"

	"github.com/zoomfind/prodex/internal/domain"
	"github.com/zoomfind/prodex/internal/domain/catalog"
	domcat "github.com/zoomfind/prodex/internal/domain/category"
	"github.com/zoomfind/prodex/internal/domain/query"
	"github.com/zoomfind/prodex/internal/index"
)

// Expander normalizes and lexically expands raw query text.
type Expander interface {
	Expand(raw string) (query.Query, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorSearcher is the nearest-neighbor lookup over product embeddings.
type VectorSearcher interface {
	Search(vector []float32, k int) ([]index.Candidate, error)
}

// ProductReader resolves candidate IDs to products.
type ProductReader interface {
	Get(id string) (catalog.Product, bool)
}

// CategoryPredictor is the optional oracle branch. A nil prediction is a
// valid, expected outcome; implementations never return errors.
type CategoryPredictor interface {
	Predict(ctx context.Context, rawQuery, normalizedQuery string) *domcat.Prediction
}
