package health

import "context"

// IndexReader reports whether the vector index is loaded and ready.
type IndexReader interface {
	Loaded() bool
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger checks embedding cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}
