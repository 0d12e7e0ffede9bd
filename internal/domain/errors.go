package domain

import "errors"

var (
	// ErrInvalidQuery signals a query that is empty after normalization.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrDimensionMismatch signals a vector dimension mismatch between the
	// index and the embedding provider. This is a deployment bug, never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrIndexNotLoaded signals a search against an index that was never built.
	ErrIndexNotLoaded = errors.New("vector index not loaded")
	// ErrOracleUnavailable signals a category oracle failure. It stays inside
	// the oracle adapter; the retrieval path degrades to no prediction.
	ErrOracleUnavailable = errors.New("category oracle unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
