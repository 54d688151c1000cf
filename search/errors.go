package search

import "errors"

var (
	// ErrIndexRequired is returned when an index is not provided.
	ErrIndexRequired = errors.New("index required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmbeddingUnavailable is returned when the embedding provider cannot
	// produce a vector for the query text.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
)
