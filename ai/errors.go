package ai

import "errors"

var (
	// ErrEmptyInput is returned when an embedder is asked to embed empty
	// or whitespace-only text. Embedders never return a zero vector instead.
	ErrEmptyInput = errors.New("cannot embed empty text")
)
