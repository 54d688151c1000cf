package chunker

import "errors"

var (
	// ErrInvalidConfig indicates the chunking configuration is unusable.
	ErrInvalidConfig = errors.New("invalid chunker config")
)
