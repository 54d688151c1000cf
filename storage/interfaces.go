package storage

import (
	"context"

	"github.com/civiclens/bioindex/core"
)

// Index is the storage and search capability over embedding records.
// Two interchangeable implementations exist: the durable badger-backed
// variant and the flat in-memory fallback. Both must produce identical
// rankings for identical inputs; callers never branch on which variant
// is active.
//
// Implementations must be thread-safe and support concurrent access.
type Index interface {
	// Upsert inserts or replaces records keyed by chunk ID and returns the
	// number of records written. Replacing an existing ID updates its vector
	// and metadata in place. The whole batch is applied atomically: a
	// concurrent Search observes either none or all of it.
	Upsert(ctx context.Context, records []*core.EmbeddingRecord) (int, error)

	// DeleteByDocument removes every record belonging to the document and
	// returns the number removed. A document with no records removes zero
	// and is not an error.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// Search returns at most topK records matching the filter, ordered by
	// descending similarity to the query vector, ties broken by ascending
	// chunk ID. The filter is applied before truncation, so filtered-out
	// records never occupy a result slot. An empty index returns an empty
	// slice, not an error.
	Search(ctx context.Context, vector []float32, topK int, filter core.Filter) ([]*core.Match, error)

	// Count returns the number of stored records matching the filter.
	Count(ctx context.Context, filter core.Filter) (int, error)

	// Close closes the index and releases resources.
	Close() error
}
