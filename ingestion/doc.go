// Package ingestion turns scraped documents into searchable embedding
// records.
//
// The Controller type manages the ingestion workflow for a document:
//   - Splitting section items into overlapping chunks
//   - Generating embeddings concurrently using a worker pool
//   - Writing the records to the index in a single upsert
//
// Re-ingesting a document is idempotent: a document that already has
// records in the index is skipped unless force is set, in which case its
// previous records are removed and rebuilt. Embedding failures abort the
// whole call before anything is written.
package ingestion
