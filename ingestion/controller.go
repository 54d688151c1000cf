package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/civiclens/bioindex/ai"
	"github.com/civiclens/bioindex/chunker"
	"github.com/civiclens/bioindex/core"
	"github.com/civiclens/bioindex/storage"
)

// DefaultBatchSize is the number of chunk texts sent to the embedding
// provider per request.
const DefaultBatchSize = 16

// Defaults for retrying failed embedding requests.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second
)

// Controller orchestrates ingestion of scraped documents: chunking,
// embedding, and writing to the index. Embedding batches run concurrently
// on a worker pool; the index write happens once, after every batch has
// succeeded.
type Controller struct {
	index      storage.Index
	embedder   ai.Embedder
	pool       *ants.Pool
	batchSize  int
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(c *Controller) error {
		if size < 1 {
			size = 1
		}
		if c.pool != nil {
			c.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		c.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of chunk texts per embedding request.
func WithBatchSize(size int) Option {
	return func(c *Controller) error {
		if size > 0 {
			c.batchSize = size
		}
		return nil
	}
}

// WithRetry sets the retry policy for failed embedding requests.
// maxRetries must be positive; a run out of attempts fails the whole call.
func WithRetry(maxRetries int, retryDelay time.Duration) Option {
	return func(c *Controller) error {
		if maxRetries <= 0 {
			return ErrInvalidMaxAttempts
		}
		c.maxRetries = maxRetries
		if retryDelay > 0 {
			c.retryDelay = retryDelay
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewController creates a new ingestion controller.
func NewController(index storage.Index, embedder ai.Embedder, opts ...Option) (*Controller, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		index:      index,
		embedder:   embedder,
		pool:       pool,
		batchSize:  DefaultBatchSize,
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if optErr := opt(c); optErr != nil {
			c.Release()
			return nil, optErr
		}
	}

	return c, nil
}

// Report summarizes the outcome of one Ingest call.
type Report struct {
	Inserted int // records written to the index
	Skipped  int // existing records left untouched
	Deleted  int // stale records removed before a forced rebuild
}

// Ingest processes one document. A document that already has records in
// the index is skipped unless force is set; force removes the previous
// records first and rebuilds them. Chunk IDs are deterministic, so a
// rebuild of unchanged content lands on the same IDs.
func (c *Controller) Ingest(ctx context.Context, doc *core.Document, cfg chunker.Config, force bool) (*Report, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	report := &Report{}

	existing, err := c.index.Count(ctx, core.Filter{DocumentID: doc.ID})
	if err != nil {
		return nil, err
	}

	if existing > 0 && !force {
		c.logger.Info("document already ingested, skipping",
			"document", doc.ID, "records", existing)
		report.Skipped = existing
		return report, nil
	}

	chunks, err := chunker.Split(doc, cfg)
	if err != nil {
		return nil, err
	}

	vectors, err := c.embedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	if existing > 0 {
		deleted, err := c.index.DeleteByDocument(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
		report.Deleted = deleted
	}

	if len(chunks) == 0 {
		c.logger.Info("document produced no chunks", "document", doc.ID)
		return report, nil
	}

	now := time.Now().UTC()
	records := make([]*core.EmbeddingRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = &core.EmbeddingRecord{
			Chunk:      chunk,
			SourceURL:  doc.SourceURL,
			Vector:     vectors[i],
			InsertedAt: now,
			UpdatedAt:  now,
		}
	}

	inserted, err := c.index.Upsert(ctx, records)
	if err != nil {
		return nil, err
	}
	report.Inserted = inserted

	c.logger.Info("document ingested",
		"document", doc.ID, "subject", doc.Name,
		"inserted", report.Inserted, "deleted", report.Deleted)
	return report, nil
}

// embedChunks embeds chunk texts in batches on the worker pool. Any batch
// failure fails the whole call; partial results are discarded.
func (c *Controller) embedChunks(ctx context.Context, chunks []core.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(chunks))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for start := 0; start < len(chunks); start += c.batchSize {
		end := start + c.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		offset := start

		wg.Add(1)
		submitErr := c.pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, len(batch))
			for i, chunk := range batch {
				texts[i] = chunk.Text
			}

			var embedded [][]float32
			err := RetryWithBackoff(ctx, func() error {
				var embedErr error
				embedded, embedErr = c.embedder.EmbedTexts(ctx, texts)
				return embedErr
			}, c.maxRetries, c.retryDelay)
			if err == nil && len(embedded) != len(texts) {
				err = fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embedded))
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			copy(vectors[offset:], embedded)
		})
		if submitErr != nil {
			wg.Done()
			wg.Wait()
			return nil, submitErr
		}
	}

	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, firstErr)
	}
	return vectors, nil
}

// Release releases the worker pool.
// The controller should not be used after calling Release.
func (c *Controller) Release() {
	if c.pool != nil {
		c.pool.Release()
	}
}
