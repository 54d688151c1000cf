package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/civiclens/bioindex/ai"
	"github.com/civiclens/bioindex/core"
	"github.com/civiclens/bioindex/storage"
)

// DefaultTopK is the number of passages returned when the caller does not
// ask for a specific count.
const DefaultTopK = 3

// Engine answers natural-language queries over the ingested passages.
type Engine struct {
	index    storage.Index
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a new query engine.
func NewEngine(index storage.Index, embedder ai.Embedder, opts ...Option) (*Engine, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		index:    index,
		embedder: embedder,
		logger:   slog.Default().With("component", "search"),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Query embeds text and returns up to topK passages ranked by similarity,
// narrowed by the filter. A topK of zero or less falls back to DefaultTopK.
// No matching records yields an empty slice, not an error.
func (e *Engine) Query(ctx context.Context, text string, topK int, filter core.Filter) ([]*core.Passage, error) {
	return e.QueryWithMonitor(ctx, text, topK, filter, nil)
}

// QueryWithMonitor is Query with stage callbacks for observability.
func (e *Engine) QueryWithMonitor(ctx context.Context, text string, topK int, filter core.Filter, monitor QueryMonitor) ([]*core.Passage, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	monitor.Start(text, topK)

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text is empty", ErrEmbeddingUnavailable)
	}

	vector, err := e.embedder.EmbedText(ctx, text)
	if err != nil {
		e.logger.Error("error embedding query", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
	}
	monitor.AfterEmbedding(vector)

	matches, err := e.index.Search(ctx, vector, topK, filter)
	if err != nil {
		e.logger.Error("error searching index", "err", err)
		return nil, err
	}
	monitor.AfterSearch(matches)

	passages := make([]*core.Passage, 0, len(matches))
	for _, match := range matches {
		record := match.Record
		passages = append(passages, &core.Passage{
			ChunkID:    record.ID,
			DocumentID: record.DocumentID,
			Subject:    record.Subject,
			Section:    record.Section,
			Text:       record.Text,
			Score:      match.Score,
			SourceURL:  record.SourceURL,
		})
	}

	monitor.Finish(passages)
	return passages, nil
}
