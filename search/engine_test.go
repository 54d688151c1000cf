package search_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclens/bioindex/ai/mock"
	"github.com/civiclens/bioindex/chunker"
	"github.com/civiclens/bioindex/core"
	"github.com/civiclens/bioindex/ingestion"
	"github.com/civiclens/bioindex/search"
	"github.com/civiclens/bioindex/storage"
	storagebadger "github.com/civiclens/bioindex/storage/badger"
)

// ingestFixtures loads two subjects through the real controller so queries
// run against records produced by the actual pipeline.
func ingestFixtures(t *testing.T) (storage.Index, *mock.MockEmbedder, func()) {
	t.Helper()

	idx, err := storagebadger.NewMemoryIndex()
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	ctrl, err := ingestion.NewController(idx, embedder)
	require.NoError(t, err)
	defer ctrl.Release()

	docs := []*core.Document{
		{
			ID:         "ada-lovelace",
			Name:       "Ada Lovelace",
			SourceURL:  "https://example.org/ada-lovelace",
			RawContent: "Ada Lovelace was an English mathematician known for her work on the analytical engine.",
			Speeches:   []string{"The analytical engine weaves algebraical patterns."},
		},
		{
			ID:         "alan-turing",
			Name:       "Alan Turing",
			SourceURL:  "https://example.org/alan-turing",
			RawContent: "Alan Turing was a pioneer of theoretical computer science.",
			Statements: []string{"We can only see a short distance ahead."},
		},
	}
	for _, doc := range docs {
		_, err := ctrl.Ingest(context.Background(), doc, chunker.DefaultConfig(), false)
		require.NoError(t, err)
	}

	return idx, embedder, func() { idx.Close() }
}

func TestNewEngine_Validation(t *testing.T) {
	idx, err := storagebadger.NewMemoryIndex()
	require.NoError(t, err)
	defer idx.Close()

	_, err = search.NewEngine(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, search.ErrIndexRequired)

	_, err = search.NewEngine(idx, nil)
	assert.ErrorIs(t, err, search.ErrEmbedderRequired)
}

func TestQuery(t *testing.T) {
	idx, embedder, cleanup := ingestFixtures(t)
	defer cleanup()

	engine, err := search.NewEngine(idx, embedder)
	require.NoError(t, err)

	// The mock embedder is deterministic, so querying with a stored text
	// must rank that exact passage first.
	passages, err := engine.Query(context.Background(),
		"The analytical engine weaves algebraical patterns.", 2, core.Filter{})
	require.NoError(t, err)
	require.Len(t, passages, 2)

	top := passages[0]
	assert.Equal(t, "ada-lovelace", top.DocumentID)
	assert.Equal(t, "Ada Lovelace", top.Subject)
	assert.Equal(t, core.SectionSpeech, top.Section)
	assert.Equal(t, "The analytical engine weaves algebraical patterns.", top.Text)
	assert.Equal(t, "https://example.org/ada-lovelace", top.SourceURL)
	assert.InDelta(t, 1.0, top.Score, 1e-5)
	assert.GreaterOrEqual(t, top.Score, passages[1].Score)
}

func TestQuery_DefaultTopK(t *testing.T) {
	idx, embedder, cleanup := ingestFixtures(t)
	defer cleanup()

	engine, err := search.NewEngine(idx, embedder)
	require.NoError(t, err)

	// Four records are stored; topK <= 0 must cap results at DefaultTopK.
	passages, err := engine.Query(context.Background(), "computing history", 0, core.Filter{})
	require.NoError(t, err)
	assert.Len(t, passages, search.DefaultTopK)
}

func TestQuery_Filters(t *testing.T) {
	idx, embedder, cleanup := ingestFixtures(t)
	defer cleanup()

	engine, err := search.NewEngine(idx, embedder)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("by subject", func(t *testing.T) {
		passages, err := engine.Query(ctx, "computing history", 10, core.Filter{Subject: "Alan Turing"})
		require.NoError(t, err)
		require.NotEmpty(t, passages)
		for _, p := range passages {
			assert.Equal(t, "Alan Turing", p.Subject)
		}
	})

	t.Run("by section", func(t *testing.T) {
		passages, err := engine.Query(ctx, "computing history", 10, core.Filter{Section: core.SectionStatement})
		require.NoError(t, err)
		require.Len(t, passages, 1)
		assert.Equal(t, core.SectionStatement, passages[0].Section)
	})

	t.Run("filter miss is empty not error", func(t *testing.T) {
		passages, err := engine.Query(ctx, "computing history", 10, core.Filter{Subject: "Grace Hopper"})
		require.NoError(t, err)
		assert.Empty(t, passages)
	})
}

func TestQuery_EmptyIndex(t *testing.T) {
	idx, err := storagebadger.NewMemoryIndex()
	require.NoError(t, err)
	defer idx.Close()

	engine, err := search.NewEngine(idx, mock.NewMockEmbedder())
	require.NoError(t, err)

	passages, err := engine.Query(context.Background(), "anything at all", 5, core.Filter{})
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestQuery_EmptyText(t *testing.T) {
	idx, _, cleanup := ingestFixtures(t)
	defer cleanup()

	engine, err := search.NewEngine(idx, mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = engine.Query(context.Background(), "   ", 5, core.Filter{})
	assert.ErrorIs(t, err, search.ErrEmbeddingUnavailable)
}

func TestQuery_EmbedderFailure(t *testing.T) {
	idx, _, cleanup := ingestFixtures(t)
	defer cleanup()

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}

	engine, err := search.NewEngine(idx, embedder)
	require.NoError(t, err)

	_, err = engine.Query(context.Background(), "computing history", 5, core.Filter{})
	assert.ErrorIs(t, err, search.ErrEmbeddingUnavailable)
}

type recordingMonitor struct {
	started   bool
	embedded  bool
	searched  int
	finished  int
}

func (r *recordingMonitor) Start(_ string, _ int)       { r.started = true }
func (r *recordingMonitor) AfterEmbedding(_ []float32)  { r.embedded = true }
func (r *recordingMonitor) AfterSearch(m []*core.Match) { r.searched = len(m) }
func (r *recordingMonitor) Finish(p []*core.Passage)    { r.finished = len(p) }

func TestQueryWithMonitor(t *testing.T) {
	idx, embedder, cleanup := ingestFixtures(t)
	defer cleanup()

	engine, err := search.NewEngine(idx, embedder)
	require.NoError(t, err)

	monitor := &recordingMonitor{}
	passages, err := engine.QueryWithMonitor(context.Background(), "computing history", 2, core.Filter{}, monitor)
	require.NoError(t, err)

	assert.True(t, monitor.started)
	assert.True(t, monitor.embedded)
	assert.Equal(t, len(passages), monitor.searched)
	assert.Equal(t, len(passages), monitor.finished)
}
