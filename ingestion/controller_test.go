package ingestion_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civiclens/bioindex/ai/mock"
	"github.com/civiclens/bioindex/chunker"
	"github.com/civiclens/bioindex/core"
	"github.com/civiclens/bioindex/ingestion"
	storagebadger "github.com/civiclens/bioindex/storage/badger"
)

func testDocument() *core.Document {
	return &core.Document{
		ID:         "ada-lovelace",
		Name:       "Ada Lovelace",
		SourceURL:  "https://example.org/ada-lovelace",
		RawContent: "Ada Lovelace was an English mathematician chiefly known for her work on the analytical engine.",
		Speeches: []string{
			"The analytical engine weaves algebraical patterns just as the loom weaves flowers and leaves.",
		},
		Statements: []string{
			"Imagination is the discovering faculty, pre-eminently.",
		},
		Timestamp: time.Now().UTC().Add(-time.Hour),
	}
}

func newController(t *testing.T) (*ingestion.Controller, *mock.MockEmbedder, func()) {
	t.Helper()

	idx, err := storagebadger.NewMemoryIndex()
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	ctrl, err := ingestion.NewController(idx, embedder,
		ingestion.WithPoolSize(2),
		ingestion.WithRetry(1, time.Millisecond))
	require.NoError(t, err)

	cleanup := func() {
		ctrl.Release()
		idx.Close()
	}
	return ctrl, embedder, cleanup
}

func TestNewController_Validation(t *testing.T) {
	idx, err := storagebadger.NewMemoryIndex()
	require.NoError(t, err)
	defer idx.Close()

	_, err = ingestion.NewController(nil, mock.NewMockEmbedder())
	assert.ErrorIs(t, err, ingestion.ErrIndexRequired)

	_, err = ingestion.NewController(idx, nil)
	assert.ErrorIs(t, err, ingestion.ErrEmbedderRequired)
}

func TestIngest(t *testing.T) {
	ctrl, _, cleanup := newController(t)
	defer cleanup()

	report, err := ctrl.Ingest(context.Background(), testDocument(), chunker.DefaultConfig(), false)
	require.NoError(t, err)

	// One chunk per short section item.
	assert.Equal(t, 3, report.Inserted)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Deleted)
}

func TestIngest_SkipsAlreadyIngested(t *testing.T) {
	ctrl, embedder, cleanup := newController(t)
	defer cleanup()

	ctx := context.Background()
	doc := testDocument()

	report, err := ctrl.Ingest(ctx, doc, chunker.DefaultConfig(), false)
	require.NoError(t, err)
	require.Equal(t, 3, report.Inserted)

	callsAfterFirst := embedder.CallCount()

	report, err = ctrl.Ingest(ctx, doc, chunker.DefaultConfig(), false)
	require.NoError(t, err)
	assert.Zero(t, report.Inserted)
	assert.Equal(t, 3, report.Skipped)
	assert.Equal(t, callsAfterFirst, embedder.CallCount(), "skip must not call the embedder")
}

func TestIngest_ForceRebuilds(t *testing.T) {
	ctrl, _, cleanup := newController(t)
	defer cleanup()

	ctx := context.Background()
	doc := testDocument()

	_, err := ctrl.Ingest(ctx, doc, chunker.DefaultConfig(), false)
	require.NoError(t, err)

	// Drop a speech so the rebuild produces fewer records.
	doc.Speeches = nil
	report, err := ctrl.Ingest(ctx, doc, chunker.DefaultConfig(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Deleted)
	assert.Equal(t, 2, report.Inserted)
	assert.Zero(t, report.Skipped)
}

func TestIngest_EmbeddingFailureWritesNothing(t *testing.T) {
	ctrl, embedder, cleanup := newController(t)
	defer cleanup()

	idxErr := errors.New("connection refused")
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, idxErr
	}

	ctx := context.Background()
	_, err := ctrl.Ingest(ctx, testDocument(), chunker.DefaultConfig(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ingestion.ErrEmbeddingUnavailable)

	// A retry with a working embedder must not be treated as a re-ingest.
	embedder.Reset()
	report, err := ctrl.Ingest(ctx, testDocument(), chunker.DefaultConfig(), false)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Inserted)
	assert.Zero(t, report.Skipped)
}

func TestIngest_InvalidDocument(t *testing.T) {
	ctrl, _, cleanup := newController(t)
	defer cleanup()

	_, err := ctrl.Ingest(context.Background(), &core.Document{Name: "No ID"}, chunker.DefaultConfig(), false)
	assert.ErrorIs(t, err, core.ErrMissingDocumentID)
}

func TestIngest_EmptyDocument(t *testing.T) {
	ctrl, _, cleanup := newController(t)
	defer cleanup()

	doc := &core.Document{ID: "empty", Name: "Empty Profile"}
	report, err := ctrl.Ingest(context.Background(), doc, chunker.DefaultConfig(), false)
	require.NoError(t, err)
	assert.Zero(t, report.Inserted)
	assert.Zero(t, report.Skipped)
	assert.Zero(t, report.Deleted)
}

func TestIngest_DeterministicIDs(t *testing.T) {
	ctrl, _, cleanup := newController(t)
	defer cleanup()

	ctx := context.Background()
	doc := testDocument()

	_, err := ctrl.Ingest(ctx, doc, chunker.DefaultConfig(), false)
	require.NoError(t, err)

	first := collectIDs(t, ctrl, doc)

	_, err = ctrl.Ingest(ctx, doc, chunker.DefaultConfig(), true)
	require.NoError(t, err)

	assert.Equal(t, first, collectIDs(t, ctrl, doc), "forced rebuild of unchanged content must land on the same chunk IDs")
}

func collectIDs(t *testing.T, ctrl *ingestion.Controller, doc *core.Document) map[core.ID]bool {
	t.Helper()
	chunks, err := chunker.Split(doc, chunker.DefaultConfig())
	require.NoError(t, err)
	ids := make(map[core.ID]bool, len(chunks))
	for _, chunk := range chunks {
		ids[chunk.ID] = true
	}
	return ids
}

func TestIngest_ManyBatches(t *testing.T) {
	ctrl, embedder, cleanup := newController(t)
	defer cleanup()

	doc := &core.Document{
		ID:        "verbose-subject",
		Name:      "Verbose Subject",
		SourceURL: "https://example.org/verbose",
	}
	for i := 0; i < 40; i++ {
		doc.Speeches = append(doc.Speeches, fmt.Sprintf("Speech number %d about infrastructure and policy.", i))
	}

	report, err := ctrl.Ingest(context.Background(), doc, chunker.DefaultConfig(), false)
	require.NoError(t, err)
	assert.Equal(t, 40, report.Inserted)
	assert.Greater(t, embedder.CallCount(), 1, "40 chunks must span multiple embedding batches")
}
