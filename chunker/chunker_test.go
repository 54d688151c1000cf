package chunker

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/civiclens/bioindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func testDocument() *core.Document {
	return &core.Document{
		ID:        "jane-doe-20240101",
		Name:      "Jane Doe",
		SourceURL: "https://en.wikipedia.org/wiki/Jane_Doe",
		Timestamp: time.Now().UTC().Add(-time.Hour),
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		assert.NoError(t, DefaultConfig().Validate())
	})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero window", Config{WindowSize: 0, Overlap: 0}},
		{"negative window", Config{WindowSize: -5}},
		{"overlap equals window", Config{WindowSize: 10, Overlap: 10}},
		{"overlap exceeds window", Config{WindowSize: 10, Overlap: 20}},
		{"negative overlap", Config{WindowSize: 10, Overlap: -1}},
		{"negative min chunk", Config{WindowSize: 10, Overlap: 2, MinChunkTokens: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSplit_Windowing(t *testing.T) {
	doc := testDocument()
	doc.RawContent = words(500)

	cfg := Config{WindowSize: 200, Overlap: 50, MinChunkTokens: 25}
	chunks, err := Split(doc, cfg)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.WindowIndex)
		assert.Equal(t, i, chunk.SequenceIndex)
		assert.Equal(t, doc.ID, chunk.DocumentID)
		assert.Equal(t, "Jane Doe", chunk.Subject)
		assert.Equal(t, core.SectionBiography, chunk.Section)
		assert.Equal(t, 0, chunk.ItemIndex)
	}

	// Spans cover the full section with 50-token overlaps between pairs.
	assert.Equal(t, 0, chunks[0].SpanStart)
	assert.Equal(t, len(doc.RawContent), chunks[2].SpanEnd)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "w0 "))
	assert.True(t, strings.HasSuffix(chunks[2].Text, "w499"))

	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	third := strings.Fields(chunks[2].Text)
	require.Len(t, first, 200)
	require.Len(t, second, 200)
	require.Len(t, third, 200)
	assert.Equal(t, first[150:], second[:50])
	assert.Equal(t, second[150:], third[:50])
}

func TestSplit_Deterministic(t *testing.T) {
	doc := testDocument()
	doc.RawContent = words(450)
	doc.Speeches = []string{words(80), words(300)}

	cfg := DefaultConfig()
	a, err := Split(doc, cfg)
	require.NoError(t, err)
	b, err := Split(doc, cfg)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Text, b[i].Text)
		assert.Equal(t, a[i].SpanStart, b[i].SpanStart)
		assert.Equal(t, a[i].SpanEnd, b[i].SpanEnd)
	}
}

func TestSplit_ShortTailFolds(t *testing.T) {
	doc := testDocument()
	// 12 tokens, window 10, no overlap: the 2-token tail is below the
	// minimum and must extend the first window instead of standing alone.
	doc.RawContent = words(12)

	chunks, err := Split(doc, Config{WindowSize: 10, Overlap: 0, MinChunkTokens: 3})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, doc.RawContent, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].SpanStart)
	assert.Equal(t, len(doc.RawContent), chunks[0].SpanEnd)
}

func TestSplit_TailAboveMinimumStands(t *testing.T) {
	doc := testDocument()
	doc.RawContent = words(15)

	chunks, err := Split(doc, Config{WindowSize: 10, Overlap: 0, MinChunkTokens: 3})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Len(t, strings.Fields(chunks[0].Text), 10)
	assert.Len(t, strings.Fields(chunks[1].Text), 5)
}

func TestSplit_SectionOrderAndIndices(t *testing.T) {
	doc := testDocument()
	doc.RawContent = "short biography text here"
	doc.Speeches = []string{"first speech text", "second speech text"}
	doc.Statements = []string{"a statement"}
	doc.News = []string{"a news article"}

	chunks, err := Split(doc, Config{WindowSize: 100, Overlap: 10, MinChunkTokens: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 5)

	assert.Equal(t, core.SectionBiography, chunks[0].Section)
	assert.Equal(t, core.SectionSpeech, chunks[1].Section)
	assert.Equal(t, 0, chunks[1].ItemIndex)
	assert.Equal(t, core.SectionSpeech, chunks[2].Section)
	assert.Equal(t, 1, chunks[2].ItemIndex)
	assert.Equal(t, core.SectionStatement, chunks[3].Section)
	assert.Equal(t, core.SectionNews, chunks[4].Section)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.SequenceIndex)
		assert.Equal(t, 0, chunk.WindowIndex)
	}
}

func TestSplit_EmptySections(t *testing.T) {
	t.Run("no sections yields no chunks", func(t *testing.T) {
		chunks, err := Split(testDocument(), DefaultConfig())
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("whitespace-only items are skipped", func(t *testing.T) {
		doc := testDocument()
		doc.Speeches = []string{"   \n\t  ", "actual speech content"}
		chunks, err := Split(doc, Config{WindowSize: 100, Overlap: 0, MinChunkTokens: 1})
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		// Item index reflects the scraped position, not the emitted order.
		assert.Equal(t, 1, chunks[0].ItemIndex)
		assert.Equal(t, 0, chunks[0].SequenceIndex)
	})
}

func TestSplit_InvalidInput(t *testing.T) {
	t.Run("invalid document", func(t *testing.T) {
		doc := testDocument()
		doc.ID = ""
		_, err := Split(doc, DefaultConfig())
		assert.ErrorIs(t, err, core.ErrInvalidDocument)
	})

	t.Run("invalid config", func(t *testing.T) {
		doc := testDocument()
		doc.RawContent = "some text"
		_, err := Split(doc, Config{WindowSize: 10, Overlap: 10})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestTokenizeOffsets(t *testing.T) {
	text := "  one two\tthree  "
	tokens := tokenize(text)
	require.Len(t, tokens, 3)
	assert.Equal(t, "one", text[tokens[0].start:tokens[0].end])
	assert.Equal(t, "two", text[tokens[1].start:tokens[1].end])
	assert.Equal(t, "three", text[tokens[2].start:tokens[2].end])
}
