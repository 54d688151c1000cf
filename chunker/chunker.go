package chunker

import (
	"fmt"

	"github.com/civiclens/bioindex/core"
)

// Default chunking parameters, sized for biographical prose.
const (
	DefaultWindowSize     = 200
	DefaultOverlap        = 50
	DefaultMinChunkTokens = 25
)

// Config controls how section text is split into windows.
type Config struct {
	// WindowSize is the maximum number of tokens per chunk.
	WindowSize int

	// Overlap is the number of tokens shared between consecutive windows.
	// Must be smaller than WindowSize.
	Overlap int

	// MinChunkTokens is the smallest tail window emitted standalone.
	// A shorter tail is folded into the previous window instead.
	MinChunkTokens int
}

// DefaultConfig returns the default chunking configuration.
func DefaultConfig() Config {
	return Config{
		WindowSize:     DefaultWindowSize,
		Overlap:        DefaultOverlap,
		MinChunkTokens: DefaultMinChunkTokens,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidConfig, c.WindowSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.WindowSize {
		return fmt.Errorf("%w: overlap must satisfy 0 <= overlap < window size, got %d", ErrInvalidConfig, c.Overlap)
	}
	if c.MinChunkTokens < 0 {
		return fmt.Errorf("%w: min chunk tokens must not be negative, got %d", ErrInvalidConfig, c.MinChunkTokens)
	}
	return nil
}

// sectionItem is one (kind, index, text) unit of a document.
type sectionItem struct {
	kind  core.SectionKind
	index int
	text  string
}

// sectionItems flattens a document into its ordered section items.
// The biography is a single item; speeches, statements and news keep
// their scraped order.
func sectionItems(doc *core.Document) []sectionItem {
	items := make([]sectionItem, 0, 1+len(doc.Speeches)+len(doc.Statements)+len(doc.News))
	items = append(items, sectionItem{kind: core.SectionBiography, index: 0, text: doc.RawContent})
	for i, text := range doc.Speeches {
		items = append(items, sectionItem{kind: core.SectionSpeech, index: i, text: text})
	}
	for i, text := range doc.Statements {
		items = append(items, sectionItem{kind: core.SectionStatement, index: i, text: text})
	}
	for i, text := range doc.News {
		items = append(items, sectionItem{kind: core.SectionNews, index: i, text: text})
	}
	return items
}

// Split breaks a document into overlapping chunks with deterministic IDs.
//
// For a fixed document and config, Split is a pure function: two runs yield
// identical chunk IDs, texts and spans. A document with no section text
// yields an empty slice, not an error.
func Split(doc *core.Document, cfg Config) ([]core.Chunk, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var chunks []core.Chunk
	sequence := 0
	for _, item := range sectionItems(doc) {
		emitted := splitItem(doc, item, cfg, &sequence)
		chunks = append(chunks, emitted...)
	}
	return chunks, nil
}

// splitItem slides the token window over one section item.
func splitItem(doc *core.Document, item sectionItem, cfg Config, sequence *int) []core.Chunk {
	tokens := tokenize(item.text)
	if len(tokens) == 0 {
		return nil
	}

	step := cfg.WindowSize - cfg.Overlap
	var chunks []core.Chunk
	window := 0
	for start := 0; start < len(tokens); start += step {
		remaining := len(tokens) - start
		if remaining < cfg.MinChunkTokens && len(chunks) > 0 {
			// Fold the short tail into the previous window.
			last := &chunks[len(chunks)-1]
			last.SpanEnd = tokens[len(tokens)-1].end
			last.Text = item.text[last.SpanStart:last.SpanEnd]
			break
		}

		end := start + cfg.WindowSize
		if end > len(tokens) {
			end = len(tokens)
		}

		spanStart := tokens[start].start
		spanEnd := tokens[end-1].end
		chunks = append(chunks, core.Chunk{
			ID:            core.ChunkIDFor(doc.ID, item.kind, item.index, window),
			DocumentID:    doc.ID,
			Subject:       doc.Name,
			Section:       item.kind,
			ItemIndex:     item.index,
			WindowIndex:   window,
			SequenceIndex: *sequence,
			Text:          item.text[spanStart:spanEnd],
			SpanStart:     spanStart,
			SpanEnd:       spanEnd,
		})
		window++
		*sequence++

		if end == len(tokens) {
			break
		}
	}
	return chunks
}

// token is a whitespace-delimited span of the item text.
type token struct {
	start int
	end   int
}

// tokenize splits text into whitespace-delimited tokens with byte offsets.
func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i := 0; i < len(text); i++ {
		if isSpace(text[i]) {
			if start >= 0 {
				tokens = append(tokens, token{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start: start, end: len(text)})
	}
	return tokens
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}
