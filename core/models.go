package core

import (
	"encoding/binary"
	"regexp"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored chunks.
// It is derived deterministically from the chunk's address within a document.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SectionKind identifies which part of a scraped record a chunk came from.
type SectionKind int

const (
	// SectionBiography is the subject's main biographical text.
	SectionBiography SectionKind = iota + 1
	// SectionSpeech is one transcribed speech.
	SectionSpeech
	// SectionStatement is one published statement.
	SectionStatement
	// SectionNews is one news article about the subject.
	SectionNews
)

// String returns the wire name of the section kind, matching the
// "type" metadata field used by the scraper output.
func (k SectionKind) String() string {
	switch k {
	case SectionBiography:
		return "biography"
	case SectionSpeech:
		return "speech"
	case SectionStatement:
		return "statement"
	case SectionNews:
		return "news"
	default:
		return "unknown"
	}
}

// ParseSectionKind parses a wire name into a SectionKind.
// Returns 0 and false for unrecognized names.
func ParseSectionKind(s string) (SectionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "biography", "raw_content":
		return SectionBiography, true
	case "speech":
		return SectionSpeech, true
	case "statement":
		return SectionStatement, true
	case "news":
		return SectionNews, true
	default:
		return 0, false
	}
}

// Document is one scraped subject record, produced by the scraper and
// read-only to the pipeline. Field names follow the scraper's JSON output.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SourceURL  string    `json:"source_url"`
	RawContent string    `json:"raw_content"`
	Speeches   []string  `json:"speeches"`
	Statements []string  `json:"statements"`
	News       []string  `json:"news"`
	Timestamp  time.Time `json:"timestamp"`
}

// Chunk is an addressable passage derived from a Document.
// Chunks are immutable; re-chunking an unchanged document with the same
// parameters reproduces identical IDs.
type Chunk struct {
	ID            ID
	DocumentID    string
	Subject       string
	Section       SectionKind
	ItemIndex     int // position of the source item within its section
	WindowIndex   int // position of the window within the item
	SequenceIndex int // position among all chunks of the document
	Text          string
	SpanStart     int // byte offset into the originating item text
	SpanEnd       int
}

// ChunkIDFor derives the chunk ID for the given address.
// Pure function of its arguments: the same address always yields the same ID.
func ChunkIDFor(documentID string, section SectionKind, itemIndex, windowIndex int) ID {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:], uint32(section))
	binary.LittleEndian.PutUint32(buf[4:], uint32(itemIndex))
	binary.LittleEndian.PutUint64(buf[8:], uint64(windowIndex))
	return IDFromContent(documentID + "\x00" + string(buf[:]))
}

// EmbeddingRecord pairs a chunk with its vector and the metadata used for
// filtering. Owned by the index backend once ingested.
type EmbeddingRecord struct {
	Chunk
	SourceURL  string
	Vector     []float32
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Filter restricts index operations to records matching all of its
// non-zero fields. The zero value matches every record.
type Filter struct {
	Subject    string
	Section    SectionKind
	DocumentID string
}

// IsZero reports whether the filter matches everything.
func (f Filter) IsZero() bool {
	return f.Subject == "" && f.Section == 0 && f.DocumentID == ""
}

// Matches reports whether the record satisfies every set field.
func (f Filter) Matches(r *EmbeddingRecord) bool {
	if f.Subject != "" && r.Subject != f.Subject {
		return false
	}
	if f.Section != 0 && r.Section != f.Section {
		return false
	}
	if f.DocumentID != "" && r.DocumentID != f.DocumentID {
		return false
	}
	return true
}

// Match is a scored index hit from vector similarity search.
type Match struct {
	Record *EmbeddingRecord
	Score  float32
}

// Passage is a ranked retrieval result with provenance, built from a Match.
type Passage struct {
	ChunkID    ID
	DocumentID string
	Subject    string
	Section    SectionKind
	Text       string
	Score      float32
	SourceURL  string
}

var slugStrip = regexp.MustCompile(`[^\w\s-]`)

// SlugFromName converts a subject name into the slug form used in document
// IDs, e.g. "Jane Doe" -> "jane-doe".
func SlugFromName(name string) string {
	s := slugStrip.ReplaceAllString(name, "")
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
