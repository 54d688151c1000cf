package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateDocument(t *testing.T) {
	valid := func() *Document {
		return &Document{
			ID:         "jane-doe-20240101",
			Name:       "Jane Doe",
			SourceURL:  "https://en.wikipedia.org/wiki/Jane_Doe",
			RawContent: "Jane Doe is a public figure.",
			Timestamp:  time.Now().UTC().Add(-time.Hour),
		}
	}

	t.Run("valid document", func(t *testing.T) {
		assert.NoError(t, ValidateDocument(valid()))
	})

	t.Run("nil document", func(t *testing.T) {
		err := ValidateDocument(nil)
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("missing id", func(t *testing.T) {
		doc := valid()
		doc.ID = ""
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrInvalidDocument)
		assert.ErrorIs(t, err, ErrMissingDocumentID)
	})

	t.Run("missing name", func(t *testing.T) {
		doc := valid()
		doc.Name = ""
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrMissingSubjectName)
	})

	t.Run("future timestamp", func(t *testing.T) {
		doc := valid()
		doc.Timestamp = time.Now().Add(time.Hour)
		err := ValidateDocument(doc)
		assert.ErrorIs(t, err, ErrInvalidTimestamp)
	})

	t.Run("zero timestamp allowed", func(t *testing.T) {
		doc := valid()
		doc.Timestamp = time.Time{}
		assert.NoError(t, ValidateDocument(doc))
	})

	t.Run("no sections is valid", func(t *testing.T) {
		doc := valid()
		doc.RawContent = ""
		doc.Speeches = nil
		doc.Statements = nil
		doc.News = nil
		assert.NoError(t, ValidateDocument(doc))
	})
}

func TestValidateSectionKind(t *testing.T) {
	for _, kind := range []SectionKind{SectionBiography, SectionSpeech, SectionStatement, SectionNews} {
		assert.NoError(t, ValidateSectionKind(kind))
	}
	assert.ErrorIs(t, ValidateSectionKind(0), ErrInvalidSectionKind)
	assert.ErrorIs(t, ValidateSectionKind(99), ErrInvalidSectionKind)
}
