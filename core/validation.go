// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
	"time"
)

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Name must not be empty
//   - Timestamp must not be in the future
//
// NOT validated:
//   - Section texts (a document with no sections is valid and yields no chunks)
//   - SourceURL (optional, provenance display only)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingDocumentID)
	}

	if doc.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrMissingSubjectName)
	}

	if !doc.Timestamp.IsZero() && !IsValidTimestamp(doc.Timestamp) {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrInvalidTimestamp)
	}

	return nil
}

// ValidateSectionKind validates that a SectionKind has a valid value.
func ValidateSectionKind(kind SectionKind) error {
	switch kind {
	case SectionBiography, SectionSpeech, SectionStatement, SectionNews:
		return nil
	default:
		return fmt.Errorf("%w: value %d", ErrInvalidSectionKind, kind)
	}
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
