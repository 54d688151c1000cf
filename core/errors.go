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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation and cannot be chunked.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrMissingDocumentID indicates the document has no id.
	ErrMissingDocumentID = errors.New("document id is required")

	// ErrMissingSubjectName indicates the document has no subject name.
	ErrMissingSubjectName = errors.New("subject name is required")

	// ErrInvalidSectionKind indicates an unrecognized SectionKind value.
	ErrInvalidSectionKind = errors.New("invalid section kind")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")
)
