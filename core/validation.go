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
	"strings"
)

// ValidateWord checks that a search word has content after trimming.
func ValidateWord(word string) error {
	if strings.TrimSpace(word) == "" {
		return ErrEmptyWord
	}
	return nil
}

// ValidateSearchContext checks that a mask is non-empty and only uses known bits.
func ValidateSearchContext(c SearchContext) error {
	if c == ContextNone {
		return fmt.Errorf("%w: mask is empty", ErrInvalidSearchContext)
	}
	if c&^ContextAny != 0 {
		return fmt.Errorf("%w: unknown bits %#x", ErrInvalidSearchContext, uint8(c&^ContextAny))
	}
	return nil
}

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Path must not be empty
//   - Size must not be negative
//
// NOT validated (populated by the repository):
//   - ID (assigned from the document sequence)
//   - Digest, IndexedAt, UpdatedAt
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Path == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyPath)
	}

	if doc.Size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidDocument, doc.Size)
	}

	return nil
}

// ValidateElement checks that an element addresses a non-inverted range.
func ValidateElement(e Element) error {
	if e.Start < 0 || e.End < e.Start {
		return fmt.Errorf("%w: range [%d,%d)", ErrInvalidElement, e.Start, e.End)
	}
	if e.View < 0 {
		return fmt.Errorf("%w: view %d", ErrInvalidElement, e.View)
	}
	return nil
}
