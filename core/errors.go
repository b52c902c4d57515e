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
	// ErrEmptyWord indicates a search word is empty after trimming.
	ErrEmptyWord = errors.New("search word cannot be empty")

	// ErrInvalidSearchContext indicates a SearchContext mask is empty or out of range.
	ErrInvalidSearchContext = errors.New("invalid search context")

	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyPath indicates the document Path field is empty.
	ErrEmptyPath = errors.New("document path cannot be empty")

	// ErrInvalidElement indicates an Element has an inverted or negative range.
	ErrInvalidElement = errors.New("invalid element")
)
