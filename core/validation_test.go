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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateWord(t *testing.T) {
	assert.NoError(t, ValidateWord("getName"))
	assert.NoError(t, ValidateWord("  x "))
	assert.ErrorIs(t, ValidateWord(""), ErrEmptyWord)
	assert.ErrorIs(t, ValidateWord(" \t\n"), ErrEmptyWord)
}

func TestValidateSearchContext(t *testing.T) {
	assert.NoError(t, ValidateSearchContext(ContextCode))
	assert.NoError(t, ValidateSearchContext(ContextAny))
	assert.ErrorIs(t, ValidateSearchContext(ContextNone), ErrInvalidSearchContext)
	assert.ErrorIs(t, ValidateSearchContext(SearchContext(0x80)), ErrInvalidSearchContext)
}

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		doc     *Document
		wantErr error
	}{
		{
			name: "valid document",
			doc:  &Document{Path: "src/a.js", Size: 16},
		},
		{
			name:    "nil document",
			doc:     nil,
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "empty path",
			doc:     &Document{Size: 3},
			wantErr: ErrEmptyPath,
		},
		{
			name:    "negative size",
			doc:     &Document{Path: "a.go", Size: -1},
			wantErr: ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.doc)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
			assert.ErrorIs(t, err, ErrInvalidDocument)
		})
	}
}

func TestValidateElement(t *testing.T) {
	assert.NoError(t, ValidateElement(Element{Start: 0, End: 0}))
	assert.NoError(t, ValidateElement(Element{Start: 2, End: 9, View: 1}))
	assert.ErrorIs(t, ValidateElement(Element{Start: 5, End: 4}), ErrInvalidElement)
	assert.ErrorIs(t, ValidateElement(Element{Start: -1, End: 4}), ErrInvalidElement)
	assert.ErrorIs(t, ValidateElement(Element{Start: 0, End: 4, View: -2}), ErrInvalidElement)
}
