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

package indexing

import (
	"slices"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
	"github.com/poiesic/refscan/syntax"
	"github.com/poiesic/refscan/words"
)

// Extract returns the postings of a parsed document. Every identifier run
// is recorded twice, once verbatim and once case-folded, together with the
// contexts it occurs in. Tokenization matches words.Keys so that query keys
// and index keys agree.
func Extract(doc *syntax.Document) []storage.Posting {
	masks := make(map[core.WordKey]core.SearchContext)
	for tok := range words.Tokens(doc.Text()) {
		ctx := doc.ContextAt(tok.Start)
		exact := core.WordKey{Word: tok.Text, CaseSensitive: true}
		folded := core.WordKey{Word: words.Normalize(tok.Text, false)}
		masks[exact] |= ctx
		masks[folded] |= ctx
	}

	postings := make([]storage.Posting, 0, len(masks))
	for key, mask := range masks {
		postings = append(postings, storage.Posting{Key: key, Context: mask})
	}
	slices.SortFunc(postings, func(a, b storage.Posting) int {
		if a.Key.Word != b.Key.Word {
			if a.Key.Word < b.Key.Word {
				return -1
			}
			return 1
		}
		switch {
		case a.Key.CaseSensitive == b.Key.CaseSensitive:
			return 0
		case a.Key.CaseSensitive:
			return 1
		default:
			return -1
		}
	})
	return postings
}
