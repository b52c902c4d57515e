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

package words

import (
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/refscan/core"
)

// Token is a maximal run of identifier characters.
// Start and End are byte offsets into the scanned text.
type Token struct {
	Text  string
	Start int
	End   int
}

// IsIdentifierRune reports whether r can be part of an identifier.
// Letters, digits, underscore and dollar sign qualify.
func IsIdentifierRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Tokens returns the identifier runs of text in order of appearance.
// The sequence can be ranged over any number of times.
func Tokens(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		start := -1
		for i, r := range text {
			if IsIdentifierRune(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(Token{Text: text[start:i], Start: start, End: i}) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			yield(Token{Text: text[start:], Start: start, End: len(text)})
		}
	}
}

// Normalize folds word to the form stored in the index for the given case mode.
// Case-insensitive keys map every rune through FoldRune, so two words that
// are equal under simple case folding always share a key.
func Normalize(word string, caseSensitive bool) string {
	if caseSensitive {
		return word
	}
	return strings.Map(FoldRune, word)
}

// FoldRune returns the representative of r's simple case folding orbit:
// the lower case form of the orbit's smallest member. Runes that fold to
// each other (K, k and the Kelvin sign; σ, ς and Σ) share a representative.
func FoldRune(r rune) rune {
	least := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		least = min(least, f)
	}
	return unicode.ToLower(least)
}

// Keys splits a search word into index keys, longest first.
//
// indexed is false when word has no identifier sub-structure. The single key
// returned in that case is the trimmed word itself, which never appears in
// the index; callers must scan without index support. A word that is empty
// after trimming yields no keys.
func Keys(word string, caseSensitive bool) (keys []core.WordKey, indexed bool) {
	seen := make(map[string]struct{})
	for tok := range Tokens(word) {
		w := Normalize(tok.Text, caseSensitive)
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		keys = append(keys, core.WordKey{Word: w, CaseSensitive: caseSensitive})
	}

	if len(keys) == 0 {
		trimmed := strings.TrimSpace(word)
		if trimmed == "" {
			return nil, false
		}
		return []core.WordKey{{Word: Normalize(trimmed, caseSensitive), CaseSensitive: caseSensitive}}, false
	}

	slices.SortStableFunc(keys, func(a, b core.WordKey) int {
		return utf8.RuneCountInString(b.Word) - utf8.RuneCountInString(a.Word)
	})
	return keys, true
}

// Signature renders a key set as a stable string usable as a map key.
func Signature(keys []core.WordKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.String()
	}
	slices.Sort(parts)
	return strings.Join(parts, "\x00")
}

// Union returns the keys of a followed by the keys of b not already in a.
func Union(a, b []core.WordKey) []core.WordKey {
	result := slices.Clone(a)
	for _, k := range b {
		if !slices.Contains(result, k) {
			result = append(result, k)
		}
	}
	return result
}
