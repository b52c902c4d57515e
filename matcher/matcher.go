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

package matcher

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/refscan/words"
)

// Options selects the matching semantics.
type Options struct {
	// CaseSensitive disables Unicode simple case folding.
	CaseSensitive bool
	// WholeWords requires matches not to be flanked by identifier characters
	// on a side where the pattern itself starts or ends with one.
	WholeWords bool
}

// Match is one raw match of the pattern.
type Match struct {
	Offset int // Byte offset of the match in the text
	Length int // Byte length of the matched text
	// Bounded is true when the match respects identifier boundaries.
	// Always true when WholeWords is off.
	Bounded bool
}

// Matcher is a compiled exact-match scanner. It is immutable and safe for
// concurrent use.
type Matcher struct {
	pattern      string
	folded       []rune // pattern runes through words.FoldRune
	opts         Options
	checkLeading bool
	checkTrail   bool
}

// New compiles a matcher for pattern.
func New(pattern string, opts Options) (*Matcher, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	if !utf8.ValidString(pattern) {
		return nil, ErrInvalidPattern
	}

	runes := []rune(pattern)
	folded := make([]rune, len(runes))
	for i, r := range runes {
		folded[i] = words.FoldRune(r)
	}
	m := &Matcher{
		pattern: pattern,
		folded:  folded,
		opts:    opts,
	}
	if opts.WholeWords {
		m.checkLeading = words.IsIdentifierRune(runes[0])
		m.checkTrail = words.IsIdentifierRune(runes[len(runes)-1])
	}
	return m, nil
}

// Pattern returns the pattern the matcher was compiled for.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// Options returns the options the matcher was compiled with.
func (m *Matcher) Options() Options {
	return m.opts
}

// All yields every raw match that starts in [start, end) and ends at or
// before end, in increasing offset order. Matches may overlap.
// The sequence is lazy and can be ranged over repeatedly.
func (m *Matcher) All(text string, start, end int) iter.Seq[Match] {
	start = max(start, 0)
	end = min(end, len(text))
	return func(yield func(Match) bool) {
		if start >= end {
			return
		}
		if m.opts.CaseSensitive {
			m.scanExact(text, start, end, yield)
			return
		}
		m.scanFolded(text, start, end, yield)
	}
}

// Offsets yields the offsets of bounded matches only.
func (m *Matcher) Offsets(text string, start, end int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for match := range m.All(text, start, end) {
			if !match.Bounded {
				continue
			}
			if !yield(match.Offset) {
				return
			}
		}
	}
}

// Contains reports whether text has at least one bounded match.
func (m *Matcher) Contains(text string) bool {
	for range m.Offsets(text, 0, len(text)) {
		return true
	}
	return false
}

func (m *Matcher) scanExact(text string, start, end int, yield func(Match) bool) {
	window := text[:end]
	for pos := start; pos < end; {
		idx := strings.Index(window[pos:], m.pattern)
		if idx < 0 {
			return
		}
		offset := pos + idx
		match := Match{Offset: offset, Length: len(m.pattern)}
		match.Bounded = m.bounded(text, offset, offset+match.Length)
		if !yield(match) {
			return
		}
		_, size := utf8.DecodeRuneInString(text[offset:])
		pos = offset + size
	}
}

func (m *Matcher) scanFolded(text string, start, end int, yield func(Match) bool) {
	first := m.folded[0]
	for pos := start; pos < end; {
		r, size := utf8.DecodeRuneInString(text[pos:])
		if words.FoldRune(r) == first {
			if n, ok := m.matchFoldedAt(text, pos, end); ok {
				match := Match{Offset: pos, Length: n}
				match.Bounded = m.bounded(text, pos, pos+n)
				if !yield(match) {
					return
				}
			}
		}
		pos += size
	}
}

// matchFoldedAt returns the byte length of the match at pos, if any.
func (m *Matcher) matchFoldedAt(text string, pos, end int) (int, bool) {
	i := pos
	for _, pr := range m.folded {
		if i >= end {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(text[i:end])
		if words.FoldRune(r) != pr {
			return 0, false
		}
		i += size
	}
	return i - pos, true
}

func (m *Matcher) bounded(text string, from, to int) bool {
	if m.checkLeading && from > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:from])
		if words.IsIdentifierRune(r) {
			return false
		}
	}
	if m.checkTrail && to < len(text) {
		r, _ := utf8.DecodeRuneInString(text[to:])
		if words.IsIdentifierRune(r) {
			return false
		}
	}
	return true
}
