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

// SearchContext is a bitmask of the syntactic contexts a word may be found in.
type SearchContext uint8

const (
	// ContextCode covers identifiers and keywords outside comments and literals.
	ContextCode SearchContext = 1 << iota
	// ContextComments covers line and block comments.
	ContextComments
	// ContextStringLiterals covers string, template and rune literals.
	ContextStringLiterals
	// ContextPlainText covers documents or views without a grammar.
	ContextPlainText

	// ContextNone is the empty mask.
	ContextNone SearchContext = 0
	// ContextAny is the union of every context.
	ContextAny = ContextCode | ContextComments | ContextStringLiterals | ContextPlainText
)

var contextNames = []struct {
	bit  SearchContext
	name string
}{
	{ContextCode, "code"},
	{ContextComments, "comments"},
	{ContextStringLiterals, "strings"},
	{ContextPlainText, "text"},
}

// Has reports whether c shares at least one bit with other.
func (c SearchContext) Has(other SearchContext) bool {
	return c&other != 0
}

// Bits returns the individual context bits set in c, lowest first.
func (c SearchContext) Bits() []SearchContext {
	bits := make([]SearchContext, 0, len(contextNames))
	for _, cn := range contextNames {
		if c&cn.bit != 0 {
			bits = append(bits, cn.bit)
		}
	}
	return bits
}

// String renders the mask as a comma separated list, e.g. "code,comments".
func (c SearchContext) String() string {
	if c == ContextNone {
		return "none"
	}
	if c == ContextAny {
		return "any"
	}
	names := make([]string, 0, len(contextNames))
	for _, cn := range contextNames {
		if c&cn.bit != 0 {
			names = append(names, cn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseSearchContext parses a comma separated list of context names.
// "any" selects every context. Whitespace around names is ignored.
func ParseSearchContext(s string) (SearchContext, error) {
	var result SearchContext
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if part == "any" || part == "all" {
			result |= ContextAny
			continue
		}
		found := false
		for _, cn := range contextNames {
			if cn.name == part {
				result |= cn.bit
				found = true
				break
			}
		}
		if !found {
			return ContextNone, fmt.Errorf("%w: unknown context %q", ErrInvalidSearchContext, part)
		}
	}
	if result == ContextNone {
		return ContextNone, fmt.Errorf("%w: empty context list", ErrInvalidSearchContext)
	}
	return result, nil
}
