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

package syntax

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/poiesic/refscan/core"
)

// LineKind is the element kind reported for plain text views.
const LineKind = "line"

// View is one parsed region of a document. Every document has a root view
// covering the whole text; fenced code blocks add nested views.
type View struct {
	doc      *Document
	index    int
	language string
	start    int
	end      int
	spec     *LanguageSpec

	mu     sync.Mutex // guards tree; tree-sitter node lookups are not safe for concurrent use
	tree   *sitter.Tree
	closed bool
}

// Index returns the position of the view in Document.Views.
func (v *View) Index() int {
	return v.index
}

// Language returns the language name of the view, empty for plain text.
func (v *View) Language() string {
	return v.language
}

// Range returns the byte range [start, end) the view covers in the document.
func (v *View) Range() (start, end int) {
	return v.start, v.end
}

// Plain reports whether the view has no syntax tree.
func (v *View) Plain() bool {
	return v.tree == nil
}

// ContextAt classifies the byte at offset.
func (v *View) ContextAt(offset int) core.SearchContext {
	if v.tree == nil {
		return core.ContextPlainText
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return core.ContextPlainText
	}

	rel := uint32(offset - v.start)
	result := core.ContextCode
	node := v.tree.RootNode()
	for node != nil {
		result = v.classify(node.Type(), result)
		node = childContaining(node, rel, rel+1, false)
	}
	return result
}

// classify folds one node type on the root-to-leaf path into the context.
func (v *View) classify(nodeType string, current core.SearchContext) core.SearchContext {
	switch {
	case strings.Contains(nodeType, "comment"):
		return core.ContextComments
	case current == core.ContextComments:
		return current
	case v.spec.isString(nodeType):
		return core.ContextStringLiterals
	case strings.Contains(nodeType, "substitution") || strings.Contains(nodeType, "interpolation"):
		return core.ContextCode
	}
	return current
}

// ElementAt returns the smallest element of the view enclosing [offset, offset+length).
func (v *View) ElementAt(offset, length int) core.Element {
	length = max(length, 1)
	if v.tree == nil {
		return v.lineAt(offset)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return v.lineAt(offset)
	}

	from := uint32(offset - v.start)
	to := from + uint32(length)
	node := v.tree.RootNode()
	for {
		next := childContaining(node, from, to, true)
		if next == nil {
			break
		}
		node = next
	}
	return core.Element{
		Document: v.doc.ID(),
		View:     v.index,
		Kind:     node.Type(),
		Start:    v.start + int(node.StartByte()),
		End:      v.start + int(node.EndByte()),
	}
}

// lineAt returns the line around offset, clipped to the view.
func (v *View) lineAt(offset int) core.Element {
	text := v.doc.text[v.start:v.end]
	rel := min(max(offset-v.start, 0), len(text))
	lineStart := strings.LastIndexByte(text[:rel], '\n') + 1
	lineEnd := len(text)
	if i := strings.IndexByte(text[rel:], '\n'); i >= 0 {
		lineEnd = rel + i
	}
	return core.Element{
		Document: v.doc.ID(),
		View:     v.index,
		Kind:     LineKind,
		Start:    v.start + lineStart,
		End:      v.start + lineEnd,
	}
}

func (v *View) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.tree != nil && !v.closed {
		v.tree.Close()
	}
	v.closed = true
}

// childContaining returns the child of node covering [from, to), or nil.
func childContaining(node *sitter.Node, from, to uint32, named bool) *sitter.Node {
	count := int(node.ChildCount())
	if named {
		count = int(node.NamedChildCount())
	}
	for i := 0; i < count; i++ {
		var child *sitter.Node
		if named {
			child = node.NamedChild(i)
		} else {
			child = node.Child(i)
		}
		if child == nil {
			continue
		}
		if child.StartByte() <= from && to <= child.EndByte() && child.EndByte() > child.StartByte() {
			return child
		}
		if child.StartByte() > from {
			break
		}
	}
	return nil
}
