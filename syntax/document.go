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
	"sync"
	"sync/atomic"

	"github.com/poiesic/refscan/core"
)

// Document is a parsed document: its text plus addressable syntax elements.
type Document struct {
	meta      core.Document
	text      string
	views     []*View
	closeOnce sync.Once
	closed    atomic.Bool
}

// ID returns the catalog ID of the document.
func (d *Document) ID() core.DocumentID {
	return d.meta.ID
}

// Path returns the catalog path of the document.
func (d *Document) Path() string {
	return d.meta.Path
}

// Meta returns a copy of the catalog entry the document was parsed from.
func (d *Document) Meta() core.Document {
	return d.meta
}

// Text returns the full document text.
func (d *Document) Text() string {
	return d.text
}

// Root returns the view covering the whole document.
func (d *Document) Root() *View {
	return d.views[0]
}

// Views returns the root view followed by any nested views.
func (d *Document) Views() []*View {
	return d.views
}

// View returns the view with the given index, or nil.
func (d *Document) View(index int) *View {
	if index < 0 || index >= len(d.views) {
		return nil
	}
	return d.views[index]
}

// ViewAt returns the innermost view owning offset.
func (d *Document) ViewAt(offset int) *View {
	for _, v := range d.views[1:] {
		if offset >= v.start && offset < v.end {
			return v
		}
	}
	return d.views[0]
}

// ContextAt classifies the byte at offset using the view that owns it.
func (d *Document) ContextAt(offset int) core.SearchContext {
	return d.ViewAt(offset).ContextAt(offset)
}

// ElementAt returns the smallest element enclosing [offset, offset+length).
func (d *Document) ElementAt(offset, length int) core.Element {
	return d.ViewAt(offset).ElementAt(offset, length)
}

// Close releases the syntax trees. The document text stays readable, and
// lookups after Close fall back to line elements.
func (d *Document) Close() {
	d.closeOnce.Do(func() {
		for _, v := range d.views {
			v.close()
		}
		d.closed.Store(true)
	})
}

// Closed reports whether Close has been called.
func (d *Document) Closed() bool {
	return d.closed.Load()
}
