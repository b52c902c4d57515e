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
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/refscan/core"
)

const defaultMaxRetained = 256

// ContentStore provides catalog entries and raw contents of documents.
type ContentStore interface {
	GetDocument(ctx context.Context, id core.DocumentID) (*core.Document, error)
	ReadContents(ctx context.Context, id core.DocumentID) ([]byte, error)
}

// Loader opens documents from a ContentStore and parses them.
//
// Between StartBatch and FinishBatch parsed documents are retained, up to a
// bound, so that repeated opens during one search phase reuse the same
// parse. Outside a batch every Open parses afresh and Release frees the trees.
//
// Retained documents are reference counted. Every Open must be paired with a
// Release; a document still held when its batch ends is closed by the last
// Release instead.
type Loader struct {
	store       ContentStore
	parser      *Parser
	maxRetained int
	logger      *slog.Logger

	mu         sync.Mutex
	batchDepth int
	retained   map[core.DocumentID]*retainedDoc
	held       map[*Document]*retainedDoc
}

type retainedDoc struct {
	doc     *Document
	refs    int
	evicted bool // batch ended while refs > 0
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader) error

// WithMaxRetained bounds the number of documents kept during a batch.
// Default is 256.
func WithMaxRetained(n int) LoaderOption {
	return func(l *Loader) error {
		if n < 0 {
			n = 0
		}
		l.maxRetained = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// NewLoader creates a loader reading from store and parsing with parser.
func NewLoader(store ContentStore, parser *Parser, opts ...LoaderOption) (*Loader, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if parser == nil {
		return nil, ErrParserRequired
	}

	l := &Loader{
		store:       store,
		parser:      parser,
		maxRetained: defaultMaxRetained,
		logger:      slog.Default(),
		retained:    make(map[core.DocumentID]*retainedDoc),
		held:        make(map[*Document]*retainedDoc),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Open loads and parses a document. Errors wrap ErrUnreadable unless the
// context was cancelled.
func (l *Loader) Open(ctx context.Context, id core.DocumentID) (*Document, error) {
	l.mu.Lock()
	if e, ok := l.retained[id]; ok {
		e.refs++
		l.mu.Unlock()
		return e.doc, nil
	}
	l.mu.Unlock()

	meta, err := l.store.GetDocument(ctx, id)
	if err != nil {
		return nil, l.unreadable(ctx, id, err)
	}
	contents, err := l.store.ReadContents(ctx, id)
	if err != nil {
		return nil, l.unreadable(ctx, id, err)
	}
	doc, err := l.parser.Parse(ctx, meta, contents)
	if err != nil {
		return nil, l.unreadable(ctx, id, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.batchDepth > 0 && len(l.retained) < l.maxRetained {
		if e, ok := l.retained[id]; ok {
			// Lost a race with another opener; keep the first parse.
			doc.Close()
			e.refs++
			return e.doc, nil
		}
		e := &retainedDoc{doc: doc, refs: 1}
		l.retained[id] = e
		l.held[doc] = e
	}
	return doc, nil
}

func (l *Loader) unreadable(ctx context.Context, id core.DocumentID, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%w: document %d: %w", ErrUnreadable, id, err)
}

// Release hands a document back. Documents retained by an active batch stay
// open until FinishBatch, or until their last Release after it.
func (l *Loader) Release(doc *Document) {
	if doc == nil {
		return
	}
	l.mu.Lock()
	e, ok := l.held[doc]
	if !ok {
		l.mu.Unlock()
		doc.Close()
		return
	}
	e.refs--
	done := e.evicted && e.refs <= 0
	if done {
		delete(l.held, doc)
	}
	l.mu.Unlock()
	if done {
		doc.Close()
	}
}

// StartBatch begins retaining parsed documents. Batches nest.
func (l *Loader) StartBatch() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batchDepth++
}

// FinishBatch ends a batch. When the outermost batch ends every retained
// document nobody holds is closed; held documents close on their last Release.
func (l *Loader) FinishBatch() {
	l.mu.Lock()
	if l.batchDepth == 0 {
		l.mu.Unlock()
		return
	}
	l.batchDepth--
	if l.batchDepth > 0 {
		l.mu.Unlock()
		return
	}
	var idle []*Document
	inUse := 0
	for _, e := range l.retained {
		if e.refs > 0 {
			e.evicted = true
			inUse++
			continue
		}
		delete(l.held, e.doc)
		idle = append(idle, e.doc)
	}
	l.retained = make(map[core.DocumentID]*retainedDoc)
	l.mu.Unlock()

	for _, doc := range idle {
		doc.Close()
	}
	l.logger.Debug("released batch documents", "closed", len(idle), "in_use", inUse)
}

// Retained returns the number of documents currently held by a batch.
func (l *Loader) Retained() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.retained)
}
