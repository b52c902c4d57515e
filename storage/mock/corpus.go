package mock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
)

// MockCorpus is an in-memory storage.DocumentRepository.
type MockCorpus struct {
	// ReadContentsFunc is called by ReadContents if set.
	ReadContentsFunc func(ctx context.Context, id core.DocumentID) ([]byte, error)

	mu       sync.Mutex
	nextID   core.DocumentID
	docs     map[core.DocumentID]*core.Document
	contents map[core.DocumentID][]byte
	paths    map[string]core.DocumentID
	reads    map[core.DocumentID]int
}

var _ storage.DocumentRepository = (*MockCorpus)(nil)

// NewMockCorpus creates an empty corpus.
func NewMockCorpus() *MockCorpus {
	return &MockCorpus{
		docs:     make(map[core.DocumentID]*core.Document),
		contents: make(map[core.DocumentID][]byte),
		paths:    make(map[string]core.DocumentID),
		reads:    make(map[core.DocumentID]int),
	}
}

// Reads returns how many times the contents of id were read.
func (m *MockCorpus) Reads(id core.DocumentID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[id]
}

func (m *MockCorpus) PutDocument(ctx context.Context, doc *core.Document, contents []byte) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *doc
	stored.Digest = core.ContentDigest(contents)
	stored.Size = int64(len(contents))
	now := time.Now().UTC()
	if id, ok := m.paths[doc.Path]; ok {
		stored.ID = id
		stored.IndexedAt = m.docs[id].IndexedAt
		stored.UpdatedAt = now
	} else {
		m.nextID++
		stored.ID = m.nextID
		stored.IndexedAt = now
		stored.UpdatedAt = now
	}
	m.docs[stored.ID] = &stored
	m.contents[stored.ID] = slices.Clone(contents)
	m.paths[stored.Path] = stored.ID
	result := stored
	return &result, nil
}

func (m *MockCorpus) DeleteDocument(ctx context.Context, id core.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(m.paths, doc.Path)
	delete(m.docs, id)
	delete(m.contents, id)
	return nil
}

func (m *MockCorpus) GetDocument(ctx context.Context, id core.DocumentID) (*core.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	result := *doc
	return &result, nil
}

func (m *MockCorpus) GetDocuments(ctx context.Context, ids ...core.DocumentID) ([]*core.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	results := make([]*core.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := m.docs[id]; ok {
			d := *doc
			results = append(results, &d)
		}
	}
	return results, nil
}

func (m *MockCorpus) FindByPath(ctx context.Context, path string) (*core.Document, error) {
	m.mu.Lock()
	id, ok := m.paths[path]
	m.mu.Unlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return m.GetDocument(ctx, id)
}

func (m *MockCorpus) ReadContents(ctx context.Context, id core.DocumentID) ([]byte, error) {
	m.mu.Lock()
	m.reads[id]++
	fn := m.ReadContentsFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	contents, ok := m.contents[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return slices.Clone(contents), nil
}

func (m *MockCorpus) ForEachDocument(ctx context.Context, fn func(*core.Document) error) error {
	m.mu.Lock()
	ids := make([]core.DocumentID, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	slices.Sort(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := m.GetDocument(ctx, id)
		if err != nil {
			continue
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockCorpus) CountDocuments(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs), nil
}

func (m *MockCorpus) Close() error {
	return nil
}
