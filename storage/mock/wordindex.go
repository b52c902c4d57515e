package mock

import (
	"context"
	"sync"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
)

// MockWordIndex is an in-memory storage.WordIndexWriter.
type MockWordIndex struct {
	// LookupFunc is called by Lookup if set.
	LookupFunc func(ctx context.Context, keys []core.WordKey, filter core.SearchContext) (map[core.DocumentID]core.SearchContext, error)

	mu       sync.Mutex
	postings map[core.DocumentID][]storage.Posting
	updating int
	readyCh  chan struct{}
	lookups  int
}

var _ storage.WordIndexWriter = (*MockWordIndex)(nil)

// NewMockWordIndex creates an empty, ready index.
func NewMockWordIndex() *MockWordIndex {
	ch := make(chan struct{})
	close(ch)
	return &MockWordIndex{
		postings: make(map[core.DocumentID][]storage.Posting),
		readyCh:  ch,
	}
}

// Add appends postings to a document.
func (m *MockWordIndex) Add(id core.DocumentID, postings ...storage.Posting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postings[id] = append(m.postings[id], postings...)
}

// SetReady toggles readiness without nesting.
func (m *MockWordIndex) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ready && m.updating > 0 {
		m.updating = 0
		close(m.readyCh)
	} else if !ready && m.updating == 0 {
		m.updating = 1
		m.readyCh = make(chan struct{})
	}
}

// Lookups returns the number of Lookup calls.
func (m *MockWordIndex) Lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

func (m *MockWordIndex) Lookup(ctx context.Context, keys []core.WordKey, filter core.SearchContext) (map[core.DocumentID]core.SearchContext, error) {
	m.mu.Lock()
	m.lookups++
	fn := m.LookupFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, keys, filter)
	}
	if len(keys) == 0 {
		return nil, storage.ErrEmptyKeys
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updating > 0 {
		return nil, storage.ErrIndexNotReady
	}

	result := make(map[core.DocumentID]core.SearchContext)
	for id, postings := range m.postings {
		var mask core.SearchContext
		all := true
		for _, k := range keys {
			var found core.SearchContext
			for _, p := range postings {
				if p.Key == k {
					found |= p.Context & filter
				}
			}
			if found == core.ContextNone {
				all = false
				break
			}
			mask |= found
		}
		if all {
			result[id] = mask
		}
	}
	return result, nil
}

func (m *MockWordIndex) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updating == 0
}

func (m *MockWordIndex) WaitReady(ctx context.Context) error {
	m.mu.Lock()
	ch := m.readyCh
	m.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockWordIndex) IndexDocument(ctx context.Context, id core.DocumentID, postings []storage.Posting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postings[id] = append([]storage.Posting(nil), postings...)
	return nil
}

func (m *MockWordIndex) RemoveDocument(ctx context.Context, id core.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.postings, id)
	return nil
}

func (m *MockWordIndex) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.postings = make(map[core.DocumentID][]storage.Posting)
	return nil
}

func (m *MockWordIndex) BeginUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updating == 0 {
		m.readyCh = make(chan struct{})
	}
	m.updating++
}

func (m *MockWordIndex) EndUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updating == 0 {
		return
	}
	m.updating--
	if m.updating == 0 {
		close(m.readyCh)
	}
}
