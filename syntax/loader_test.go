package syntax_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/syntax"
	"github.com/poiesic/refscan/syntax/languages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

type mapStore struct {
	docs  map[core.DocumentID]string
	paths map[core.DocumentID]string
	reads atomic.Int32
}

func (s *mapStore) GetDocument(_ context.Context, id core.DocumentID) (*core.Document, error) {
	path, ok := s.paths[id]
	if !ok {
		return nil, errMissing
	}
	return &core.Document{ID: id, Path: path}, nil
}

func (s *mapStore) ReadContents(_ context.Context, id core.DocumentID) ([]byte, error) {
	s.reads.Add(1)
	text, ok := s.docs[id]
	if !ok {
		return nil, errMissing
	}
	return []byte(text), nil
}

func newStore() *mapStore {
	return &mapStore{
		docs:  map[core.DocumentID]string{1: "let a = 1;", 2: "let b = 2;"},
		paths: map[core.DocumentID]string{1: "a.js", 2: "b.js", 3: "gone.js"},
	}
}

func TestNewLoader(t *testing.T) {
	parser := syntax.NewParser(languages.NewRegistry())

	_, err := syntax.NewLoader(nil, parser)
	assert.ErrorIs(t, err, syntax.ErrStoreRequired)

	_, err = syntax.NewLoader(newStore(), nil)
	assert.ErrorIs(t, err, syntax.ErrParserRequired)

	l, err := syntax.NewLoader(newStore(), parser, syntax.WithLogger(nil), syntax.WithMaxRetained(4))
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestLoaderOpen(t *testing.T) {
	store := newStore()
	l, err := syntax.NewLoader(store, syntax.NewParser(languages.NewRegistry()))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("parses the document", func(t *testing.T) {
		doc, err := l.Open(ctx, 1)
		require.NoError(t, err)
		defer l.Release(doc)
		assert.Equal(t, "a.js", doc.Path())
		assert.Equal(t, "let a = 1;", doc.Text())
	})

	t.Run("missing contents are unreadable", func(t *testing.T) {
		_, err := l.Open(ctx, 3)
		assert.ErrorIs(t, err, syntax.ErrUnreadable)
		assert.ErrorIs(t, err, errMissing)
	})

	t.Run("unknown document is unreadable", func(t *testing.T) {
		_, err := l.Open(ctx, 99)
		assert.ErrorIs(t, err, syntax.ErrUnreadable)
	})

	t.Run("cancelled context is not reported as unreadable", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := l.Open(cctx, 99)
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, syntax.ErrUnreadable)
	})
}

func TestLoaderBatch(t *testing.T) {
	store := newStore()
	l, err := syntax.NewLoader(store, syntax.NewParser(languages.NewRegistry()), syntax.WithMaxRetained(1))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("outside a batch every open parses", func(t *testing.T) {
		before := store.reads.Load()
		a, err := l.Open(ctx, 1)
		require.NoError(t, err)
		l.Release(a)
		b, err := l.Open(ctx, 1)
		require.NoError(t, err)
		l.Release(b)
		assert.NotSame(t, a, b)
		assert.Equal(t, before+2, store.reads.Load())
		assert.Equal(t, 0, l.Retained())
	})

	t.Run("batch retains up to the bound", func(t *testing.T) {
		l.StartBatch()
		l.StartBatch()

		a, err := l.Open(ctx, 1)
		require.NoError(t, err)
		l.Release(a)
		again, err := l.Open(ctx, 1)
		require.NoError(t, err)
		assert.Same(t, a, again)

		b, err := l.Open(ctx, 2)
		require.NoError(t, err)
		l.Release(b)
		assert.Equal(t, 1, l.Retained())

		l.Release(again)

		l.FinishBatch()
		assert.Equal(t, 1, l.Retained(), "inner finish keeps documents")
		assert.False(t, a.Closed())
		l.FinishBatch()
		assert.Equal(t, 0, l.Retained())
		assert.True(t, a.Closed())

		// Unbalanced finish is ignored.
		l.FinishBatch()
	})

	t.Run("held documents outlive the batch", func(t *testing.T) {
		l.StartBatch()
		doc, err := l.Open(ctx, 1)
		require.NoError(t, err)

		l.FinishBatch()
		assert.Equal(t, 0, l.Retained())
		assert.False(t, doc.Closed(), "still in use after the batch ended")

		l.Release(doc)
		assert.True(t, doc.Closed())
	})

	t.Run("open outside a batch reuses a retained parse safely", func(t *testing.T) {
		l.StartBatch()
		batched, err := l.Open(ctx, 1)
		require.NoError(t, err)
		l.Release(batched)

		// Another caller that never started a batch gets the retained parse.
		local, err := l.Open(ctx, 1)
		require.NoError(t, err)
		assert.Same(t, batched, local)

		l.FinishBatch()
		assert.False(t, local.Closed())
		assert.NotEqual(t, syntax.LineKind, local.ElementAt(0, 3).Kind)

		l.Release(local)
		assert.True(t, local.Closed())
	})
}
