package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(word string) core.WordKey {
	return core.WordKey{Word: word, CaseSensitive: true}
}

func TestWordIndex_LookupSingleKey(t *testing.T) {
	_, idx := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexDocument(ctx, 1, []storage.Posting{
		{Key: key("foo"), Context: core.ContextCode | core.ContextComments},
	}))
	require.NoError(t, idx.IndexDocument(ctx, 2, []storage.Posting{
		{Key: key("foo"), Context: core.ContextStringLiterals},
	}))

	got, err := idx.Lookup(ctx, []core.WordKey{key("foo")}, core.ContextAny)
	require.NoError(t, err)
	assert.Equal(t, map[core.DocumentID]core.SearchContext{
		1: core.ContextCode | core.ContextComments,
		2: core.ContextStringLiterals,
	}, got)

	got, err = idx.Lookup(ctx, []core.WordKey{key("foo")}, core.ContextComments)
	require.NoError(t, err)
	assert.Equal(t, map[core.DocumentID]core.SearchContext{1: core.ContextComments}, got)
}

func TestWordIndex_LookupIntersectsKeys(t *testing.T) {
	_, idx := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexDocument(ctx, 1, []storage.Posting{
		{Key: key("get"), Context: core.ContextCode},
		{Key: key("name"), Context: core.ContextCode},
	}))
	require.NoError(t, idx.IndexDocument(ctx, 2, []storage.Posting{
		{Key: key("get"), Context: core.ContextCode},
	}))

	got, err := idx.Lookup(ctx, []core.WordKey{key("get"), key("name")}, core.ContextAny)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Contains(t, got, core.DocumentID(1))

	got, err = idx.Lookup(ctx, []core.WordKey{key("missing")}, core.ContextAny)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWordIndex_CaseModesAreSeparate(t *testing.T) {
	_, idx := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexDocument(ctx, 1, []storage.Posting{
		{Key: core.WordKey{Word: "Foo", CaseSensitive: true}, Context: core.ContextCode},
		{Key: core.WordKey{Word: "foo"}, Context: core.ContextCode},
	}))

	got, err := idx.Lookup(ctx, []core.WordKey{{Word: "foo", CaseSensitive: true}}, core.ContextAny)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = idx.Lookup(ctx, []core.WordKey{{Word: "foo"}}, core.ContextAny)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWordIndex_ReindexReplacesPostings(t *testing.T) {
	_, idx := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexDocument(ctx, 1, []storage.Posting{{Key: key("old"), Context: core.ContextCode}}))
	require.NoError(t, idx.IndexDocument(ctx, 1, []storage.Posting{{Key: key("new"), Context: core.ContextCode}}))

	got, err := idx.Lookup(ctx, []core.WordKey{key("old")}, core.ContextAny)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = idx.Lookup(ctx, []core.WordKey{key("new")}, core.ContextAny)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWordIndex_RemoveAndClear(t *testing.T) {
	_, idx := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexDocument(ctx, 1, []storage.Posting{{Key: key("w"), Context: core.ContextCode}}))
	require.NoError(t, idx.IndexDocument(ctx, 2, []storage.Posting{{Key: key("w"), Context: core.ContextCode}}))

	require.NoError(t, idx.RemoveDocument(ctx, 1))
	require.NoError(t, idx.RemoveDocument(ctx, 77))

	got, err := idx.Lookup(ctx, []core.WordKey{key("w")}, core.ContextAny)
	require.NoError(t, err)
	assert.Equal(t, map[core.DocumentID]core.SearchContext{2: core.ContextCode}, got)

	require.NoError(t, idx.Clear(ctx))
	got, err = idx.Lookup(ctx, []core.WordKey{key("w")}, core.ContextAny)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWordIndex_LargeDocumentSpansTransactions(t *testing.T) {
	_, idx := newTestStore(t)
	ctx := context.Background()

	postings := make([]storage.Posting, 0, 2*postingsPerTxn)
	for i := 0; i < 2*postingsPerTxn; i++ {
		postings = append(postings, storage.Posting{Key: key(string(rune('a'+i%26)) + string(rune('a'+i/26))), Context: core.ContextCode})
	}
	require.NoError(t, idx.IndexDocument(ctx, 3, postings))

	got, err := idx.Lookup(ctx, []core.WordKey{postings[len(postings)-1].Key}, core.ContextAny)
	require.NoError(t, err)
	assert.Contains(t, got, core.DocumentID(3))
}

func TestWordIndex_EmptyKeys(t *testing.T) {
	_, idx := newTestStore(t)
	_, err := idx.Lookup(context.Background(), nil, core.ContextAny)
	assert.ErrorIs(t, err, storage.ErrEmptyKeys)
}

func TestWordIndex_Readiness(t *testing.T) {
	_, idx := newTestStore(t)
	ctx := context.Background()

	assert.True(t, idx.Ready())

	idx.BeginUpdate()
	idx.BeginUpdate()
	assert.False(t, idx.Ready())

	_, err := idx.Lookup(ctx, []core.WordKey{key("x")}, core.ContextAny)
	assert.ErrorIs(t, err, storage.ErrIndexNotReady)

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, idx.WaitReady(timeout), context.DeadlineExceeded)

	idx.EndUpdate()
	assert.False(t, idx.Ready())

	done := make(chan error, 1)
	go func() { done <- idx.WaitReady(ctx) }()
	idx.EndUpdate()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitReady did not return after EndUpdate")
	}
	assert.True(t, idx.Ready())

	// Unbalanced EndUpdate is ignored.
	idx.EndUpdate()
	assert.True(t, idx.Ready())
}
