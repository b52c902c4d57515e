package search

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/matcher"
	"github.com/poiesic/refscan/storage"
	"github.com/poiesic/refscan/storage/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accept(core.Occurrence) bool { return true }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func request(word string, scope Scope, ctx core.SearchContext, caseSensitive bool, hint string) SearchRequest {
	return SearchRequest{Word: word, Scope: scope, Context: ctx, CaseSensitive: caseSensitive, ContainerName: hint, Handler: accept}
}

func TestMergeRequests(t *testing.T) {
	everything := EverythingScope()
	requests := []SearchRequest{
		request("getName", everything, core.ContextCode, true, "Foo"),
		request("getName", EverythingScope(), core.ContextCode, true, "Foo"),
		request("getName", everything, core.ContextCode, false, ""),
		request("getName", everything, core.ContextComments, true, ""),
		request("getName", GlobScope("*.js"), core.ContextCode, true, "Bar"),
		request(" getName ", everything, core.ContextCode, true, "Bar"),
	}

	cache := matcher.NewCache()
	merged, err := mergeRequests(requests, cache)
	require.NoError(t, err)
	require.Len(t, merged, 4)

	assert.Len(t, merged[0].handlers, 3)
	assert.Equal(t, []string{"Foo", "Bar"}, merged[0].hints)
	assert.Equal(t, "", merged[0].hint(), "conflicting hints are dropped")
	assert.Equal(t, "Bar", merged[3].hint())
	assert.True(t, merged[0].indexed)
	assert.Equal(t, []core.WordKey{{Word: "getname", CaseSensitive: false}}, merged[1].keys)
	assert.Same(t, merged[0].matcher, merged[2].matcher, "matchers are shared per word and case")
	assert.Equal(t, 2, cache.Len())
}

func TestMergedRequestDeliver(t *testing.T) {
	var calls []string
	m := &mergedRequest{handlers: []Handler{
		func(core.Occurrence) bool { calls = append(calls, "first"); return true },
		func(core.Occurrence) bool { calls = append(calls, "second"); return false },
		func(core.Occurrence) bool { calls = append(calls, "third"); return true },
	}}

	assert.False(t, m.deliver(core.Occurrence{}))
	assert.True(t, m.isStopped())
	assert.False(t, m.deliver(core.Occurrence{}))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestMergedRequestStopFlagDoesNotWaitForHandler(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	m := &mergedRequest{handlers: []Handler{
		func(core.Occurrence) bool {
			close(entered)
			<-release
			return true
		},
	}}

	delivered := make(chan bool, 1)
	go func() { delivered <- m.deliver(core.Occurrence{}) }()
	<-entered

	checked := make(chan bool, 1)
	go func() { checked <- m.isStopped() }()
	select {
	case stopped := <-checked:
		assert.False(t, stopped)
	case <-time.After(time.Second):
		t.Fatal("isStopped blocked while a handler was running")
	}

	m.stop()
	assert.True(t, m.isStopped())
	assert.False(t, m.deliver(core.Occurrence{}), "a stopped request rejects new occurrences")

	close(release)
	assert.True(t, <-delivered)
}

func TestGroupByWord(t *testing.T) {
	local := NewLocalScope(false, core.Element{Document: 1, End: 10})
	requests := []SearchRequest{
		request("getName", EverythingScope(), core.ContextCode, true, ""),
		request("getName", GlobScope("*.go"), core.ContextComments, true, ""),
		request("getName", EverythingScope(), core.ContextCode, false, ""),
		request("getName", local, core.ContextCode, true, ""),
		request("+=", EverythingScope(), core.ContextCode, true, ""),
	}
	merged, err := mergeRequests(requests, matcher.NewCache())
	require.NoError(t, err)

	groups, locals := groupByWord(merged)
	require.Len(t, groups, 3)
	require.Len(t, locals, 1)
	assert.Len(t, groups[0].requests, 2)
	assert.Equal(t, core.ContextCode|core.ContextComments, groups[0].filter())
	assert.False(t, groups[2].indexed)
}

func TestResolver_ContainerHintTiers(t *testing.T) {
	index := mock.NewMockWordIndex()
	index.Add(1, storage.Posting{Key: core.WordKey{Word: "getName", CaseSensitive: true}, Context: core.ContextCode})
	index.Add(2,
		storage.Posting{Key: core.WordKey{Word: "getName", CaseSensitive: true}, Context: core.ContextCode},
		storage.Posting{Key: core.WordKey{Word: "Foo", CaseSensitive: true}, Context: core.ContextCode},
	)
	index.Add(3, storage.Posting{Key: core.WordKey{Word: "getName", CaseSensitive: true}, Context: core.ContextComments})

	merged, err := mergeRequests([]SearchRequest{request("getName", EverythingScope(), core.ContextCode, true, "Foo")}, matcher.NewCache())
	require.NoError(t, err)
	groups, _ := groupByWord(merged)

	r := &resolver{index: index, catalog: mock.NewMockCorpus(), logger: testLogger()}
	set, err := r.resolve(context.Background(), groups)
	require.NoError(t, err)

	priority, rest := set.tiers()
	require.Len(t, priority, 1)
	require.Len(t, rest, 1)
	assert.Equal(t, core.DocumentID(2), priority[0].doc.ID)
	assert.Equal(t, core.DocumentID(1), rest[0].doc.ID, "comment-only documents are filtered by context")
}

func TestResolver_ScopeFiltering(t *testing.T) {
	ctx := context.Background()
	corpus := mock.NewMockCorpus()
	index := mock.NewMockWordIndex()
	for _, path := range []string{"src/a.js", "test/b.js"} {
		doc, err := corpus.PutDocument(ctx, &core.Document{Path: path}, []byte("getName"))
		require.NoError(t, err)
		index.Add(doc.ID, storage.Posting{Key: core.WordKey{Word: "getName", CaseSensitive: true}, Context: core.ContextCode})
	}

	merged, err := mergeRequests([]SearchRequest{
		request("getName", GlobScope("src/*"), core.ContextCode, true, ""),
		request("getName", EverythingScope(), core.ContextCode, true, ""),
	}, matcher.NewCache())
	require.NoError(t, err)
	groups, _ := groupByWord(merged)
	require.Len(t, groups, 1)

	r := &resolver{index: index, catalog: corpus, logger: testLogger()}
	set, err := r.resolve(ctx, groups)
	require.NoError(t, err)

	_, rest := set.tiers()
	require.Len(t, rest, 2)
	assert.Equal(t, "src/a.js", rest[0].doc.Path)
	assert.Len(t, rest[0].requests, 2)
	assert.Len(t, rest[1].requests, 1)
	assert.Same(t, merged[1], rest[1].requests[0])
}

func TestResolver_UnindexedWordsScanEverything(t *testing.T) {
	ctx := context.Background()
	corpus := mock.NewMockCorpus()
	for _, path := range []string{"a.js", "b.js"} {
		_, err := corpus.PutDocument(ctx, &core.Document{Path: path}, nil)
		require.NoError(t, err)
	}
	index := mock.NewMockWordIndex()

	merged, err := mergeRequests([]SearchRequest{request("+=", EverythingScope(), core.ContextCode, true, "")}, matcher.NewCache())
	require.NoError(t, err)
	groups, _ := groupByWord(merged)

	r := &resolver{index: index, catalog: corpus, logger: testLogger()}
	set, err := r.resolve(ctx, groups)
	require.NoError(t, err)
	assert.Equal(t, 2, set.len())
	assert.Zero(t, index.Lookups())
}
