package indexing

import (
	"context"
	"testing"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
	"github.com/poiesic/refscan/syntax"
	"github.com/poiesic/refscan/syntax/languages"
	"github.com/poiesic/refscan/words"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, path, src string) *syntax.Document {
	t.Helper()
	parser := syntax.NewParser(languages.NewRegistry())
	doc, err := parser.Parse(context.Background(), &core.Document{ID: 1, Path: path}, []byte(src))
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

func postingMap(postings []storage.Posting) map[core.WordKey]core.SearchContext {
	m := make(map[core.WordKey]core.SearchContext, len(postings))
	for _, p := range postings {
		m[p.Key] = p.Context
	}
	return m
}

func TestExtract_ContextsPerKey(t *testing.T) {
	doc := parse(t, "a.js", `let getName = "getName"; // Widget`)
	got := postingMap(Extract(doc))

	assert.Equal(t, core.ContextCode|core.ContextStringLiterals, got[core.WordKey{Word: "getName", CaseSensitive: true}])
	assert.Equal(t, core.ContextCode|core.ContextStringLiterals, got[core.WordKey{Word: "getname"}])
	assert.Equal(t, core.ContextComments, got[core.WordKey{Word: "Widget", CaseSensitive: true}])
	assert.Equal(t, core.ContextComments, got[core.WordKey{Word: "widget"}])
	assert.Equal(t, core.ContextCode, got[core.WordKey{Word: "let", CaseSensitive: true}])
}

func TestExtract_UnderscoreJoinsWords(t *testing.T) {
	doc := parse(t, "b.js", "let get_Name = 2;")
	got := postingMap(Extract(doc))

	assert.Contains(t, got, core.WordKey{Word: "get_Name", CaseSensitive: true})
	assert.NotContains(t, got, core.WordKey{Word: "Name", CaseSensitive: true})
}

func TestExtract_PlainText(t *testing.T) {
	doc := parse(t, "notes.txt", "remember getName")
	got := postingMap(Extract(doc))

	assert.Equal(t, core.ContextPlainText, got[core.WordKey{Word: "getName", CaseSensitive: true}])
}

func TestExtract_SortedAndUnique(t *testing.T) {
	doc := parse(t, "c.txt", "b a b A")
	postings := Extract(doc)

	var keys []core.WordKey
	for _, p := range postings {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []core.WordKey{
		{Word: "A", CaseSensitive: true},
		{Word: "a"},
		{Word: "a", CaseSensitive: true},
		{Word: "b"},
		{Word: "b", CaseSensitive: true},
	}, keys)
}

func TestExtract_FoldsCaseLikeQueries(t *testing.T) {
	doc := parse(t, "greek.txt", "οδος")
	got := postingMap(Extract(doc))

	keys, indexed := words.Keys("ΟΔΟΣ", false)
	require.True(t, indexed)
	assert.Contains(t, got, keys[0])
}
