package indexing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
	"github.com/poiesic/refscan/storage/badger"
	"github.com/poiesic/refscan/syntax"
	"github.com/poiesic/refscan/syntax/languages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	docs     *badger.DocumentRepository
	index    *badger.WordIndex
	pipeline *Pipeline
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	docs, index, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)

	pipeline, err := NewPipeline(docs, index, syntax.NewParser(languages.NewRegistry()), WithPoolSize(2))
	require.NoError(t, err)

	t.Cleanup(func() {
		pipeline.Release()
		docs.Close()
		backend.Close()
	})
	return &testEnv{docs: docs, index: index, pipeline: pipeline}
}

func (e *testEnv) lookup(t *testing.T, word string) map[core.DocumentID]core.SearchContext {
	t.Helper()
	got, err := e.index.Lookup(context.Background(), []core.WordKey{{Word: word, CaseSensitive: true}}, core.ContextAny)
	require.NoError(t, err)
	return got
}

func TestNewPipeline_RequiresDependencies(t *testing.T) {
	docs, index, backend, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer backend.Close()
	defer docs.Close()
	parser := syntax.NewParser(languages.NewRegistry())

	_, err = NewPipeline(nil, index, parser)
	assert.ErrorIs(t, err, ErrDocumentRepositoryRequired)
	_, err = NewPipeline(docs, nil, parser)
	assert.ErrorIs(t, err, ErrWordIndexRequired)
	_, err = NewPipeline(docs, index, nil)
	assert.ErrorIs(t, err, ErrParserRequired)
}

func TestIngest_IndexesAsynchronously(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc, err := env.pipeline.Ingest(ctx, "src/a.js", []byte("let getName = 1;"))
	require.NoError(t, err)
	assert.Equal(t, "javascript", doc.Language)

	require.NoError(t, env.index.WaitReady(ctx))
	env.pipeline.Flush()

	got := env.lookup(t, "getName")
	assert.Equal(t, map[core.DocumentID]core.SearchContext{doc.ID: core.ContextCode}, got)
}

func TestIngest_UnchangedIsSkipped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.pipeline.Ingest(ctx, "a.txt", []byte("alpha"))
	require.NoError(t, err)
	env.pipeline.Flush()

	second, err := env.pipeline.Ingest(ctx, "a.txt", []byte("alpha"))
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestIngest_ChangedReplacesPostings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc, err := env.pipeline.Ingest(ctx, "a.txt", []byte("alpha"))
	require.NoError(t, err)
	env.pipeline.Flush()

	_, err = env.pipeline.Ingest(ctx, "a.txt", []byte("beta"))
	require.NoError(t, err)
	env.pipeline.Flush()

	assert.Empty(t, env.lookup(t, "alpha"))
	assert.Contains(t, env.lookup(t, "beta"), doc.ID)
}

func TestRemove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc, err := env.pipeline.Ingest(ctx, "a.txt", []byte("alpha"))
	require.NoError(t, err)
	env.pipeline.Flush()

	require.NoError(t, env.pipeline.Remove(ctx, "a.txt"))
	require.NoError(t, env.pipeline.Remove(ctx, "never-there.txt"))

	assert.Empty(t, env.lookup(t, "alpha"))
	_, err = env.docs.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.True(t, env.index.Ready())
}

func TestIndexDocument_Synchronous(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	doc, err := env.pipeline.Ingest(ctx, "a.go", []byte("package a\n\nfunc Hello() {}\n"))
	require.NoError(t, err)
	env.pipeline.Flush()

	require.NoError(t, env.index.Clear(ctx))
	assert.Empty(t, env.lookup(t, "Hello"))

	require.NoError(t, env.pipeline.IndexDocument(ctx, doc))
	assert.Contains(t, env.lookup(t, "Hello"), doc.ID)
}

func writeFile(t *testing.T, root, rel, contents string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestIngestDir(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	root := t.TempDir()

	writeFile(t, root, "src/a.js", "let getName = 1;")
	writeFile(t, root, "src/b.py", "def get_name(): pass")
	writeFile(t, root, "README.md", "# Title\n")
	writeFile(t, root, "node_modules/dep/index.js", "let ignored = 1;")
	writeFile(t, root, "image.png", "binary")

	stats, err := env.pipeline.IngestDir(ctx, root)
	require.NoError(t, err)
	env.pipeline.Flush()
	assert.Equal(t, DirStats{Seen: 3, Changed: 3}, stats)

	doc, err := env.docs.FindByPath(ctx, "src/a.js")
	require.NoError(t, err)
	assert.Contains(t, env.lookup(t, "getName"), doc.ID)
	assert.Empty(t, env.lookup(t, "ignored"))

	// Second run: one file changed, one deleted.
	writeFile(t, root, "src/a.js", "let getTitle = 1;")
	require.NoError(t, os.Remove(filepath.Join(root, "src", "b.py")))

	stats, err = env.pipeline.IngestDir(ctx, root)
	require.NoError(t, err)
	env.pipeline.Flush()
	assert.Equal(t, DirStats{Seen: 2, Changed: 1, Removed: 1}, stats)

	count, err := env.docs.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Empty(t, env.lookup(t, "getName"))
}
