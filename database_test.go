package refscan

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/refscan/config"
	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// Verify components are initialized
		assert.NotNil(t, db.Documents())
		assert.NotNil(t, db.WordIndex())
		assert.NotNil(t, db.Loader())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
		assert.Equal(t, config.DefaultConfig(), db.Config())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("error with invalid config", func(t *testing.T) {
		db, err := NewDatabase("", WithInMemory(), WithConfig(config.NewConfig(config.WithPoolSize(0))))
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	tmpDir := t.TempDir()
	db, err := NewDatabase(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, db)

	// Close the database
	err = db.Close()
	assert.NoError(t, err)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase("", WithInMemory(), WithConfig(config.NewConfig(config.WithPoolSize(2))))
	require.NoError(t, err)
	defer db.Close()

	pipeline, err := db.NewPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	searcher, err := db.NewSearcher()
	require.NoError(t, err)

	reindexer, err := db.NewReindexer(pipeline, io.Discard)
	require.NoError(t, err)
	assert.NotNil(t, reindexer)

	watcher, err := db.NewWatcher(pipeline, t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, watcher.Close())

	assert.NotNil(t, searcher)
}

func TestDatabase_EndToEnd(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "foo.js"), []byte("class Foo { getName() {} }\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "use.js"), []byte("foo.getName();\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("Call `getName` to read it.\n"), 0644))

	db, err := NewDatabase("", WithInMemory())
	require.NoError(t, err)
	defer db.Close()

	pipeline, err := db.NewPipeline()
	require.NoError(t, err)
	defer pipeline.Release()

	stats, err := pipeline.IngestDir(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Seen)
	pipeline.Flush()

	searcher, err := db.NewSearcher()
	require.NoError(t, err)

	var paths []string
	c := search.NewCollector()
	require.NoError(t, c.SearchWord("getName", search.GlobScope("*.js"), core.ContextCode, true, "Foo", nil))
	completed, err := searcher.Search(ctx, c, func(occ core.Occurrence) bool {
		paths = append(paths, occ.Path)
		return true
	})
	require.NoError(t, err)
	assert.True(t, completed)
	assert.ElementsMatch(t, []string{"src/foo.js", "src/use.js"}, paths)

	cost, err := searcher.EstimateCost(ctx, "getName", search.EverythingScope(), 0)
	require.NoError(t, err)
	assert.Equal(t, core.CostFew, cost)

	t.Run("reindex keeps results", func(t *testing.T) {
		reindexer, err := db.NewReindexer(pipeline, io.Discard)
		require.NoError(t, err)
		result, err := reindexer.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Indexed)

		cost, err := searcher.EstimateCost(ctx, "getName", search.EverythingScope(), 0)
		require.NoError(t, err)
		assert.Equal(t, core.CostFew, cost)
	})
}
