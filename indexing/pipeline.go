package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
	"github.com/poiesic/refscan/syntax"
)

// Pipeline orchestrates the ingestion and indexing of source documents.
type Pipeline struct {
	docs    storage.DocumentRepository
	index   storage.WordIndexWriter
	parser  *syntax.Parser
	pool    *ants.Pool
	pending sync.WaitGroup
	logger  *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent indexing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new indexing pipeline.
func NewPipeline(
	docs storage.DocumentRepository,
	index storage.WordIndexWriter,
	parser *syntax.Parser,
	opts ...Option,
) (*Pipeline, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if index == nil {
		return nil, ErrWordIndexRequired
	}
	if parser == nil {
		return nil, ErrParserRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		docs:   docs,
		index:  index,
		parser: parser,
		pool:   pool,
		logger: slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Ingest stores contents under path and indexes them asynchronously.
// Unchanged contents are neither stored nor reindexed. The word index
// reports itself as not ready until the submitted work has finished.
func (p *Pipeline) Ingest(ctx context.Context, path string, contents []byte) (*core.Document, error) {
	existing, err := p.docs.FindByPath(ctx, path)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Size == int64(len(contents)) && existing.Digest == core.ContentDigest(contents) {
		p.logger.Debug("document unchanged", "path", path)
		return existing, nil
	}

	doc, err := p.docs.PutDocument(ctx, &core.Document{
		Path:     path,
		Language: p.parser.Registry().LanguageName(path),
	}, contents)
	if err != nil {
		return nil, err
	}

	p.index.BeginUpdate()
	p.pending.Add(1)
	err = p.pool.Submit(func() {
		defer p.pending.Done()
		defer p.index.EndUpdate()
		if err := p.indexContents(context.Background(), doc, contents); err != nil {
			p.logger.Error("error indexing document", "path", doc.Path, "err", err)
		}
	})
	if err != nil {
		p.pending.Done()
		p.index.EndUpdate()
		return nil, err
	}
	return doc, nil
}

// IndexDocument reads a stored document and replaces its postings.
// It runs synchronously and does not touch the readiness state.
func (p *Pipeline) IndexDocument(ctx context.Context, doc *core.Document) error {
	contents, err := p.docs.ReadContents(ctx, doc.ID)
	if err != nil {
		return err
	}
	return p.indexContents(ctx, doc, contents)
}

func (p *Pipeline) indexContents(ctx context.Context, doc *core.Document, contents []byte) error {
	parsed, err := p.parser.Parse(ctx, doc, contents)
	if err != nil {
		return err
	}
	defer parsed.Close()
	return p.index.IndexDocument(ctx, doc.ID, Extract(parsed))
}

// Remove deletes the document stored under path along with its postings.
// Removing an unknown path is not an error.
func (p *Pipeline) Remove(ctx context.Context, path string) error {
	doc, err := p.docs.FindByPath(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	p.index.BeginUpdate()
	defer p.index.EndUpdate()
	if err := p.index.RemoveDocument(ctx, doc.ID); err != nil {
		return err
	}
	return p.docs.DeleteDocument(ctx, doc.ID)
}

// DirStats summarizes an IngestDir run.
type DirStats struct {
	Seen    int // Files discovered by the walk
	Changed int // Files stored because they were new or modified
	Removed int // Documents dropped because their file disappeared
	Failed  int // Files that could not be read or stored
}

// IngestDir walks root and ingests every file with a registered extension,
// keyed by its slash separated path relative to root. Documents whose files
// are no longer present are removed once the walk completes.
func (p *Pipeline) IngestDir(ctx context.Context, root string) (DirStats, error) {
	var stats DirStats
	seen := make(map[string]bool)

	files, errs := Walk(ctx, root, p.parser.Registry().Extensions())
	for f := range files {
		stats.Seen++
		seen[f.RelPath] = true

		contents, err := os.ReadFile(f.Path)
		if err != nil {
			stats.Failed++
			p.logger.Warn("failed to read file", "path", f.Path, "err", err)
			continue
		}
		before, _ := p.docs.FindByPath(ctx, f.RelPath)
		doc, err := p.Ingest(ctx, f.RelPath, contents)
		if err != nil {
			stats.Failed++
			p.logger.Warn("failed to ingest file", "path", f.Path, "err", err)
			continue
		}
		if before == nil || before.Digest != doc.Digest {
			stats.Changed++
		}
	}
	if err := <-errs; err != nil {
		return stats, fmt.Errorf("walk %s: %w", root, err)
	}

	var stale []string
	err := p.docs.ForEachDocument(ctx, func(doc *core.Document) error {
		if !seen[doc.Path] {
			stale = append(stale, doc.Path)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	for _, path := range stale {
		if err := p.Remove(ctx, path); err != nil {
			return stats, err
		}
		stats.Removed++
	}
	return stats, nil
}

// Flush blocks until every submitted document has been indexed.
func (p *Pipeline) Flush() {
	p.pending.Wait()
}

// Release waits for pending work and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.pending.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}
