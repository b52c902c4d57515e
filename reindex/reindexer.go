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

package reindex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration for the rebuild.
type Config struct {
	// BatchSize is the number of documents to load in each batch
	BatchSize int

	// Workers is the number of documents indexed concurrently within a batch
	Workers int

	// ReportInterval is how often to report progress (number of documents)
	ReportInterval int

	// MaxRetries is the maximum number of attempts per document
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		Workers:        4,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     100 * time.Millisecond,
	}
}

// Indexer writes the postings of one stored document.
// *indexing.Pipeline satisfies it.
type Indexer interface {
	IndexDocument(ctx context.Context, doc *core.Document) error
}

// Result summarizes a rebuild.
type Result struct {
	Total   int
	Indexed int
	Skipped int // Documents whose contents vanished during the rebuild
	Elapsed time.Duration
}

// Reindexer rebuilds the word index from every stored document.
type Reindexer struct {
	docs     storage.DocumentRepository
	index    storage.WordIndexWriter
	indexer  Indexer
	config   *Config
	retry    RetryPolicy
	progress io.Writer
	iterator *DocumentIterator
	logger   *slog.Logger
}

// NewReindexer creates a new reindexer.
// progress: where to write progress output (typically os.Stderr), may be io.Discard
func NewReindexer(docs storage.DocumentRepository, index storage.WordIndexWriter, indexer Indexer, config *Config, progress io.Writer, logger *slog.Logger) (*Reindexer, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if index == nil {
		return nil, ErrWordIndexRequired
	}
	if indexer == nil {
		return nil, ErrIndexerRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reindexer{
		docs:    docs,
		index:   index,
		indexer: indexer,
		config:  config,
		retry: RetryPolicy{
			MaxAttempts: max(config.MaxRetries, 1),
			BaseDelay:   config.RetryDelay,
			MaxDelay:    10 * config.RetryDelay,
			Permanent: func(err error) bool {
				return errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrStorageClosed)
			},
		},
		progress: progress,
		iterator: NewDocumentIterator(docs, config.BatchSize),
		logger:   logger,
	}, nil
}

// Run clears the index and reindexes every stored document.
// The index is not ready until Run returns.
func (r *Reindexer) Run(ctx context.Context) (Result, error) {
	var result Result

	total, err := r.docs.CountDocuments(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to count documents: %w", err)
	}
	result.Total = total

	r.index.BeginUpdate()
	defer r.index.EndUpdate()

	if err := r.index.Clear(ctx); err != nil {
		return result, fmt.Errorf("failed to clear index: %w", err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No documents found in database (0 documents)\n")
		return result, nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d documents (batch size: %d)\n", total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval, "documents")
	tracker.Start()

	var indexed, skipped atomic.Int64
	err = r.iterator.ForEach(ctx, func(batch []*core.Document) error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(max(r.config.Workers, 1))
		for _, doc := range batch {
			g.Go(func() error {
				err := r.retry.Do(gctx, r.logger, func(ctx context.Context) error {
					return r.indexer.IndexDocument(ctx, doc)
				})
				switch {
				case err == nil:
					indexed.Add(1)
				case errors.Is(err, storage.ErrNotFound):
					r.logger.Debug("document vanished during reindex", "path", doc.Path)
					skipped.Add(1)
				default:
					return fmt.Errorf("failed to index %s: %w", doc.Path, err)
				}
				tracker.Increment(1)
				return nil
			})
		}
		return g.Wait()
	})

	result.Indexed = int(indexed.Load())
	result.Skipped = int(skipped.Load())
	result.Elapsed = tracker.Elapsed()
	tracker.Finish()
	if err != nil {
		return result, err
	}

	fmt.Fprintf(r.progress, "Reindex complete. Indexed %d documents in %v (%.1f documents/sec)\n",
		result.Indexed, result.Elapsed.Round(time.Millisecond), float64(result.Indexed)/max(result.Elapsed.Seconds(), 1e-9))

	return result, nil
}
