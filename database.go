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

// Package refscan wires the storage, indexing and search layers into a
// single database handle.
package refscan

import (
	"io"
	"log/slog"

	"github.com/poiesic/refscan/config"
	"github.com/poiesic/refscan/indexing"
	"github.com/poiesic/refscan/reindex"
	"github.com/poiesic/refscan/search"
	"github.com/poiesic/refscan/storage"
	"github.com/poiesic/refscan/storage/badger"
	"github.com/poiesic/refscan/syntax"
	"github.com/poiesic/refscan/syntax/languages"
)

type Database struct {
	backend *badger.Backend
	docs    *badger.DocumentRepository
	index   *badger.WordIndex
	parser  *syntax.Parser
	loader  *syntax.Loader
	config  *config.Config
	logger  *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	config   *config.Config
	inMemory bool
	logger   *slog.Logger
}

// WithConfig sets the configuration used for the services the database
// creates. Default is config.DefaultConfig().
func WithConfig(cfg *config.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if cfg != nil {
			o.config = cfg
		}
	}
}

// WithInMemory keeps the database in memory. The path is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		config: config.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if err := options.config.Validate(); err != nil {
		return nil, err
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create document repository
	docs, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	parser := syntax.NewParser(languages.NewRegistry())
	loader, err := syntax.NewLoader(docs, parser,
		syntax.WithMaxRetained(options.config.Search.MaxRetained),
		syntax.WithLogger(options.logger),
	)
	if err != nil {
		docs.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend: backend,
		docs:    docs,
		index:   badger.NewWordIndex(backend),
		parser:  parser,
		loader:  loader,
		config:  options.config,
		logger:  options.logger,
	}, nil
}

func (db *Database) Close() error {
	if err := db.docs.Close(); err != nil {
		db.logger.Error("error closing document repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) Config() *config.Config {
	return db.config
}

func (db *Database) Documents() storage.DocumentRepository {
	return db.docs
}

func (db *Database) WordIndex() storage.WordIndexWriter {
	return db.index
}

func (db *Database) Loader() *syntax.Loader {
	return db.loader
}

// NewPipeline creates an ingestion pipeline. opts are applied after the
// configured defaults.
func (db *Database) NewPipeline(opts ...indexing.Option) (*indexing.Pipeline, error) {
	defaults := []indexing.Option{
		indexing.WithPoolSize(db.config.Indexing.Workers),
		indexing.WithLogger(db.logger),
	}
	return indexing.NewPipeline(db.docs, db.index, db.parser, append(defaults, opts...)...)
}

// NewSearcher creates a searcher. opts are applied after the configured
// defaults.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	cfg := db.config.Search
	defaults := []search.Option{
		search.WithPoolSize(cfg.PoolSize),
		search.WithIndexWaitTimeout(cfg.IndexWaitTimeout.Duration),
		search.WithCostThreshold(cfg.CostThreshold),
		search.WithLogger(db.logger),
	}
	if cfg.RateLimit > 0 {
		defaults = append(defaults, search.WithBackpressure(search.NewRateLimitPolicy(cfg.RateLimit, cfg.PoolSize)))
	}
	return search.NewSearcher(db.index, db.docs, db.loader, append(defaults, opts...)...)
}

// NewReindexer creates a full index rebuild driven by pipeline.
func (db *Database) NewReindexer(pipeline *indexing.Pipeline, progress io.Writer) (*reindex.Reindexer, error) {
	cfg := db.config.Reindex
	return reindex.NewReindexer(db.docs, db.index, pipeline, &reindex.Config{
		BatchSize:      cfg.BatchSize,
		Workers:        cfg.Workers,
		ReportInterval: cfg.ReportInterval,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay.Duration,
	}, progress, db.logger)
}

// NewWatcher follows changes below root with pipeline.
func (db *Database) NewWatcher(pipeline *indexing.Pipeline, root string) (*indexing.Watcher, error) {
	return indexing.NewWatcher(pipeline, root)
}
