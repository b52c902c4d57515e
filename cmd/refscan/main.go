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

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/poiesic/refscan"
	"github.com/poiesic/refscan/config"
	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	dbFlag := &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory (overrides the config file)",
	}
	rootFlag := &cli.StringFlag{
		Name:    "root",
		Aliases: []string{"r"},
		Usage:   "Source tree to index (overrides the config file)",
	}

	return &cli.App{
		Name:  "refscan",
		Usage: "Indexed word-level reference search over source trees",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML configuration file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Ingest every source file below the root",
				Action: indexCommand,
				Flags:  []cli.Flag{dbFlag, rootFlag},
			},
			{
				Name:   "watch",
				Usage:  "Ingest the root, then follow file changes until interrupted",
				Action: watchCommand,
				Flags:  []cli.Flag{dbFlag, rootFlag},
			},
			{
				Name:      "search",
				Usage:     "Print every occurrence of the given words",
				ArgsUsage: "WORD...",
				Action:    searchCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringFlag{
						Name:  "context",
						Usage: "Comma separated contexts to search (code, comments, strings, text, any)",
						Value: "code",
					},
					&cli.BoolFlag{
						Name:    "case-sensitive",
						Aliases: []string{"s"},
						Usage:   "Match case exactly",
					},
					&cli.StringFlag{
						Name:  "container",
						Usage: "Container name likely to declare the words; its documents are scanned first",
					},
					&cli.StringSliceFlag{
						Name:  "glob",
						Usage: "Restrict the search to paths matching the pattern (repeatable)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Stop after this many occurrences (0 means no limit)",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of documents scanned concurrently (overrides the config file)",
					},
				},
			},
			{
				Name:      "cost",
				Usage:     "Estimate how many documents a search for WORD scans",
				ArgsUsage: "WORD",
				Action:    costCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.StringSliceFlag{
						Name:  "glob",
						Usage: "Restrict the estimate to paths matching the pattern (repeatable)",
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the word index from every stored document",
				Action: reindexCommand,
				Flags: []cli.Flag{
					dbFlag,
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch (overrides the config file)",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per document (overrides the config file)",
					},
				},
			},
		},
	}
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.IsSet("db") {
		cfg.Database = c.String("db")
	}
	if c.IsSet("root") {
		cfg.Root = c.String("root")
	}
	if c.IsSet("pool-size") {
		cfg.Search.PoolSize = c.Int("pool-size")
	}
	if c.IsSet("batch-size") {
		cfg.Reindex.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("max-retries") {
		cfg.Reindex.MaxRetries = c.Int("max-retries")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDatabase(c *cli.Context) (*refscan.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	db, err := refscan.NewDatabase(cfg.Database, refscan.WithConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func indexCommand(c *cli.Context) error {
	ctx, cancel := signalContext(c)
	defer cancel()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	root := db.Config().Root
	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", db.Config().Database)
	fmt.Fprintf(c.App.ErrWriter, "Root: %s\n", root)

	stats, err := pipeline.IngestDir(ctx, root)
	pipeline.Flush()
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	fmt.Fprintf(c.App.ErrWriter, "Indexed %d files: %d changed, %d removed, %d failed\n",
		stats.Seen, stats.Changed, stats.Removed, stats.Failed)
	return nil
}

func watchCommand(c *cli.Context) error {
	ctx, cancel := signalContext(c)
	defer cancel()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	root := db.Config().Root
	stats, err := pipeline.IngestDir(ctx, root)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	slog.Info("initial index complete", "root", root, "files", stats.Seen, "changed", stats.Changed)

	watcher, err := db.NewWatcher(pipeline, root)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	defer watcher.Close()

	slog.Info("watching for changes", "root", root)
	err = watcher.Run(ctx)
	pipeline.Flush()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func searchCommand(c *cli.Context) error {
	words := c.Args().Slice()
	if len(words) == 0 {
		return fmt.Errorf("at least one word is required")
	}
	searchContext, err := core.ParseSearchContext(c.String("context"))
	if err != nil {
		return err
	}
	limit := c.Int("limit")
	if limit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	var (
		mu    sync.Mutex
		count atomic.Int64
		out   = c.App.Writer
	)
	consumer := func(occ core.Occurrence) bool {
		n := count.Add(1)
		if limit > 0 && n > int64(limit) {
			return false
		}
		mu.Lock()
		fmt.Fprintf(out, "%s:%d\t%s\t%s\n", occ.Path, occ.Offset, occ.Context, occ.Element.Kind)
		mu.Unlock()
		return limit == 0 || n < int64(limit)
	}

	collector := search.NewCollector()
	scope := scopeFromFlags(c)
	for _, word := range words {
		err := collector.SearchWord(word, scope, searchContext, c.Bool("case-sensitive"), c.String("container"), nil)
		if err != nil {
			return fmt.Errorf("invalid search for %q: %w", word, err)
		}
	}

	completed, err := searcher.Search(ctx, collector, consumer)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	reported := min(count.Load(), int64(limit))
	if limit == 0 {
		reported = count.Load()
	}
	if !completed {
		fmt.Fprintf(c.App.ErrWriter, "Stopped after %d occurrences\n", reported)
	} else {
		fmt.Fprintf(c.App.ErrWriter, "%d occurrences\n", reported)
	}
	return nil
}

func costCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one word is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	estimate, err := searcher.EstimateCost(c.Context, c.Args().First(), scopeFromFlags(c), 0)
	if err != nil {
		return fmt.Errorf("estimate failed: %w", err)
	}
	fmt.Fprintln(c.App.Writer, estimate)
	return nil
}

func reindexCommand(c *cli.Context) error {
	ctx, cancel := signalContext(c)
	defer cancel()

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	reindexer, err := db.NewReindexer(pipeline, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("failed to create reindexer: %w", err)
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", db.Config().Database)
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := reindexer.Run(ctx); err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}
	return nil
}

func scopeFromFlags(c *cli.Context) search.Scope {
	if globs := c.StringSlice("glob"); len(globs) > 0 {
		return search.GlobScope(globs...)
	}
	return search.EverythingScope()
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
