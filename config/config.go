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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as a string such as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText renders the duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config holds the settings of a refscan database.
type Config struct {
	// Database is the BadgerDB directory.
	Database string `toml:"database"`

	// Root is the source tree indexed by the index and watch commands.
	Root string `toml:"root"`

	Indexing IndexingConfig `toml:"indexing"`
	Search   SearchConfig   `toml:"search"`
	Reindex  ReindexConfig  `toml:"reindex"`
}

// IndexingConfig configures ingestion.
type IndexingConfig struct {
	// Workers is the size of the ingestion pool.
	Workers int `toml:"workers"`
}

// SearchConfig configures the searcher and the document loader.
type SearchConfig struct {
	// PoolSize is the number of documents scanned concurrently.
	PoolSize int `toml:"pool_size"`

	// IndexWaitTimeout bounds the wait for an index that is being updated.
	IndexWaitTimeout Duration `toml:"index_wait_timeout"`

	// CostThreshold is the document count at which a cost estimate
	// becomes too-many.
	CostThreshold int `toml:"cost_threshold"`

	// RateLimit caps scheduled documents per second. Zero disables it.
	RateLimit float64 `toml:"rate_limit"`

	// MaxRetained bounds the parsed documents kept during a scan phase.
	MaxRetained int `toml:"max_retained"`
}

// ReindexConfig configures full rebuilds.
type ReindexConfig struct {
	BatchSize      int      `toml:"batch_size"`
	Workers        int      `toml:"workers"`
	ReportInterval int      `toml:"report_interval"`
	MaxRetries     int      `toml:"max_retries"`
	RetryDelay     Duration `toml:"retry_delay"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithDatabase sets the database directory.
func WithDatabase(path string) ConfigOption {
	return func(c *Config) {
		c.Database = path
	}
}

// WithRoot sets the indexed source tree.
func WithRoot(root string) ConfigOption {
	return func(c *Config) {
		c.Root = root
	}
}

// WithPoolSize sets the scan pool size.
func WithPoolSize(size int) ConfigOption {
	return func(c *Config) {
		c.Search.PoolSize = size
	}
}

// WithCostThreshold sets the cost estimate threshold.
func WithCostThreshold(n int) ConfigOption {
	return func(c *Config) {
		c.Search.CostThreshold = n
	}
}

// DefaultConfig returns a Config with defaults sized for the local machine.
func DefaultConfig() *Config {
	return &Config{
		Database: ".refscan",
		Root:     ".",
		Indexing: IndexingConfig{
			Workers: max(runtime.NumCPU()/2, 1),
		},
		Search: SearchConfig{
			PoolSize:         runtime.NumCPU(),
			IndexWaitTimeout: Duration{30 * time.Second},
			CostThreshold:    10,
			MaxRetained:      256,
		},
		Reindex: ReindexConfig{
			BatchSize:      100,
			Workers:        max(runtime.NumCPU()/2, 1),
			ReportInterval: 100,
			MaxRetries:     3,
			RetryDelay:     Duration{time.Second},
		},
	}
}

// NewConfig creates a Config with the default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Load reads a TOML file over the defaults and validates the result.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Normalize cleans paths.
func (c *Config) Normalize() {
	if c.Database != "" {
		c.Database = filepath.Clean(c.Database)
	}
	if c.Root != "" {
		c.Root = filepath.Clean(c.Root)
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Database == "" {
		return fmt.Errorf("%w: database is required", ErrInvalidConfig)
	}
	if c.Indexing.Workers < 1 {
		return fmt.Errorf("%w: indexing.workers must be at least 1", ErrInvalidConfig)
	}
	if c.Search.PoolSize < 1 {
		return fmt.Errorf("%w: search.pool_size must be at least 1", ErrInvalidConfig)
	}
	if c.Search.IndexWaitTimeout.Duration < 0 {
		return fmt.Errorf("%w: search.index_wait_timeout cannot be negative", ErrInvalidConfig)
	}
	if c.Search.CostThreshold < 1 {
		return fmt.Errorf("%w: search.cost_threshold must be at least 1", ErrInvalidConfig)
	}
	if c.Search.RateLimit < 0 {
		return fmt.Errorf("%w: search.rate_limit cannot be negative", ErrInvalidConfig)
	}
	if c.Search.MaxRetained < 0 {
		return fmt.Errorf("%w: search.max_retained cannot be negative", ErrInvalidConfig)
	}
	if c.Reindex.BatchSize < 1 {
		return fmt.Errorf("%w: reindex.batch_size must be at least 1", ErrInvalidConfig)
	}
	if c.Reindex.Workers < 1 {
		return fmt.Errorf("%w: reindex.workers must be at least 1", ErrInvalidConfig)
	}
	if c.Reindex.ReportInterval < 1 {
		return fmt.Errorf("%w: reindex.report_interval must be at least 1", ErrInvalidConfig)
	}
	if c.Reindex.MaxRetries < 1 {
		return fmt.Errorf("%w: reindex.max_retries must be at least 1", ErrInvalidConfig)
	}
	return nil
}
