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

package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/matcher"
	"github.com/poiesic/refscan/storage"
	"github.com/poiesic/refscan/words"
)

const (
	// DefaultCostThreshold is the document count at which EstimateCost
	// reports CostTooMany.
	DefaultCostThreshold = 10

	// DefaultIndexWaitTimeout bounds the wait for a word index that is
	// being updated.
	DefaultIndexWaitTimeout = 30 * time.Second
)

// Searcher runs indexed word-level reference searches.
type Searcher struct {
	index         storage.WordIndex
	catalog       Catalog
	source        DocumentSource
	resolver      *resolver
	poolSize      int
	indexWait     time.Duration
	costThreshold int
	policy        Policy
	monitor       SearchMonitor
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithPoolSize sets the number of documents scanned concurrently.
// Default is runtime.NumCPU().
func WithPoolSize(size int) Option {
	return func(s *Searcher) error {
		if size < 1 {
			size = 1
		}
		s.poolSize = size
		return nil
	}
}

// WithIndexWaitTimeout sets how long a search waits for the word index
// to become ready before failing with ErrIndexUnavailable.
// Default is 30 seconds.
func WithIndexWaitTimeout(d time.Duration) Option {
	return func(s *Searcher) error {
		if d < 0 {
			d = 0
		}
		s.indexWait = d
		return nil
	}
}

// WithCostThreshold sets the document count at which EstimateCost
// reports CostTooMany. Default is 10.
func WithCostThreshold(n int) Option {
	return func(s *Searcher) error {
		if n < 1 {
			n = 1
		}
		s.costThreshold = n
		return nil
	}
}

// WithBackpressure sets the scheduling policy.
// Default never pauses.
func WithBackpressure(policy Policy) Option {
	return func(s *Searcher) error {
		if policy == nil {
			policy = NoBackpressure()
		}
		s.policy = policy
		return nil
	}
}

// WithMonitor sets the monitor used by Search.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index storage.WordIndex, catalog Catalog, source DocumentSource, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrWordIndexRequired
	}
	if catalog == nil {
		return nil, ErrCatalogRequired
	}
	if source == nil {
		return nil, ErrSourceRequired
	}

	s := &Searcher{
		index:         index,
		catalog:       catalog,
		source:        source,
		poolSize:      runtime.NumCPU(),
		indexWait:     DefaultIndexWaitTimeout,
		costThreshold: DefaultCostThreshold,
		policy:        NoBackpressure(),
		monitor:       &noopMonitor{},
		logger:        slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.resolver = &resolver{
		index:       index,
		catalog:     catalog,
		waitTimeout: s.indexWait,
		logger:      s.logger,
	}
	return s, nil
}

// binding pairs a collector with the consumer its handler-less requests
// are delivered to.
type binding struct {
	collector *Collector
	consumer  Handler
}

type boundAction struct {
	action   Action
	consumer Handler
}

// Search runs every request registered on collector, including requests
// added by expansions and by handlers while the search runs, until nothing
// is pending. Requests without a handler deliver to consumer.
//
// It returns false when a handler or action asked to stop early. Handler
// panics on worker goroutines are returned as *HandlerError; cancellation
// is returned as ErrCancelled.
func (s *Searcher) Search(ctx context.Context, collector *Collector, consumer Handler) (bool, error) {
	return s.SearchWithMonitor(ctx, collector, consumer, nil)
}

// SearchWithMonitor is Search with a monitor receiving callbacks at each
// phase. A nil monitor falls back to the one configured with WithMonitor.
func (s *Searcher) SearchWithMonitor(ctx context.Context, collector *Collector, consumer Handler, monitor SearchMonitor) (completed bool, err error) {
	if monitor == nil {
		monitor = s.monitor
	}
	r := &run{ctx: ctx, s: s, monitor: monitor, matchers: matcher.NewCache()}

	monitor.Start()
	defer func() {
		if p := recover(); p != nil {
			monitor.EnterState(StateFailed)
			monitor.Finish(false, fmt.Errorf("search panicked: %v", p))
			panic(p)
		}
		switch {
		case err == nil:
			monitor.EnterState(StateDone)
		case errors.Is(err, ErrCancelled):
			monitor.EnterState(StateCancelled)
		case errors.Is(err, ErrIndexUnavailable):
			monitor.EnterState(StateIndexUnavailable)
		default:
			monitor.EnterState(StateFailed)
		}
		monitor.Finish(completed, err)
	}()

	known := []binding{{collector: collector, consumer: consumer}}
	for round := 1; ; round++ {
		if ctx.Err() != nil {
			return false, r.cancelled()
		}
		monitor.EnterState(StateCollecting)
		requests, actions, err := s.collect(ctx, &known)
		if err != nil {
			if ctx.Err() != nil {
				return false, r.cancelled()
			}
			return false, err
		}
		if len(requests) == 0 && len(actions) == 0 {
			break
		}
		s.logger.Debug("search round", "round", round, "requests", len(requests), "actions", len(actions))
		if err := r.runRound(requests, actions); err != nil {
			return false, err
		}
		monitor.EnterState(StateDraining)
	}
	return !r.stoppedEarly.Load(), nil
}

// collect takes everything pending on the known collectors. Expansions
// run immediately on fresh collectors, which join the known set.
func (s *Searcher) collect(ctx context.Context, known *[]binding) ([]SearchRequest, []boundAction, error) {
	var (
		requests []SearchRequest
		actions  []boundAction
	)
	queue := slices.Clone(*known)
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]

		reqs, expansions, acts := b.collector.take()
		for _, req := range reqs {
			if req.Handler == nil {
				if b.consumer == nil {
					return nil, nil, fmt.Errorf("%w: request for %q", ErrHandlerRequired, req.Word)
				}
				req.Handler = b.consumer
			}
			requests = append(requests, req)
		}
		for _, a := range acts {
			actions = append(actions, boundAction{action: a, consumer: b.consumer})
		}
		for _, e := range expansions {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			consumer := e.consumer
			if consumer == nil {
				consumer = b.consumer
			}
			nb := binding{collector: NewCollector(), consumer: consumer}
			if err := e.run(ctx, nb.collector); err != nil {
				return nil, nil, fmt.Errorf("query expansion: %w", err)
			}
			*known = append(*known, nb)
			queue = append(queue, nb)
		}
	}
	return requests, actions, nil
}

// runRound merges, resolves and scans one batch of requests, then runs
// the pending actions.
func (r *run) runRound(requests []SearchRequest, actions []boundAction) error {
	s := r.s
	r.monitor.EnterState(StateMerging)
	merged, err := mergeRequests(requests, r.matchers)
	if err != nil {
		return err
	}
	groups, local := groupByWord(merged)

	if len(groups) > 0 {
		r.monitor.EnterState(StateResolving)
		set, err := s.resolver.resolve(r.ctx, groups)
		if err != nil {
			if r.ctx.Err() != nil {
				return r.cancelled()
			}
			s.logger.Error("error resolving candidates", "err", err)
			return err
		}
		priority, rest := set.tiers()
		r.monitor.AfterResolve(len(priority), len(rest))

		r.monitor.EnterState(StateScanning)
		if err := r.scanGlobal(append(priority, rest...)); err != nil {
			return err
		}
	}

	if len(local) > 0 {
		r.monitor.EnterState(StateScanning)
		for _, req := range local {
			if r.ctx.Err() != nil {
				return r.cancelled()
			}
			r.scanLocal(req)
		}
		if r.ctx.Err() != nil {
			return r.cancelled()
		}
	}

	for _, a := range actions {
		if r.ctx.Err() != nil {
			return r.cancelled()
		}
		if !a.action(r.ctx, a.consumer) {
			r.stoppedEarly.Store(true)
		}
	}
	return nil
}

// scanGlobal scans candidates on a bounded worker pool, in order.
// The backpressure policy is consulted before every submission.
func (r *run) scanGlobal(candidates []*candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	s := r.s
	pool, err := ants.NewPool(s.poolSize)
	if err != nil {
		return fmt.Errorf("creating scan pool: %w", err)
	}
	defer pool.Release()

	if hinter, ok := s.source.(BatchHinter); ok {
		hinter.StartBatch()
		defer hinter.FinishBatch()
	}

	var wg sync.WaitGroup
	var submitErr error
	for _, c := range candidates {
		if r.ctx.Err() != nil {
			break
		}
		if allStopped(c.requests) {
			continue
		}
		if err := s.policy.Checkpoint(r.ctx, r.stats()); err != nil {
			if r.ctx.Err() == nil {
				submitErr = fmt.Errorf("backpressure: %w", err)
			}
			break
		}
		wg.Add(1)
		r.scheduled.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			r.scanCandidate(c)
		}); err != nil {
			wg.Done()
			submitErr = fmt.Errorf("submitting scan: %w", err)
			break
		}
	}
	wg.Wait()

	if r.ctx.Err() != nil {
		return r.cancelled()
	}
	if submitErr != nil {
		return submitErr
	}
	if fault := r.firstFault(); fault != nil {
		return fault
	}
	return nil
}

// EstimateCost estimates how many documents a search for word in scope
// would scan, ignoring the document exclude. Zero means no document, and
// CostTooMany means at least the cost threshold. Local scopes never touch
// the index.
func (s *Searcher) EstimateCost(ctx context.Context, word string, scope Scope, exclude core.DocumentID) (core.CostEstimate, error) {
	if err := core.ValidateWord(word); err != nil {
		return core.CostZero, err
	}
	if scope == nil {
		return core.CostZero, ErrScopeRequired
	}

	if local, ok := scope.(*LocalScope); ok {
		for _, e := range local.Elements {
			if e.Document != exclude {
				return core.CostFew, nil
			}
		}
		return core.CostZero, nil
	}

	global, ok := scope.(*GlobalScope)
	if !ok {
		return core.CostZero, fmt.Errorf("unsupported scope %T", scope)
	}

	count := 0
	consider := func(doc *core.Document) bool {
		if doc.ID != exclude && global.Contains(doc) {
			count++
		}
		return count < s.costThreshold
	}

	keys, indexed := words.Keys(word, false)
	var err error
	if indexed {
		err = s.countIndexed(ctx, keys, global, exclude, consider)
	} else {
		err = s.catalog.ForEachDocument(ctx, func(doc *core.Document) error {
			if !consider(doc) {
				return errStopIteration
			}
			return nil
		})
		if errors.Is(err, errStopIteration) {
			err = nil
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return core.CostZero, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return core.CostZero, err
	}

	switch {
	case count == 0:
		return core.CostZero, nil
	case count >= s.costThreshold:
		return core.CostTooMany, nil
	default:
		return core.CostFew, nil
	}
}

var errStopIteration = errors.New("stop iteration")

// countIndexed feeds the documents the index returns for keys to consider
// until it asks to stop. Metadata is loaded in chunks of the threshold.
func (s *Searcher) countIndexed(ctx context.Context, keys []core.WordKey, scope *GlobalScope, exclude core.DocumentID, consider func(*core.Document) bool) error {
	found, err := s.resolver.lookup(ctx, keys, core.ContextAny)
	if err != nil {
		return err
	}
	ids := make([]core.DocumentID, 0, len(found))
	for id := range found {
		if id != exclude {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	if scope.Everything() {
		for _, id := range ids {
			if !consider(&core.Document{ID: id}) {
				return nil
			}
		}
		return nil
	}
	for chunk := range slices.Chunk(ids, s.costThreshold) {
		docs, err := s.catalog.GetDocuments(ctx, chunk...)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if !consider(doc) {
				return nil
			}
		}
	}
	return nil
}
