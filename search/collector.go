package search

import (
	"context"
	"sync"

	"github.com/poiesic/refscan/core"
)

// Expansion registers derived requests on the collector it is given.
// It runs during a search, after the requests collected so far were taken,
// and may itself register further expansions.
type Expansion func(ctx context.Context, c *Collector) error

// Action is a custom step run after the requests of its collector were
// scanned. It receives the consumer of its collector and reports whether
// the search should be considered complete.
type Action func(ctx context.Context, consumer Handler) bool

type pendingExpansion struct {
	run      Expansion
	consumer Handler
}

// Collector gathers the requests of one search. It is safe for concurrent
// use, so handlers may register follow-up requests while a search runs.
// Everything registered is taken by the searcher exactly once.
type Collector struct {
	mu         sync.Mutex
	requests   []SearchRequest
	expansions []pendingExpansion
	actions    []Action
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add validates and registers a request.
func (c *Collector) Add(req SearchRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return nil
}

// SearchWord registers a request for word.
func (c *Collector) SearchWord(word string, scope Scope, context core.SearchContext, caseSensitive bool, containerName string, handler Handler) error {
	return c.Add(SearchRequest{
		Word:          word,
		Scope:         scope,
		Context:       context,
		CaseSensitive: caseSensitive,
		ContainerName: containerName,
		Handler:       handler,
	})
}

// Expand registers an expansion. Requests it adds without a handler are
// delivered to consumer, or to this collector's consumer when consumer is nil.
func (c *Collector) Expand(run Expansion, consumer Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expansions = append(c.expansions, pendingExpansion{run: run, consumer: consumer})
}

// AddAction registers a custom action.
func (c *Collector) AddAction(action Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, action)
}

// Empty reports whether nothing is pending.
func (c *Collector) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests) == 0 && len(c.expansions) == 0 && len(c.actions) == 0
}

// take removes and returns everything pending.
func (c *Collector) take() ([]SearchRequest, []pendingExpansion, []Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	requests, expansions, actions := c.requests, c.expansions, c.actions
	c.requests, c.expansions, c.actions = nil, nil, nil
	return requests, expansions, actions
}
