package search

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/matcher"
	"github.com/poiesic/refscan/words"
)

// mergeKey identifies requests that can share one scan.
type mergeKey struct {
	word          string
	scope         string
	context       core.SearchContext
	caseSensitive bool
}

// mergedRequest is the unit the resolver and scanner work on. Its handler
// is the short-circuit conjunction of the handlers of the merged requests.
type mergedRequest struct {
	word          string
	scope         Scope
	context       core.SearchContext
	caseSensitive bool
	hints         []string
	handlers      []Handler
	keys          []core.WordKey
	indexed       bool
	matcher       *matcher.Matcher

	// deliverMu serializes handler calls. The stop flag is read without
	// it so workers never wait behind a running handler to learn the
	// request is stopped.
	deliverMu sync.Mutex
	stopped   atomic.Bool
}

// hint returns the container name when the merged requests agree on one.
func (m *mergedRequest) hint() string {
	if len(m.hints) == 1 {
		return m.hints[0]
	}
	return ""
}

func (m *mergedRequest) isStopped() bool {
	return m.stopped.Load()
}

func (m *mergedRequest) stop() {
	m.stopped.Store(true)
}

// deliver passes occ to the handlers in registration order and stops the
// request at the first one returning false. It returns false once the
// request is stopped. Calls are serialized per request.
func (m *mergedRequest) deliver(occ core.Occurrence) bool {
	if m.stopped.Load() {
		return false
	}
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()
	if m.stopped.Load() {
		return false
	}
	for _, h := range m.handlers {
		if !h(occ) {
			m.stopped.Store(true)
			return false
		}
	}
	return true
}

// mergeRequests groups requests by word, scope, context and case and
// compiles one matcher per group. The order of first appearance is kept.
func mergeRequests(requests []SearchRequest, cache *matcher.Cache) ([]*mergedRequest, error) {
	byKey := make(map[mergeKey]*mergedRequest)
	var merged []*mergedRequest
	for _, req := range requests {
		word := strings.TrimSpace(req.Word)
		key := mergeKey{
			word:          word,
			scope:         req.Scope.Key(),
			context:       req.Context,
			caseSensitive: req.CaseSensitive,
		}
		m, ok := byKey[key]
		if !ok {
			keys, indexed := words.Keys(word, req.CaseSensitive)
			mt, err := cache.Get(word, matcher.Options{CaseSensitive: req.CaseSensitive, WholeWords: true})
			if err != nil {
				return nil, err
			}
			m = &mergedRequest{
				word:          word,
				scope:         req.Scope,
				context:       req.Context,
				caseSensitive: req.CaseSensitive,
				keys:          keys,
				indexed:       indexed,
				matcher:       mt,
			}
			byKey[key] = m
			merged = append(merged, m)
		}
		m.handlers = append(m.handlers, req.Handler)
		if hint := strings.TrimSpace(req.ContainerName); hint != "" && !slices.Contains(m.hints, hint) {
			m.hints = append(m.hints, hint)
		}
	}
	return merged, nil
}

// wordGroup is a set of global requests sharing one word key set.
type wordGroup struct {
	keys     []core.WordKey
	indexed  bool
	requests []*mergedRequest
}

// filter is the union of the contexts of the group.
func (g *wordGroup) filter() core.SearchContext {
	var c core.SearchContext
	for _, r := range g.requests {
		c |= r.context
	}
	return c
}

// hint returns the container name shared by every hinted request, or ""
// when the requests disagree.
func (g *wordGroup) hint() string {
	var hints []string
	for _, r := range g.requests {
		for _, h := range r.hints {
			if !slices.Contains(hints, h) {
				hints = append(hints, h)
			}
		}
	}
	if len(hints) == 1 {
		return hints[0]
	}
	return ""
}

// groupByWord splits merged requests into global word groups and local
// requests.
func groupByWord(merged []*mergedRequest) (groups []*wordGroup, local []*mergedRequest) {
	bySignature := make(map[string]*wordGroup)
	for _, m := range merged {
		if _, ok := m.scope.(*LocalScope); ok {
			local = append(local, m)
			continue
		}
		sig := words.Signature(m.keys)
		if !m.indexed {
			sig = "raw:" + sig
		}
		g, ok := bySignature[sig]
		if !ok {
			g = &wordGroup{keys: m.keys, indexed: m.indexed}
			bySignature[sig] = g
			groups = append(groups, g)
		}
		g.requests = append(g.requests, m)
	}
	return groups, local
}
