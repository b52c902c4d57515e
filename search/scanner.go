package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/matcher"
	"github.com/poiesic/refscan/syntax"
)

// DocumentSource opens parsed documents. *syntax.Loader satisfies it.
// Open may fail for documents that vanished or cannot be read; such
// documents are skipped.
type DocumentSource interface {
	Open(ctx context.Context, id core.DocumentID) (*syntax.Document, error)
	Release(doc *syntax.Document)
}

// BatchHinter is implemented by sources that can retain documents across
// a scan phase.
type BatchHinter interface {
	StartBatch()
	FinishBatch()
}

// run holds the state of one search invocation.
type run struct {
	ctx      context.Context
	s        *Searcher
	monitor  SearchMonitor
	matchers *matcher.Cache

	scheduled    atomic.Int64
	scanned      atomic.Int64
	occurrences  atomic.Int64
	stoppedEarly atomic.Bool

	faultMu sync.Mutex
	fault   error
}

func (r *run) stats() Stats {
	return Stats{
		Scheduled:   r.scheduled.Load(),
		Scanned:     r.scanned.Load(),
		Occurrences: r.occurrences.Load(),
	}
}

func (r *run) cancelled() error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(r.ctx))
}

func (r *run) recordFault(err error) {
	r.faultMu.Lock()
	defer r.faultMu.Unlock()
	if r.fault == nil {
		r.fault = err
	}
}

func (r *run) firstFault() error {
	r.faultMu.Lock()
	defer r.faultMu.Unlock()
	return r.fault
}

// open loads a document, reporting unreadable documents as skipped.
func (r *run) open(id core.DocumentID) (*syntax.Document, bool) {
	doc, err := r.s.source.Open(r.ctx, id)
	if err != nil {
		if r.ctx.Err() == nil {
			r.s.logger.Debug("skipping unreadable document", "document", id, "err", err)
			r.monitor.DocumentSkipped(id, err)
		}
		return nil, false
	}
	return doc, true
}

// scanCandidate scans one document on a worker. Every view is scanned
// once over the offsets it owns.
func (r *run) scanCandidate(c *candidate) {
	if r.ctx.Err() != nil || allStopped(c.requests) {
		return
	}
	doc, ok := r.open(c.doc.ID)
	if !ok {
		return
	}
	defer r.s.source.Release(doc)

	seen := make(map[*syntax.View]bool)
	for _, view := range doc.Views() {
		if seen[view] {
			continue
		}
		seen[view] = true
		start, end := view.Range()
		owns := func(owner *syntax.View) bool { return owner == view }
		for _, req := range c.requests {
			r.scanRange(doc, req, start, end, owns, true, nil)
		}
	}
	r.monitor.DocumentScanned(c.doc.ID, r.scanned.Add(1))
}

// scanLocal scans the elements of a local request in the calling goroutine.
// Handler panics propagate to the caller.
func (r *run) scanLocal(req *mergedRequest) {
	local := req.scope.(*LocalScope)

	var order []core.DocumentID
	byDoc := make(map[core.DocumentID][]core.Element)
	for _, e := range local.Elements {
		if _, ok := byDoc[e.Document]; !ok {
			order = append(order, e.Document)
		}
		byDoc[e.Document] = append(byDoc[e.Document], e)
	}

	for _, id := range order {
		if r.ctx.Err() != nil || req.isStopped() {
			return
		}
		r.scanElements(id, byDoc[id], req, local.IgnoreNested)
	}
}

func (r *run) scanElements(id core.DocumentID, elements []core.Element, req *mergedRequest, ignoreNested bool) {
	doc, ok := r.open(id)
	if !ok {
		return
	}
	defer r.s.source.Release(doc)

	// Elements may overlap; report each offset once.
	reported := make(map[int]bool)
	for _, e := range elements {
		view := doc.View(e.View)
		if view == nil {
			view = doc.ViewAt(e.Start)
		}
		accept := func(owner *syntax.View) bool { return !ignoreNested || owner == view }
		r.scanRange(doc, req, e.Start, e.End, accept, false, reported)
	}
	r.monitor.DocumentScanned(id, r.scanned.Add(1))
}

// scanRange delivers the matches of req in [start, end) whose owning view
// is accepted and whose context the request asks for. Matches that cut
// through an identifier are only accepted inside string literals.
func (r *run) scanRange(doc *syntax.Document, req *mergedRequest, start, end int, accept func(*syntax.View) bool, recoverFaults bool, reported map[int]bool) {
	for m := range req.matcher.All(doc.Text(), start, end) {
		if r.ctx.Err() != nil || req.isStopped() {
			return
		}
		if reported != nil && reported[m.Offset] {
			continue
		}
		owner := doc.ViewAt(m.Offset)
		if !accept(owner) {
			continue
		}
		found := owner.ContextAt(m.Offset)
		if !req.context.Has(found) {
			continue
		}
		if !m.Bounded && found != core.ContextStringLiterals {
			continue
		}
		if reported != nil {
			reported[m.Offset] = true
		}

		elem := owner.ElementAt(m.Offset, m.Length)
		occ := core.Occurrence{
			Document:        doc.ID(),
			Path:            doc.Path(),
			Offset:          m.Offset,
			Length:          m.Length,
			Element:         elem,
			OffsetInElement: m.Offset - elem.Start,
			Context:         found,
		}
		if !r.dispatch(req, occ, recoverFaults) {
			return
		}
	}
}

// dispatch delivers one occurrence. With recoverFaults a handler panic
// stops the request and is recorded as a *HandlerError.
func (r *run) dispatch(req *mergedRequest, occ core.Occurrence, recoverFaults bool) (cont bool) {
	if recoverFaults {
		defer func() {
			if v := recover(); v != nil {
				req.stop()
				r.s.logger.Error("result handler panicked", "word", req.word, "path", occ.Path, "panic", v)
				r.recordFault(&HandlerError{Word: req.word, Document: occ.Document, Path: occ.Path, Value: v})
				cont = false
			}
		}()
	}
	if r.ctx.Err() != nil {
		return false
	}
	if !req.deliver(occ) {
		r.stoppedEarly.Store(true)
		return false
	}
	r.occurrences.Add(1)
	return true
}

func allStopped(requests []*mergedRequest) bool {
	for _, req := range requests {
		if !req.isStopped() {
			return false
		}
	}
	return true
}
