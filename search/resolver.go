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
	"maps"
	"slices"
	"time"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
	"github.com/poiesic/refscan/words"
	"golang.org/x/sync/errgroup"
)

// Catalog provides the document metadata used for scope filtering.
// storage.DocumentRepository satisfies it.
type Catalog interface {
	GetDocuments(ctx context.Context, ids ...core.DocumentID) ([]*core.Document, error)
	ForEachDocument(ctx context.Context, fn func(*core.Document) error) error
}

// maxConcurrentGroups bounds the index lookups running at once.
const maxConcurrentGroups = 4

// candidate is one document to scan with the requests pending on it.
type candidate struct {
	doc      *core.Document
	priority bool
	requests []*mergedRequest
}

// candidateSet maps documents to their pending requests.
type candidateSet struct {
	byID map[core.DocumentID]*candidate
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byID: make(map[core.DocumentID]*candidate)}
}

func (s *candidateSet) add(doc *core.Document, req *mergedRequest, priority bool) {
	c, ok := s.byID[doc.ID]
	if !ok {
		c = &candidate{doc: doc}
		s.byID[doc.ID] = c
	}
	c.priority = c.priority || priority
	if !slices.Contains(c.requests, req) {
		c.requests = append(c.requests, req)
	}
}

func (s *candidateSet) merge(other *candidateSet) {
	for _, id := range slices.Sorted(maps.Keys(other.byID)) {
		c := other.byID[id]
		for _, req := range c.requests {
			s.add(c.doc, req, c.priority)
		}
	}
}

func (s *candidateSet) len() int {
	return len(s.byID)
}

// tiers returns the priority documents followed by the rest, each in ID order.
func (s *candidateSet) tiers() (priority, rest []*candidate) {
	for _, id := range slices.Sorted(maps.Keys(s.byID)) {
		c := s.byID[id]
		if c.priority {
			priority = append(priority, c)
		} else {
			rest = append(rest, c)
		}
	}
	return priority, rest
}

// resolver turns word groups into candidate documents.
type resolver struct {
	index       storage.WordIndex
	catalog     Catalog
	waitTimeout time.Duration
	logger      *slog.Logger
}

// resolve resolves every group concurrently and merges the results in
// group order.
func (r *resolver) resolve(ctx context.Context, groups []*wordGroup) (*candidateSet, error) {
	results := make([]*candidateSet, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentGroups)
	for i, group := range groups {
		g.Go(func() error {
			set, err := r.resolveGroup(gctx, group)
			if err != nil {
				return err
			}
			results[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	merged := newCandidateSet()
	for _, set := range results {
		merged.merge(set)
	}
	return merged, nil
}

// resolveGroup finds the documents containing every key of the group and
// filters them per request by context and scope. When the group shares one
// container name, documents also containing it form the priority tier.
func (r *resolver) resolveGroup(ctx context.Context, group *wordGroup) (*candidateSet, error) {
	var (
		found map[core.DocumentID]core.SearchContext
		docs  []*core.Document
		err   error
	)
	if group.indexed {
		found, err = r.lookup(ctx, group.keys, group.filter())
		if err != nil {
			return nil, err
		}
		docs, err = r.documents(ctx, group, slices.Sorted(maps.Keys(found)))
	} else {
		docs, err = r.allDocuments(ctx)
	}
	if err != nil {
		return nil, err
	}

	var priority map[core.DocumentID]core.SearchContext
	if hint := group.hint(); hint != "" && group.indexed {
		hintKeys, ok := words.Keys(hint, group.keys[0].CaseSensitive)
		if ok {
			priority, err = r.lookup(ctx, words.Union(group.keys, hintKeys), core.ContextAny)
			if err != nil {
				return nil, err
			}
		}
	}

	set := newCandidateSet()
	for _, doc := range docs {
		_, prio := priority[doc.ID]
		for _, req := range group.requests {
			if found != nil && !found[doc.ID].Has(req.context) {
				continue
			}
			if !req.scope.(*GlobalScope).Contains(doc) {
				continue
			}
			set.add(doc, req, prio)
		}
	}
	r.logger.Debug("resolved word group", "keys", words.Signature(group.keys), "indexed", group.indexed,
		"found", len(docs), "candidates", set.len(), "priority", len(priority))
	return set, nil
}

// lookup queries the index, waiting for it to become ready for at most
// waitTimeout overall.
func (r *resolver) lookup(ctx context.Context, keys []core.WordKey, filter core.SearchContext) (map[core.DocumentID]core.SearchContext, error) {
	var deadline time.Time
	for {
		found, err := r.index.Lookup(ctx, keys, filter)
		if !errors.Is(err, storage.ErrIndexNotReady) {
			return found, err
		}
		if deadline.IsZero() {
			deadline = time.Now().Add(r.waitTimeout)
		} else if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: not ready after %v", ErrIndexUnavailable, r.waitTimeout)
		}

		r.logger.Debug("word index not ready, waiting", "timeout", r.waitTimeout)
		wctx, cancel := context.WithDeadline(ctx, deadline)
		err = r.index.WaitReady(wctx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: not ready after %v", ErrIndexUnavailable, r.waitTimeout)
		}
	}
}

// documents loads metadata for ids. Groups whose scopes all cover the whole
// corpus skip the catalog.
func (r *resolver) documents(ctx context.Context, group *wordGroup, ids []core.DocumentID) ([]*core.Document, error) {
	everything := true
	for _, req := range group.requests {
		if !req.scope.(*GlobalScope).Everything() {
			everything = false
			break
		}
	}
	if everything {
		docs := make([]*core.Document, len(ids))
		for i, id := range ids {
			docs[i] = &core.Document{ID: id}
		}
		return docs, nil
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return r.catalog.GetDocuments(ctx, ids...)
}

// allDocuments lists the corpus for words the index cannot narrow.
func (r *resolver) allDocuments(ctx context.Context) ([]*core.Document, error) {
	var docs []*core.Document
	err := r.catalog.ForEachDocument(ctx, func(doc *core.Document) error {
		docs = append(docs, doc)
		return nil
	})
	return docs, err
}
