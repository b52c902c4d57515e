package search

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/matcher"
	"github.com/poiesic/refscan/words"
)

// ProcessElementsWithWord runs a single request for word and delivers every
// occurrence to handler. It returns false when handler stopped the search.
func (s *Searcher) ProcessElementsWithWord(ctx context.Context, word string, scope Scope, context core.SearchContext, caseSensitive bool, handler Handler) (bool, error) {
	if handler == nil {
		return false, ErrHandlerRequired
	}
	c := NewCollector()
	if err := c.SearchWord(word, scope, context, caseSensitive, "", handler); err != nil {
		return false, err
	}
	return s.Search(ctx, c, nil)
}

// ProcessCandidateDocuments calls fn for every document that may contain
// text in the given context, without scanning. Documents of a local scope
// are reported in element order. It returns false when fn stopped early.
func (s *Searcher) ProcessCandidateDocuments(ctx context.Context, scope Scope, context core.SearchContext, caseSensitive bool, text string, fn func(*core.Document) bool) (bool, error) {
	req := SearchRequest{
		Word:          text,
		Scope:         scope,
		Context:       context,
		CaseSensitive: caseSensitive,
		Handler:       func(core.Occurrence) bool { return true },
	}
	if err := req.Validate(); err != nil {
		return false, err
	}

	var ids []core.DocumentID
	if local, ok := scope.(*LocalScope); ok {
		for _, e := range local.Elements {
			if !slices.Contains(ids, e.Document) {
				ids = append(ids, e.Document)
			}
		}
	} else {
		merged, err := mergeRequests([]SearchRequest{req}, matcher.NewCache())
		if err != nil {
			return false, err
		}
		groups, _ := groupByWord(merged)
		set, err := s.resolver.resolve(ctx, groups)
		if err != nil {
			if ctx.Err() != nil {
				return false, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
			}
			return false, err
		}
		priority, rest := set.tiers()
		for _, c := range append(priority, rest...) {
			ids = append(ids, c.doc.ID)
		}
	}
	if len(ids) == 0 {
		return true, nil
	}

	docs, err := s.catalog.GetDocuments(ctx, ids...)
	if err != nil {
		return false, err
	}
	for _, doc := range docs {
		if ctx.Err() != nil {
			return false, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		if !fn(doc) {
			return false, nil
		}
	}
	return true, nil
}

// nonCodeContexts are the contexts in which a qualified name is mentioned
// as text rather than referenced by code.
const nonCodeContexts = core.ContextPlainText | core.ContextComments | core.ContextStringLiterals

// ProcessUsagesInPlainText reports textual mentions of a qualified name such
// as "pkg.sub.Type" in plain text, comments and string literals. The whole
// name must match with exact case and respect identifier boundaries, so
// "pkg.sub.TypeX" and a bare "sub.Type" are not mentions, while the prefix of
// "pkg.sub.Type.Method" is. It returns false when handler stopped the search.
func (s *Searcher) ProcessUsagesInPlainText(ctx context.Context, qualifiedName string, scope Scope, handler Handler) (bool, error) {
	name := strings.TrimSpace(qualifiedName)
	if err := core.ValidateWord(name); err != nil {
		return false, err
	}
	return s.ProcessElementsWithWord(ctx, name, scope, nonCodeContexts, true, handler)
}

// FindCommentsContainingIdentifier returns the comment elements that
// mention identifier case-sensitively, ordered by document and offset.
func (s *Searcher) FindCommentsContainingIdentifier(ctx context.Context, identifier string, scope Scope) ([]core.Element, error) {
	var (
		mu    sync.Mutex
		found = make(map[core.Element]struct{})
	)
	_, err := s.ProcessElementsWithWord(ctx, identifier, scope, core.ContextComments, true, func(occ core.Occurrence) bool {
		mu.Lock()
		found[occ.Element] = struct{}{}
		mu.Unlock()
		return true
	})
	if err != nil {
		return nil, err
	}
	return slices.SortedFunc(maps.Keys(found), func(a, b core.Element) int {
		return cmp.Or(
			cmp.Compare(a.Document, b.Document),
			cmp.Compare(a.Start, b.Start),
			cmp.Compare(b.End, a.End),
			cmp.Compare(a.View, b.View),
		)
	}), nil
}

// HasIdentifierInDocument reports whether the document contains word,
// case-sensitively. Indexed words are answered from the index alone.
func (s *Searcher) HasIdentifierInDocument(ctx context.Context, id core.DocumentID, word string) (bool, error) {
	if err := core.ValidateWord(word); err != nil {
		return false, err
	}
	keys, indexed := words.Keys(word, true)
	if indexed {
		found, err := s.resolver.lookup(ctx, keys, core.ContextAny)
		if err != nil {
			return false, err
		}
		_, ok := found[id]
		return ok, nil
	}

	m, err := matcher.New(keys[0].Word, matcher.Options{CaseSensitive: true})
	if err != nil {
		return false, err
	}
	doc, err := s.source.Open(ctx, id)
	if err != nil {
		return false, err
	}
	defer s.source.Release(doc)
	return m.Contains(doc.Text()), nil
}
