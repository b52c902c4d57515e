package search

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/poiesic/refscan/core"
)

// Handler receives one occurrence and reports whether scanning should
// continue for the request it was registered with. Handlers of one request
// are never called concurrently, but handlers of different requests may be.
type Handler func(core.Occurrence) bool

// Scope selects where a request looks. It is either a *GlobalScope or a
// *LocalScope.
type Scope interface {
	// Key identifies the scope for request merging.
	Key() string
	isScope()
}

// GlobalScope covers every indexed document accepted by a predicate.
// The name identifies the predicate: two global scopes with the same name
// are considered equal.
type GlobalScope struct {
	name       string
	contains   func(*core.Document) bool
	everything bool
}

// EverythingScope returns the scope covering the whole corpus.
func EverythingScope() *GlobalScope {
	return &GlobalScope{name: "everything", everything: true}
}

// GlobScope returns a scope matching document paths against patterns.
// Patterns use path.Match syntax. A pattern without a slash is also matched
// against the base name.
func GlobScope(patterns ...string) *GlobalScope {
	sorted := slices.Clone(patterns)
	slices.Sort(sorted)
	return &GlobalScope{
		name: "glob:" + strings.Join(sorted, ","),
		contains: func(doc *core.Document) bool {
			for _, p := range sorted {
				if ok, _ := path.Match(p, doc.Path); ok {
					return true
				}
				if !strings.Contains(p, "/") {
					if ok, _ := path.Match(p, path.Base(doc.Path)); ok {
						return true
					}
				}
			}
			return false
		},
	}
}

// NewGlobalScope returns a scope accepting the documents fn accepts.
func NewGlobalScope(name string, fn func(*core.Document) bool) *GlobalScope {
	return &GlobalScope{name: "custom:" + name, contains: fn}
}

// Contains reports whether doc is in scope.
func (s *GlobalScope) Contains(doc *core.Document) bool {
	if s.everything || s.contains == nil {
		return true
	}
	return s.contains(doc)
}

// Everything reports whether the scope accepts every document.
func (s *GlobalScope) Everything() bool {
	return s.everything
}

func (s *GlobalScope) Key() string {
	return "global:" + s.name
}

func (s *GlobalScope) isScope() {}

// LocalScope is an explicit list of elements. Unless IgnoreNested is set,
// embedded views inside an element are searched too.
type LocalScope struct {
	Elements     []core.Element
	IgnoreNested bool
}

// NewLocalScope returns a local scope over elements.
func NewLocalScope(ignoreNested bool, elements ...core.Element) *LocalScope {
	return &LocalScope{Elements: elements, IgnoreNested: ignoreNested}
}

func (s *LocalScope) Key() string {
	parts := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		parts[i] = fmt.Sprintf("%d/%d/%d-%d", e.Document, e.View, e.Start, e.End)
	}
	slices.Sort(parts)
	return fmt.Sprintf("local:%t:%s", s.IgnoreNested, strings.Join(parts, ","))
}

func (s *LocalScope) isScope() {}

// SearchRequest asks for every occurrence of Word in Scope within Context.
//
// ContainerName optionally names a container, such as a class, likely to
// declare the word. Documents mentioning both are scanned first.
// A nil Handler forwards occurrences to the consumer of the collector the
// request was added to.
type SearchRequest struct {
	Word          string
	Scope         Scope
	Context       core.SearchContext
	CaseSensitive bool
	ContainerName string
	Handler       Handler
}

// Validate checks the request for caller errors.
func (r *SearchRequest) Validate() error {
	if err := core.ValidateWord(r.Word); err != nil {
		return err
	}
	if err := core.ValidateSearchContext(r.Context); err != nil {
		return err
	}
	if r.Scope == nil {
		return ErrScopeRequired
	}
	if local, ok := r.Scope.(*LocalScope); ok {
		for _, e := range local.Elements {
			if err := core.ValidateElement(e); err != nil {
				return err
			}
		}
	}
	return nil
}
