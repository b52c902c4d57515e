package syntax

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// defaultStringTypes are node types treated as string literals when a
// LanguageSpec does not list its own.
var defaultStringTypes = []string{
	"string",
	"string_literal",
	"string_fragment",
	"string_content",
	"interpreted_string_literal",
	"raw_string_literal",
	"rune_literal",
	"template_string",
	"char_literal",
}

// LanguageSpec defines the tree-sitter grammar and classification rules for a language.
type LanguageSpec struct {
	// Language is the tree-sitter grammar. Nil means the files are plain text.
	Language   *sitter.Language
	Extensions []string
	// Aliases are extra names accepted on fenced code blocks, e.g. "js".
	Aliases []string
	// StringTypes lists node types whose text is a string literal.
	// Defaults to a set covering the bundled grammars.
	StringTypes []string
	// Fenced marks documents that embed fenced code blocks in other
	// languages, such as Markdown. Each block becomes its own view.
	Fenced bool

	stringTypes map[string]bool
}

func (s *LanguageSpec) isString(nodeType string) bool {
	return s.stringTypes[nodeType]
}

// Registry maps file extensions and names to language specs.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*LanguageSpec // extension (without dot) → spec
	langs map[string]*LanguageSpec // language name or alias → spec
	names map[*LanguageSpec]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]*LanguageSpec),
		langs: make(map[string]*LanguageSpec),
		names: make(map[*LanguageSpec]string),
	}
}

// Register adds a language spec under the given name.
func (r *Registry) Register(name string, spec *LanguageSpec) {
	types := spec.StringTypes
	if len(types) == 0 {
		types = defaultStringTypes
	}
	spec.stringTypes = make(map[string]bool, len(types))
	for _, t := range types {
		spec.stringTypes[t] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs[name] = spec
	r.names[spec] = name
	for _, alias := range spec.Aliases {
		r.langs[strings.ToLower(alias)] = spec
	}
	for _, ext := range spec.Extensions {
		r.specs[ext] = spec
	}
}

// Lookup returns the spec for a file path based on its extension, or nil.
func (r *Registry) Lookup(path string) (spec *LanguageSpec, lang string) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[ext]
	if !ok {
		return nil, ""
	}
	return s, r.names[s]
}

// LookupName returns the spec registered under name or one of its aliases.
func (r *Registry) LookupName(name string) (spec *LanguageSpec, lang string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.langs[strings.ToLower(name)]
	if !ok {
		return nil, ""
	}
	return s, r.names[s]
}

// LanguageName returns the language name for a file path, or "".
func (r *Registry) LanguageName(path string) string {
	_, lang := r.Lookup(path)
	return lang
}

// Extensions returns the set of all registered file extensions (without dot).
func (r *Registry) Extensions() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make(map[string]bool, len(r.specs))
	for ext := range r.specs {
		exts[ext] = true
	}
	return exts
}
