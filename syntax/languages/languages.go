// Package languages registers the bundled tree-sitter grammars.
package languages

import "github.com/poiesic/refscan/syntax"

// RegisterAll registers every bundled language with r.
func RegisterAll(r *syntax.Registry) {
	RegisterGo(r)
	RegisterJavaScript(r)
	RegisterTypeScript(r)
	RegisterPython(r)
	RegisterMarkdown(r)
	RegisterText(r)
}

// NewRegistry returns a registry with every bundled language registered.
func NewRegistry() *syntax.Registry {
	r := syntax.NewRegistry()
	RegisterAll(r)
	return r
}
