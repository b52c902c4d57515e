package languages

import (
	"github.com/poiesic/refscan/syntax"

	"github.com/smacker/go-tree-sitter/javascript"
)

func RegisterJavaScript(r *syntax.Registry) {
	r.Register("javascript", &syntax.LanguageSpec{
		Language:    javascript.GetLanguage(),
		Extensions:  []string{"js", "jsx", "mjs", "cjs"},
		Aliases:     []string{"js", "jsx"},
		StringTypes: []string{"string", "string_fragment", "template_string", "regex"},
	})
}
