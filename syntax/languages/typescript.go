package languages

import (
	"github.com/poiesic/refscan/syntax"

	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

func RegisterTypeScript(r *syntax.Registry) {
	r.Register("typescript", &syntax.LanguageSpec{
		Language:    typescript.GetLanguage(),
		Extensions:  []string{"ts", "mts", "cts"},
		Aliases:     []string{"ts"},
		StringTypes: []string{"string", "string_fragment", "template_string", "regex"},
	})
}
