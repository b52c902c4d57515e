package languages

import (
	"github.com/poiesic/refscan/syntax"

	"github.com/smacker/go-tree-sitter/golang"
)

func RegisterGo(r *syntax.Registry) {
	r.Register("go", &syntax.LanguageSpec{
		Language:   golang.GetLanguage(),
		Extensions: []string{"go"},
		Aliases:    []string{"golang"},
		StringTypes: []string{
			"interpreted_string_literal",
			"raw_string_literal",
			"rune_literal",
		},
	})
}
