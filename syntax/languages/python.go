package languages

import (
	"github.com/poiesic/refscan/syntax"

	"github.com/smacker/go-tree-sitter/python"
)

func RegisterPython(r *syntax.Registry) {
	r.Register("python", &syntax.LanguageSpec{
		Language:    python.GetLanguage(),
		Extensions:  []string{"py", "pyi"},
		Aliases:     []string{"py", "python3"},
		StringTypes: []string{"string", "string_content", "concatenated_string"},
	})
}
