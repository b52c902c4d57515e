package languages

import "github.com/poiesic/refscan/syntax"

// RegisterMarkdown registers Markdown as plain text whose fenced code blocks
// are parsed with the grammar named on the fence.
func RegisterMarkdown(r *syntax.Registry) {
	r.Register("markdown", &syntax.LanguageSpec{
		Extensions: []string{"md", "markdown"},
		Fenced:     true,
	})
}

// RegisterText registers common plain text extensions so the indexer picks
// them up.
func RegisterText(r *syntax.Registry) {
	r.Register("text", &syntax.LanguageSpec{
		Extensions: []string{"txt", "text"},
	})
}
