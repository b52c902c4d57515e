package syntax_test

import (
	"context"
	"strings"
	"testing"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/syntax"
	"github.com/poiesic/refscan/syntax/languages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, path, src string) *syntax.Document {
	t.Helper()
	p := syntax.NewParser(languages.NewRegistry())
	doc, err := p.Parse(context.Background(), &core.Document{ID: 7, Path: path}, []byte(src))
	require.NoError(t, err)
	t.Cleanup(doc.Close)
	return doc
}

func TestRegistry(t *testing.T) {
	r := languages.NewRegistry()

	t.Run("lookup by extension", func(t *testing.T) {
		spec, lang := r.Lookup("src/app.JS")
		require.NotNil(t, spec)
		assert.Equal(t, "javascript", lang)
		assert.Equal(t, "go", r.LanguageName("main.go"))
		assert.Equal(t, "", r.LanguageName("image.png"))
	})

	t.Run("lookup by alias", func(t *testing.T) {
		_, lang := r.LookupName("ts")
		assert.Equal(t, "typescript", lang)
		_, lang = r.LookupName("Golang")
		assert.Equal(t, "go", lang)
		spec, _ := r.LookupName("cobol")
		assert.Nil(t, spec)
	})

	t.Run("extensions", func(t *testing.T) {
		exts := r.Extensions()
		for _, ext := range []string{"go", "js", "ts", "py", "md", "txt"} {
			assert.True(t, exts[ext], ext)
		}
	})
}

func TestContextAt(t *testing.T) {
	src := "let getName = \"getName\"; // getName\n"
	doc := parse(t, "a.js", src)

	assert.Equal(t, "javascript", doc.Meta().Language)
	assert.Equal(t, core.ContextCode, doc.ContextAt(strings.Index(src, "getName")))
	assert.Equal(t, core.ContextStringLiterals, doc.ContextAt(strings.Index(src, "\"getName")+1))
	assert.Equal(t, core.ContextComments, doc.ContextAt(strings.LastIndex(src, "getName")))
}

func TestContextAtGo(t *testing.T) {
	src := "package p\n\n/* Foo */\nvar s = `Foo`\nvar Foo = 1\n"
	doc := parse(t, "p.go", src)

	assert.Equal(t, core.ContextComments, doc.ContextAt(strings.Index(src, "Foo")))
	assert.Equal(t, core.ContextStringLiterals, doc.ContextAt(strings.Index(src, "`Foo")+1))
	assert.Equal(t, core.ContextCode, doc.ContextAt(strings.LastIndex(src, "Foo")))
}

func TestElementAt(t *testing.T) {
	src := "class Foo { getName() {} }"
	doc := parse(t, "a.js", src)

	offset := strings.Index(src, "getName")
	elem := doc.ElementAt(offset, len("getName"))
	assert.Equal(t, core.DocumentID(7), elem.Document)
	assert.Equal(t, 0, elem.View)
	assert.Equal(t, "property_identifier", elem.Kind)
	assert.Equal(t, offset, elem.Start)
	assert.Equal(t, offset+len("getName"), elem.End)

	t.Run("smallest element covers the whole range", func(t *testing.T) {
		elem := doc.ElementAt(strings.Index(src, "Foo"), len("Foo { getName"))
		assert.Equal(t, "class_declaration", elem.Kind)
		assert.Equal(t, 0, elem.Start)
	})
}

func TestPlainText(t *testing.T) {
	src := "first line\nsecond getName line\nthird"
	doc := parse(t, "notes.txt", src)

	require.Len(t, doc.Views(), 1)
	assert.True(t, doc.Root().Plain())

	offset := strings.Index(src, "getName")
	assert.Equal(t, core.ContextPlainText, doc.ContextAt(offset))
	elem := doc.ElementAt(offset, 7)
	assert.Equal(t, syntax.LineKind, elem.Kind)
	assert.Equal(t, "second getName line", src[elem.Start:elem.End])

	t.Run("unknown extension is plain text", func(t *testing.T) {
		doc := parse(t, "data.bin", "getName")
		assert.Equal(t, "", doc.Meta().Language)
		assert.Equal(t, core.ContextPlainText, doc.ContextAt(0))
	})

	t.Run("last line without newline", func(t *testing.T) {
		elem := doc.ElementAt(len(src)-1, 1)
		assert.Equal(t, "third", src[elem.Start:elem.End])
	})
}

func TestFencedViews(t *testing.T) {
	src := "# Notes\n\n```js\nlet getName = 1;\n```\n\ngetName in prose\n\n~~~unknown\ngetName\n~~~\n"
	doc := parse(t, "README.md", src)

	require.Len(t, doc.Views(), 2, "only blocks with a known grammar become views")
	block := doc.View(1)
	assert.Equal(t, "javascript", block.Language())
	assert.Equal(t, 1, block.Index())
	start, end := block.Range()
	assert.Equal(t, "let getName = 1;\n", src[start:end])

	inCode := strings.Index(src, "getName")
	assert.Same(t, block, doc.ViewAt(inCode))
	assert.Equal(t, core.ContextCode, doc.ContextAt(inCode))
	elem := doc.ElementAt(inCode, 7)
	assert.Equal(t, 1, elem.View)
	assert.Equal(t, "identifier", elem.Kind)
	assert.Equal(t, inCode, elem.Start)

	inProse := strings.Index(src, "getName in prose")
	assert.Same(t, doc.Root(), doc.ViewAt(inProse))
	assert.Equal(t, core.ContextPlainText, doc.ContextAt(inProse))

	assert.Nil(t, doc.View(5))
}

func TestCloseFallsBackToLines(t *testing.T) {
	src := "let a = 1;\nlet b = 2;"
	doc := parse(t, "a.js", src)
	doc.Close()
	doc.Close()

	elem := doc.ElementAt(strings.Index(src, "b"), 1)
	assert.Equal(t, syntax.LineKind, elem.Kind)
	assert.Equal(t, "let b = 2;", src[elem.Start:elem.End])
}
