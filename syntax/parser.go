// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package syntax

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/poiesic/refscan/core"
)

// Parser turns document contents into views using the grammars of a Registry.
// It is safe for concurrent use; each call creates its own tree-sitter parser.
type Parser struct {
	registry *Registry
}

// NewParser creates a parser backed by the given registry.
func NewParser(r *Registry) *Parser {
	return &Parser{registry: r}
}

// Registry returns the registry the parser resolves languages with.
func (p *Parser) Registry() *Registry {
	return p.registry
}

// Parse builds a Document for meta from src. Files without a registered
// grammar get a single plain text view.
func (p *Parser) Parse(ctx context.Context, meta *core.Document, src []byte) (*Document, error) {
	doc := &Document{
		meta: *meta,
		text: string(src),
	}

	spec, lang := p.registry.Lookup(meta.Path)
	if spec == nil {
		doc.views = []*View{{doc: doc, start: 0, end: len(doc.text), spec: plainSpec}}
		return doc, nil
	}
	doc.meta.Language = lang

	root, err := p.parseView(ctx, doc, spec, lang, 0, len(doc.text))
	if err != nil {
		return nil, err
	}
	doc.views = []*View{root}

	if spec.Fenced {
		for _, block := range fencedBlocks(doc.text) {
			blockSpec, blockLang := p.registry.LookupName(block.info)
			if blockSpec == nil || blockSpec.Language == nil || blockSpec.Fenced {
				continue
			}
			view, err := p.parseView(ctx, doc, blockSpec, blockLang, block.start, block.end)
			if err != nil {
				doc.Close()
				return nil, err
			}
			view.index = len(doc.views)
			doc.views = append(doc.views, view)
		}
	}
	return doc, nil
}

func (p *Parser) parseView(ctx context.Context, doc *Document, spec *LanguageSpec, lang string, start, end int) (*View, error) {
	view := &View{
		doc:      doc,
		language: lang,
		start:    start,
		end:      end,
		spec:     spec,
	}
	if spec.Language == nil {
		return view, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(spec.Language)
	tree, err := parser.ParseCtx(ctx, nil, []byte(doc.text[start:end]))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", doc.meta.Path, err)
	}
	view.tree = tree
	return view, nil
}

// plainSpec classifies nothing; plain views never consult it for node types.
var plainSpec = &LanguageSpec{}

type fencedBlock struct {
	info  string
	start int
	end   int
}

// fencedBlocks finds ``` and ~~~ fenced code blocks. The block range covers
// the code between the fence lines.
func fencedBlocks(text string) []fencedBlock {
	var blocks []fencedBlock
	var open *fencedBlock
	var fence string

	for pos := 0; pos < len(text); {
		lineEnd := strings.IndexByte(text[pos:], '\n')
		next := len(text)
		if lineEnd >= 0 {
			next = pos + lineEnd + 1
			lineEnd = pos + lineEnd
		} else {
			lineEnd = len(text)
		}
		line := strings.TrimLeft(text[pos:lineEnd], " ")
		indent := lineEnd - pos - len(line)

		if open == nil {
			if indent <= 3 && (strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~")) {
				marker := line[:3]
				n := len(line) - len(strings.TrimLeft(line, marker[:1]))
				fence = line[:n]
				info := strings.Fields(strings.TrimSpace(line[n:]))
				block := fencedBlock{start: next}
				if len(info) > 0 {
					block.info = info[0]
				}
				open = &block
			}
		} else if indent <= 3 && strings.HasPrefix(strings.TrimRight(line, " \r"), fence) &&
			strings.Trim(strings.TrimRight(line, " \r"), fence[:1]) == "" {
			open.end = pos
			if open.info != "" && open.end > open.start {
				blocks = append(blocks, *open)
			}
			open = nil
		}
		pos = next
	}
	return blocks
}
