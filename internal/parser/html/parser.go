package html

import (
	"fmt"
	"slices"
	"sync"

	"bennypowers.dev/templatetag/transform/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
)

// Parser splits HTML into markup and text regions
type Parser struct {
	parser      *sitter.Parser
	markupQuery *sitter.Query
	valueQuery  *sitter.Query
}

var htmlLang = sitter.NewLanguage(tree_sitter_html.Language())

// parserPool is a pool of reusable HTML parsers
var parserPool = sync.Pool{
	New: func() any {
		parser := sitter.NewParser()
		if err := parser.SetLanguage(htmlLang); err != nil {
			panic(fmt.Sprintf("failed to set HTML language: %v", err))
		}

		markupQuery, qerr := sitter.NewQuery(htmlLang, `
			[
				(start_tag)
				(end_tag)
				(self_closing_tag)
				(erroneous_end_tag)
				(comment)
				(doctype)
			] @markup
		`)
		if qerr != nil {
			panic(fmt.Sprintf("failed to compile markup query: %v", qerr))
		}

		valueQuery, qerr := sitter.NewQuery(htmlLang, `(attribute_value) @value`)
		if qerr != nil {
			panic(fmt.Sprintf("failed to compile attribute value query: %v", qerr))
		}

		return &Parser{
			parser:      parser,
			markupQuery: markupQuery,
			valueQuery:  valueQuery,
		}
	},
}

// AcquireParser gets a parser from the pool
func AcquireParser() *Parser {
	p := parserPool.Get().(*Parser)
	p.parser.Reset()
	return p
}

// ReleaseParser returns a parser to the pool
func ReleaseParser(p *Parser) {
	if p != nil {
		parserPool.Put(p)
	}
}

// Close closes the parser and releases its resources
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
	if p.markupQuery != nil {
		p.markupQuery.Close()
	}
	if p.valueQuery != nil {
		p.valueQuery.Close()
	}
}

// ClosePool closes all parsers in the pool
func ClosePool() {
	for range 100 {
		if p, ok := parserPool.Get().(*Parser); ok && p != nil {
			p.Close()
		}
	}
}

// MarkupRanges returns the byte ranges of tags, comments and doctypes in
// source, in document order and non-overlapping
func (p *Parser) MarkupRanges(source string) []types.Range {
	markup, _ := p.parse(source)
	return markup
}

// parse returns the markup ranges and the attribute value ranges of source
func (p *Parser) parse(source string) (markup, values []types.Range) {
	sourceBytes := []byte(source)
	tree := p.parser.Parse(sourceBytes, nil)
	if tree == nil {
		return nil, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	markup = p.capture(p.markupQuery, root, sourceBytes)
	values = p.capture(p.valueQuery, root, sourceBytes)
	return markup, values
}

func (p *Parser) capture(query *sitter.Query, root *sitter.Node, sourceBytes []byte) []types.Range {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	var ranges []types.Range
	matches := cursor.Matches(query, root, sourceBytes)
	for match := matches.Next(); match != nil; match = matches.Next() {
		for _, capture := range match.Captures {
			node := capture.Node
			if node.StartByte() == node.EndByte() {
				continue
			}
			ranges = append(ranges, types.Range{int(node.StartByte()), int(node.EndByte())})
		}
	}

	slices.SortFunc(ranges, func(a, b types.Range) int {
		return a.Start() - b.Start()
	})
	return slices.Compact(ranges)
}

// Regions partitions source into alternating markup and text regions which,
// concatenated, reproduce source exactly. Markup regions list the attribute
// values they contain.
func (p *Parser) Regions(source string) []Region {
	markup, values := p.parse(source)

	var regions []Region
	pos := 0
	addText := func(end int) {
		if end > pos {
			regions = append(regions, Region{
				Range:   types.Range{pos, end},
				Content: source[pos:end],
				Type:    TextRegion,
			})
		}
	}

	for _, r := range markup {
		if r.Start() < pos {
			// nested inside an already emitted region
			continue
		}
		addText(r.Start())
		region := Region{
			Range:   r,
			Content: source[r.Start():r.End()],
			Type:    MarkupRegion,
		}
		for _, v := range values {
			if r.Contains(v) {
				region.Values = append(region.Values, v)
			}
		}
		regions = append(regions, region)
		pos = r.End()
	}
	addText(len(source))
	return regions
}
