package js

import (
	"fmt"
	"slices"
	"sync"

	"bennypowers.dev/templatetag/internal/log"
	"bennypowers.dev/templatetag/internal/position"
	"bennypowers.dev/templatetag/transform/types"
	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// maxDiagnostics caps the recovered syntax errors reported per file
const maxDiagnostics = 50

// Parser locates embedded templates in JS/TS source with tree-sitter
type Parser struct {
	grammar      Grammar
	parser       *sitter.Parser
	literalQuery *sitter.Query
}

var languages = map[Grammar]*sitter.Language{
	JavaScript: sitter.NewLanguage(tree_sitter_javascript.Language()),
	TypeScript: sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
	TSX:        sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
}

// parserPools holds reusable parsers, one pool per grammar
var parserPools = map[Grammar]*sync.Pool{
	JavaScript: newParserPool(JavaScript),
	TypeScript: newParserPool(TypeScript),
	TSX:        newParserPool(TSX),
}

func newParserPool(g Grammar) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			lang := languages[g]
			parser := sitter.NewParser()
			if err := parser.SetLanguage(lang); err != nil {
				panic(fmt.Sprintf("failed to set %s language: %v", g, err))
			}

			literalQuery, qerr := sitter.NewQuery(lang, `
				(call_expression
					function: (identifier) @tag
					arguments: (template_string) @template) @call
			`)
			if qerr != nil {
				panic(fmt.Sprintf("failed to compile template literal query: %v", qerr))
			}

			return &Parser{
				grammar:      g,
				parser:       parser,
				literalQuery: literalQuery,
			}
		},
	}
}

// AcquireParser gets a parser for the grammar from the pool
func AcquireParser(g Grammar) *Parser {
	p := parserPools[g].Get().(*Parser)
	p.parser.Reset()
	return p
}

// ReleaseParser returns a parser to the pool
func ReleaseParser(p *Parser) {
	if p != nil {
		parserPools[p.grammar].Put(p)
	}
}

// Close closes the parser and releases its resources
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
	if p.literalQuery != nil {
		p.literalQuery.Close()
	}
}

// ClosePool closes all parsers in the pools
func ClosePool() {
	for _, pool := range parserPools {
		for range 100 {
			if p, ok := pool.Get().(*Parser); ok && p != nil {
				p.Close()
			}
		}
	}
}

// Parse parses source with a pooled parser for cfg.Grammar
func Parse(source string, cfg Config) (*Document, error) {
	p := AcquireParser(cfg.Grammar)
	defer ReleaseParser(p)
	return p.Parse(source, cfg)
}

// Parse finds every embedded template in source. Template tags are found
// lexically and masked with same-length placeholder identifiers before the
// host grammar runs, so every byte offset in the tree is also an offset into
// source. Syntax errors are recovered and reported as diagnostics.
func (p *Parser) Parse(source string, cfg Config) (*Document, error) {
	tag := cfg.TemplateTag
	if tag == "" {
		tag = DefaultTemplateTag
	}

	regions, issues := scan(source, tag)
	masked := mask(source, regions)

	tree := p.parser.Parse(masked, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s as %s", cfg.FilePath, p.grammar)
	}
	defer tree.Close()

	root := tree.RootNode()
	scopes := newScopeBuilder(masked)
	doc := &Document{
		Source:         source,
		FilePath:       cfg.FilePath,
		Grammar:        p.grammar,
		Program:        scopes.scopeOf(root),
		InsertionPoint: insertionPoint(root),
	}

	for _, region := range regions {
		doc.Nodes = append(doc.Nodes, classifyTag(root, source, tag, region, scopes))
	}
	doc.Nodes = append(doc.Nodes, p.findLiterals(root, masked, cfg, scopes)...)
	slices.SortFunc(doc.Nodes, func(a, b RawTemplateNode) int {
		return a.Range.Start() - b.Range.Start()
	})

	lines := position.NewLineIndex(source)
	for _, issue := range issues {
		doc.Diagnostics = append(doc.Diagnostics, diagnostic(cfg.FilePath, lines, types.Range{issue.Offset, issue.Offset}, issue.Message))
	}
	collectDiagnostics(root, cfg.FilePath, lines, &doc.Diagnostics)

	log.Debug("Parsed %s: %d templates, %d diagnostics", cfg.FilePath, len(doc.Nodes), len(doc.Diagnostics))
	return doc, nil
}

// placeholder is the span of the identifier a region is masked with:
// everything up to the region's first line break. When the region directly
// follows an identifier byte, as in return<template>, the first byte becomes
// a space so the placeholder cannot extend the keyword before it.
func placeholder(source string, r types.Range) (start, end int) {
	start, end = r.Start(), r.End()
	if start > 0 && isIdentByte(source[start-1]) {
		start++
	}
	for i := start; i < r.End(); i++ {
		if source[i] == '\n' || source[i] == '\r' {
			end = i
			break
		}
	}
	return start, end
}

// mask replaces each region with an identifier on its first line and spaces
// after that, keeping line breaks so rows and columns stay put
func mask(source string, regions []tagRegion) []byte {
	masked := []byte(source)
	for _, region := range regions {
		identStart, identEnd := placeholder(source, region.Range)
		for i := region.Range.Start(); i < region.Range.End(); i++ {
			switch {
			case i >= identStart && i < identEnd:
				masked[i] = '_'
			case masked[i] != '\n' && masked[i] != '\r':
				masked[i] = ' '
			}
		}
	}
	return masked
}

// bindingParents are node kinds in which a plain identifier child declares
// or labels a name rather than evaluating to a value
var bindingParents = map[string]bool{
	"formal_parameters":  true,
	"import_clause":      true,
	"namespace_import":   true,
	"import_specifier":   true,
	"export_specifier":   true,
	"labeled_statement":  true,
	"break_statement":    true,
	"continue_statement": true,
}

// bindingFields maps node kinds to the field that holds a declared name
var bindingFields = map[string]string{
	"variable_declarator":             "name",
	"function_declaration":            "name",
	"function_expression":             "name",
	"generator_function_declaration":  "name",
	"generator_function":              "name",
	"class_declaration":               "name",
	"class":                           "name",
	"arrow_function":                  "parameter",
	"assignment_expression":           "left",
	"augmented_assignment_expression": "left",
	"for_in_statement":                "left",
	"required_parameter":              "pattern",
	"optional_parameter":              "pattern",
}

func isField(parent *sitter.Node, field string, n *sitter.Node) bool {
	child := parent.ChildByFieldName(field)
	return child != nil && child.Id() == n.Id()
}

func isStatementOfProgram(n *sitter.Node) bool {
	p := n.Parent()
	return p != nil && p.Kind() == "expression_statement" &&
		p.Parent() != nil && p.Parent().Kind() == "program"
}

// classifyTag builds the raw node for a template tag region by looking at the
// placeholder identifier the region was masked with
func classifyTag(root *sitter.Node, source, tag string, region tagRegion, scopes *scopeBuilder) RawTemplateNode {
	node := RawTemplateNode{
		Kind:         types.TagMatch,
		TagName:      tag,
		Contents:     source[region.ContentRange.Start():region.ContentRange.End()],
		Range:        region.Range,
		ContentRange: region.ContentRange,
		StartRange:   region.StartRange,
		EndRange:     region.EndRange,
		Properties:   region.Properties,
		Context:      ContextUnsupported,
	}

	identStart, identEnd := placeholder(source, region.Range)
	start, end := uint(identStart), uint(identEnd)
	n := root.NamedDescendantForByteRange(start, end)
	if n == nil || n.StartByte() != start || n.EndByte() != end {
		node.ParentKind = "ERROR"
		if n != nil {
			node.ParentKind = n.Kind()
		}
		node.Scope = scopes.scopeOf(root)
		return node
	}

	parent := n.Parent()
	node.Scope = scopes.scopeFor(n)
	if parent == nil {
		node.ParentKind = n.Kind()
		return node
	}
	node.ParentKind = parent.Kind()

	switch n.Kind() {
	case "property_identifier":
		inField := parent.Kind() == "field_definition" || parent.Kind() == "public_field_definition"
		if inField && parent.StartByte() == start && parent.ChildByFieldName("value") == nil &&
			parent.Parent() != nil && parent.Parent().Kind() == "class_body" {
			node.Context = ContextClassBody
			node.ParentKind = "class_body"
		}
	case "identifier":
		switch {
		case isStatementOfProgram(n):
			node.Context = ContextProgram
			node.ParentKind = "program"
		case parent.Kind() == "ERROR" || bindingParents[parent.Kind()]:
		case bindingFields[parent.Kind()] != "" && isField(parent, bindingFields[parent.Kind()], n):
		default:
			node.Context = ContextExpression
		}
	}
	return node
}

// findLiterals finds tag`...` literals whose tag is imported from one of the
// configured modules. Literals with ${} substitutions are skipped: their
// content is not static template text.
func (p *Parser) findLiterals(root *sitter.Node, src []byte, cfg Config, scopes *scopeBuilder) []RawTemplateNode {
	if len(cfg.StaticImports) == 0 {
		return nil
	}

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	var nodes []RawTemplateNode
	matches := cursor.Matches(p.literalQuery, root, src)
	for match := matches.Next(); match != nil; match = matches.Next() {
		var tagNode, templateNode, callNode *sitter.Node
		for i := range match.Captures {
			capture := &match.Captures[i]
			switch p.literalQuery.CaptureNames()[capture.Index] {
			case "tag":
				tagNode = &capture.Node
			case "template":
				templateNode = &capture.Node
			case "call":
				callNode = &capture.Node
			}
		}
		if tagNode == nil || templateNode == nil || callNode == nil || hasSubstitution(templateNode) {
			continue
		}

		tagName := tagNode.Utf8Text(src)
		scope := scopes.scopeFor(callNode)
		source, imported, ok := scope.ImportOf(tagName)
		if !ok {
			continue
		}
		config, ok := matchingImport(cfg.StaticImports, source, imported)
		if !ok {
			continue
		}

		tplStart, tplEnd := int(templateNode.StartByte()), int(templateNode.EndByte())
		callStart, callEnd := int(callNode.StartByte()), int(callNode.EndByte())
		node := RawTemplateNode{
			Kind:             types.LiteralMatch,
			TagName:          tagName,
			Contents:         string(src[tplStart+1 : tplEnd-1]),
			Range:            types.Range{callStart, callEnd},
			ContentRange:     types.Range{tplStart + 1, tplEnd - 1},
			StartRange:       types.Range{callStart, tplStart + 1},
			EndRange:         types.Range{tplEnd - 1, tplEnd},
			ImportPath:       config.ImportPath,
			ImportIdentifier: config.ImportIdentifier,
			Prefix:           string(src[callStart:tplStart]),
			Context:          ContextExpression,
			Scope:            scope,
		}
		if parent := callNode.Parent(); parent != nil {
			node.ParentKind = parent.Kind()
		}
		if isStatementOfProgram(callNode) {
			node.Context = ContextProgram
			node.ParentKind = "program"
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func hasSubstitution(template *sitter.Node) bool {
	for i := uint(0); i < template.NamedChildCount(); i++ {
		if template.NamedChild(i).Kind() == "template_substitution" {
			return true
		}
	}
	return false
}

func matchingImport(configs []types.StaticImportConfig, source, imported string) (types.StaticImportConfig, bool) {
	for _, c := range configs {
		if c.ImportPath == source && c.ImportIdentifier == imported {
			return c, true
		}
	}
	return types.StaticImportConfig{}, false
}

// insertionPoint finds the top of the program body: past a hashbang line and
// any "use strict"-style directives
func insertionPoint(root *sitter.Node) int {
	point := 0
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		switch child.Kind() {
		case "hash_bang_line":
			point = int(child.EndByte())
		case "comment":
		case "expression_statement":
			expr := child.NamedChild(0)
			if expr == nil || expr.Kind() != "string" {
				return point
			}
			point = int(child.EndByte())
		default:
			return point
		}
	}
	return point
}

func diagnostic(filePath string, lines *position.LineIndex, r types.Range, message string) *types.HostParseError {
	line, col := lines.Position(r.Start())
	return &types.HostParseError{
		FilePath: filePath,
		Range:    r,
		Start:    types.Location{Line: line, Column: col},
		Message:  message,
	}
}

// collectDiagnostics reports ERROR and MISSING nodes without descending into them
func collectDiagnostics(n *sitter.Node, filePath string, lines *position.LineIndex, diags *[]*types.HostParseError) {
	if len(*diags) >= maxDiagnostics {
		return
	}
	r := types.Range{int(n.StartByte()), int(n.EndByte())}
	switch {
	case n.IsMissing():
		*diags = append(*diags, diagnostic(filePath, lines, r, "missing "+n.Kind()))
		return
	case n.IsError():
		*diags = append(*diags, diagnostic(filePath, lines, r, "unexpected syntax"))
		return
	case !n.HasError():
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		collectDiagnostics(n.Child(i), filePath, lines, diags)
	}
}
