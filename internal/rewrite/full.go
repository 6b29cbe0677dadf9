package rewrite

import (
	"strings"

	"bennypowers.dev/templatetag/internal/jsgen"
	"bennypowers.dev/templatetag/internal/log"
	"bennypowers.dev/templatetag/internal/match"
	"bennypowers.dev/templatetag/internal/parser/js"
	"bennypowers.dev/templatetag/internal/sourcemap"
	"bennypowers.dev/templatetag/transform/types"
)

// FullResult is a whole-file rewrite
type FullResult struct {
	Output string
	// Chunks say where each span of Output came from, for source maps
	Chunks []sourcemap.Chunk
}

// built pairs a template node with the code that replaces it
type built struct {
	node js.RawTemplateNode
	code jsgen.Node
}

// templateNodes returns the nodes of doc that are static templates
func templateNodes(doc *js.Document) []js.RawTemplateNode {
	var nodes []js.RawTemplateNode
	for _, node := range doc.Nodes {
		if _, ok := match.FromRaw(node); ok {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// buildAll builds every template of the document in document order. Nothing
// is printed yet, so a rename forced by a later template still reaches the
// earlier call sites and the import.
func buildAll(ctx *Context) ([]built, error) {
	nodes := templateNodes(ctx.Doc)
	items := make([]built, 0, len(nodes))
	for _, node := range nodes {
		code, err := Build(ctx, node)
		if err != nil {
			return nil, err
		}
		items = append(items, built{node: node, code: code})
	}
	return items, nil
}

// Full rewrites every template in the document and inserts the compiler
// import once. Text outside the templates is copied unchanged.
func Full(ctx *Context) (*FullResult, error) {
	items, err := buildAll(ctx)
	if err != nil {
		return nil, err
	}

	src := ctx.Doc.Source
	var b strings.Builder
	b.Grow(len(src) + 128*len(items))
	result := &FullResult{}

	pos := 0
	emit := func(text string, chunk sourcemap.Chunk) {
		if text == "" {
			return
		}
		start := b.Len()
		b.WriteString(text)
		chunk.Generated = types.Range{start, b.Len()}
		result.Chunks = append(result.Chunks, chunk)
	}
	copyTo := func(end int) {
		if end > pos {
			emit(src[pos:end], sourcemap.Chunk{Original: pos, Verbatim: true})
			pos = end
		}
	}

	if ctx.Import != nil {
		at := ctx.InsertionPoint()
		copyTo(at)
		decl := jsgen.Print(*ctx.Import, jsgen.Options{})
		if at == 0 {
			emit(decl+"\n", sourcemap.Chunk{Unmapped: true})
		} else {
			emit("\n"+decl, sourcemap.Chunk{Unmapped: true})
		}
	}

	for _, item := range items {
		copyTo(item.node.Range.Start())
		code := jsgen.Print(item.code, jsgen.Options{Indent: indentAt(src, item.node.Range.Start())})
		emit(separator(src, item.node.Range.Start(), code)+code, sourcemap.Chunk{Original: item.node.Range.Start()})
		pos = item.node.Range.End()
	}
	copyTo(len(src))

	result.Output = b.String()
	log.Debug("Rewrote %d templates in %s", len(items), ctx.Doc.FilePath)
	return result, nil
}

// separator returns the space needed between a keyword ending at offset and
// code starting with an identifier, as for return<template>
func separator(src string, offset int, code string) string {
	if offset > 0 && code != "" && isIdentByte(src[offset-1]) && isIdentByte(code[0]) {
		return " "
	}
	return ""
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// indentAt returns the leading whitespace of the line containing offset
func indentAt(src string, offset int) string {
	lineStart := strings.LastIndexByte(src[:offset], '\n') + 1
	end := lineStart
	for end < offset && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return src[lineStart:end]
}
