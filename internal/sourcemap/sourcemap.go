// Package sourcemap generates version 3 source maps for transformed files.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"bennypowers.dev/templatetag/internal/position"
	"bennypowers.dev/templatetag/transform/types"
)

// Map is a version 3 source map
type Map struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// JSON encodes the map
func (m *Map) JSON() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode source map: %w", err)
	}
	return data, nil
}

// DataURL returns the map as a base64 data URL
func (m *Map) DataURL() (string, error) {
	data, err := m.JSON()
	if err != nil {
		return "", err
	}
	return "data:application/json;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// InlineComment returns a sourceMappingURL comment embedding the map
func (m *Map) InlineComment() (string, error) {
	url, err := m.DataURL()
	if err != nil {
		return "", err
	}
	return "//# sourceMappingURL=" + url, nil
}

// Mapping ties a generated position to an original one. Lines are 0-indexed
// and columns count UTF-16 code units.
type Mapping struct {
	GeneratedLine   int
	GeneratedColumn int
	OriginalLine    int
	OriginalColumn  int
}

// Generator accumulates mappings for one generated file with one source
type Generator struct {
	file     string
	source   string
	content  string
	mappings []Mapping
}

// NewGenerator creates a generator for file, generated from source whose
// text is content
func NewGenerator(file, source, content string) *Generator {
	return &Generator{file: file, source: source, content: content}
}

// Add records a mapping. Mappings must be added in generated order.
func (g *Generator) Add(m Mapping) {
	if n := len(g.mappings); n > 0 {
		last := g.mappings[n-1]
		if last.GeneratedLine == m.GeneratedLine && last.GeneratedColumn == m.GeneratedColumn {
			g.mappings[n-1] = m
			return
		}
	}
	g.mappings = append(g.mappings, m)
}

// Map encodes the recorded mappings
func (g *Generator) Map() *Map {
	var b strings.Builder
	line, prevGenCol, prevOrigLine, prevOrigCol := 0, 0, 0, 0
	first := true
	for _, m := range g.mappings {
		for line < m.GeneratedLine {
			b.WriteByte(';')
			line++
			prevGenCol = 0
			first = true
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		writeVLQ(&b, m.GeneratedColumn-prevGenCol)
		writeVLQ(&b, 0) // only source
		writeVLQ(&b, m.OriginalLine-prevOrigLine)
		writeVLQ(&b, m.OriginalColumn-prevOrigCol)
		prevGenCol, prevOrigLine, prevOrigCol = m.GeneratedColumn, m.OriginalLine, m.OriginalColumn
	}

	sm := &Map{
		Version:  3,
		File:     g.file,
		Sources:  []string{g.source},
		Names:    []string{},
		Mappings: b.String(),
	}
	if g.content != "" {
		sm.SourcesContent = []string{g.content}
	}
	return sm
}

// Chunk describes where a span of generated output came from
type Chunk struct {
	// Generated is the span's byte range in the output
	Generated types.Range
	// Original is the byte offset in the source the span starts at
	Original int
	// Verbatim spans are copied unchanged, so every position inside maps to
	// the same position relative to Original. Other spans map as a whole to
	// Original.
	Verbatim bool
	// Unmapped spans, like an inserted import, have no original position
	Unmapped bool
}

// FromChunks builds the map of output from the chunks that produced it.
// Verbatim chunks are mapped at every word start; generated chunks at the
// start of each of their lines.
func FromChunks(file, source, original, output string, chunks []Chunk) *Map {
	g := NewGenerator(file, source, original)
	orig := position.NewLineIndex(original)
	gen := position.NewLineIndex(output)

	add := func(genOffset, origOffset int) {
		genLine, genCol := gen.Position(genOffset)
		origLine, origCol := orig.Position(origOffset)
		g.Add(Mapping{GeneratedLine: genLine, GeneratedColumn: genCol, OriginalLine: origLine, OriginalColumn: origCol})
	}

	for _, c := range chunks {
		if c.Unmapped || c.Generated.Len() == 0 {
			continue
		}
		start, end := c.Generated.Start(), c.Generated.End()
		for i := start; i < end; i++ {
			lineStart := i == start || output[i-1] == '\n'
			wordStart := !isSpace(output[i]) && (i == start || isSpace(output[i-1]))
			switch {
			case output[i] == '\n':
			case c.Verbatim && (lineStart || wordStart):
				add(i, c.Original+(i-start))
			case !c.Verbatim && lineStart:
				add(i, c.Original)
			}
		}
	}
	return g.Map()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
