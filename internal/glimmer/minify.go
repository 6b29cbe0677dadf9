package glimmer

import (
	"errors"
	"regexp"
	"strings"

	"bennypowers.dev/templatetag/internal/log"
	"bennypowers.dev/templatetag/internal/parser/html"
	"bennypowers.dev/templatetag/transform/types"
)

var (
	spaceRuns  = regexp.MustCompile(` {2,}`)
	lineBreaks = regexp.MustCompile(`[\r\n\t\f\v]`)
)

// minifyText collapses runs of spaces, then strips line breaks and tabs
func minifyText(text string) string {
	return lineBreaks.ReplaceAllString(spaceRuns.ReplaceAllString(text, " "), "")
}

// Minify collapses whitespace in the text and attribute values of a
// template. Tag syntax, comments and mustache statements are left intact.
func Minify(content string) string {
	mustaches, err := mustacheRanges(content)
	if err != nil {
		// leave everything from the malformed mustache on untouched
		log.Debug("Minify stopped at malformed template: %v", err)
		var se *SyntaxError
		if errors.As(err, &se) {
			mustaches = append(mustaches, types.Range{se.Offset, len(content)})
		}
	}

	// hide mustaches from the HTML parser so a "<" inside one is not a tag
	masked := []byte(content)
	for _, m := range mustaches {
		for i := m.Start(); i < m.End(); i++ {
			if masked[i] != '\n' {
				masked[i] = ' '
			}
		}
	}

	p := html.AcquireParser()
	defer html.ReleaseParser(p)

	var b strings.Builder
	b.Grow(len(content))
	for _, region := range p.Regions(string(masked)) {
		if region.Type == html.TextRegion {
			writeMinified(&b, content, region.Range, mustaches)
			continue
		}
		// attribute values are text too
		pos := region.Range.Start()
		for _, v := range region.Values {
			b.WriteString(content[pos:v.Start()])
			writeMinified(&b, content, v, mustaches)
			pos = v.End()
		}
		b.WriteString(content[pos:region.Range.End()])
	}
	return b.String()
}

// writeMinified writes content[r] minified, keeping mustaches verbatim
func writeMinified(b *strings.Builder, content string, r types.Range, mustaches []types.Range) {
	pos, end := r.Start(), r.End()
	for _, m := range mustaches {
		if m.End() <= pos || m.Start() >= end {
			continue
		}
		start := max(m.Start(), pos)
		b.WriteString(minifyText(content[pos:start]))
		b.WriteString(content[start:min(m.End(), end)])
		pos = min(m.End(), end)
	}
	if pos < end {
		b.WriteString(minifyText(content[pos:end]))
	}
}

// Minifier is Minify as a types.Minifier
var Minifier types.Minifier = Minify
