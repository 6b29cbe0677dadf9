package html_test

import (
	"strings"
	"testing"

	"bennypowers.dev/templatetag/internal/parser/html"
	"bennypowers.dev/templatetag/transform/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegions(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		wantMarkup []string
		wantText   []string
	}{
		{
			name:       "element with text",
			source:     "<div class=\"a\">\n  Hello\n</div>",
			wantMarkup: []string{"<div class=\"a\">", "</div>"},
			wantText:   []string{"\n  Hello\n"},
		},
		{
			name:       "self closing and comment",
			source:     "a <br/> b <!-- c --> d",
			wantMarkup: []string{"<br/>", "<!-- c -->"},
			wantText:   []string{"a ", " b ", " d"},
		},
		{
			name:     "text only",
			source:   "just   text",
			wantText: []string{"just   text"},
		},
		{
			name:       "style raw text is text",
			source:     "<style>.a { color: red; }</style>",
			wantMarkup: []string{"<style>", "</style>"},
			wantText:   []string{".a { color: red; }"},
		},
		{
			name:   "empty",
			source: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := html.AcquireParser()
			defer html.ReleaseParser(parser)

			regions := parser.Regions(tt.source)

			var markup, text []string
			var rebuilt strings.Builder
			for _, r := range regions {
				rebuilt.WriteString(r.Content)
				switch r.Type {
				case html.MarkupRegion:
					markup = append(markup, r.Content)
				case html.TextRegion:
					text = append(text, r.Content)
				}
			}

			assert.Equal(t, tt.wantMarkup, markup, "markup regions")
			assert.Equal(t, tt.wantText, text, "text regions")
			assert.Equal(t, tt.source, rebuilt.String(), "regions reproduce the source")
		})
	}
}

func TestMarkupRanges(t *testing.T) {
	source := "<p>{{name}}</p>"

	parser := html.AcquireParser()
	defer html.ReleaseParser(parser)

	ranges := parser.MarkupRanges(source)
	require.Len(t, ranges, 2)
	assert.Equal(t, types.Range{0, 3}, ranges[0])
	assert.Equal(t, types.Range{11, 15}, ranges[1])
}

func TestRegionAttributeValues(t *testing.T) {
	source := `<div class="a  b" id=main hidden>x</div>`

	parser := html.AcquireParser()
	defer html.ReleaseParser(parser)

	regions := parser.Regions(source)
	require.NotEmpty(t, regions)
	require.Equal(t, html.MarkupRegion, regions[0].Type)

	var values []string
	for _, v := range regions[0].Values {
		values = append(values, source[v.Start():v.End()])
	}
	assert.Equal(t, []string{"a  b", "main"}, values)
}
