package match_test

import (
	"testing"

	"bennypowers.dev/templatetag/internal/match"
	"bennypowers.dev/templatetag/internal/parser/js"
	"bennypowers.dev/templatetag/transform/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tagNode(start int, contents string) js.RawTemplateNode {
	open := start + len("<template>")
	end := open + len(contents)
	return js.RawTemplateNode{
		Kind:         types.TagMatch,
		TagName:      "template",
		Contents:     contents,
		Range:        types.Range{start, end + len("</template>")},
		StartRange:   types.Range{start, open},
		ContentRange: types.Range{open, end},
		EndRange:     types.Range{end, end + len("</template>")},
	}
}

func TestFromRaw(t *testing.T) {
	t.Run("tag", func(t *testing.T) {
		node := tagNode(4, "Hi")
		node.ImportPath = "ignored"
		m, ok := match.FromRaw(node)
		require.True(t, ok)
		assert.Equal(t, types.TagMatch, m.Kind)
		assert.Equal(t, "Hi", m.Contents)
		assert.Equal(t, node.Range, m.Range)
		assert.Equal(t, node.ContentRange, m.ContentRange)
		assert.Equal(t, node.StartRange, m.StartRange)
		assert.Equal(t, node.EndRange, m.EndRange)
		assert.Empty(t, m.ImportPath)
		assert.False(t, m.IsLiteral())
	})

	t.Run("literal", func(t *testing.T) {
		m, ok := match.FromRaw(js.RawTemplateNode{
			Kind:             types.LiteralMatch,
			TagName:          "hbs",
			Contents:         "x",
			Range:            types.Range{0, 6},
			StartRange:       types.Range{0, 4},
			ContentRange:     types.Range{4, 5},
			EndRange:         types.Range{5, 6},
			ImportPath:       "ember-cli-htmlbars",
			ImportIdentifier: "hbs",
			Prefix:           "hbs",
		})
		require.True(t, ok)
		assert.True(t, m.IsLiteral())
		assert.Equal(t, "ember-cli-htmlbars", m.ImportPath)
		assert.Equal(t, "hbs", m.ImportIdentifier)
		assert.Equal(t, "hbs", m.Prefix)
	})

	t.Run("dynamic literal", func(t *testing.T) {
		_, ok := match.FromRaw(js.RawTemplateNode{Kind: types.LiteralMatch, Contents: "a ${b}"})
		assert.False(t, ok)
	})
}

func TestAll(t *testing.T) {
	matches := match.All([]js.RawTemplateNode{tagNode(40, "b"), tagNode(0, "a")})
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Contents)
	assert.Equal(t, "b", matches[1].Contents)
	assert.NoError(t, match.Validate("a.gjs", matches))
}

func TestValidate(t *testing.T) {
	valid, _ := match.FromRaw(tagNode(0, "abc"))

	tests := []struct {
		name    string
		matches func() []types.TemplateMatch
		wantErr error
	}{
		{
			name:    "empty",
			matches: func() []types.TemplateMatch { return nil },
		},
		{
			name: "overlapping",
			matches: func() []types.TemplateMatch {
				other, _ := match.FromRaw(tagNode(10, "x"))
				return []types.TemplateMatch{valid, other}
			},
			wantErr: types.ErrOverlappingMatches,
		},
		{
			name: "adjacent is fine",
			matches: func() []types.TemplateMatch {
				other, _ := match.FromRaw(tagNode(valid.Range.End(), "x"))
				return []types.TemplateMatch{other, valid}
			},
		},
		{
			name: "content escapes range",
			matches: func() []types.TemplateMatch {
				m := valid
				m.ContentRange = types.Range{10, 100}
				return []types.TemplateMatch{m}
			},
			wantErr: types.ErrInvalidRange,
		},
		{
			name: "delimiter overlaps content",
			matches: func() []types.TemplateMatch {
				m := valid
				m.StartRange = types.Range{0, 12}
				return []types.TemplateMatch{m}
			},
			wantErr: types.ErrInvalidRange,
		},
		{
			name: "closing delimiter overlaps content",
			matches: func() []types.TemplateMatch {
				m := valid
				m.EndRange = types.Range{11, 24}
				return []types.TemplateMatch{m}
			},
			wantErr: types.ErrInvalidRange,
		},
		{
			name: "inverted",
			matches: func() []types.TemplateMatch {
				m := valid
				m.Range = types.Range{5, 2}
				return []types.TemplateMatch{m}
			},
			wantErr: types.ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := match.Validate("a.gjs", tt.matches())
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
