// Package match normalizes template nodes from the host parser into
// TemplateMatch records and checks their ranges.
package match

import (
	"slices"
	"strings"

	"bennypowers.dev/templatetag/internal/parser/js"
	"bennypowers.dev/templatetag/transform/types"
)

// FromRaw converts one raw template node into a match, preserving its byte
// ranges. Literal nodes with ${} interpolation are not templates and yield
// false; the host parser normally drops them already.
func FromRaw(node js.RawTemplateNode) (types.TemplateMatch, bool) {
	if node.Kind == types.LiteralMatch && strings.Contains(node.Contents, "${") {
		return types.TemplateMatch{}, false
	}

	m := types.TemplateMatch{
		Kind:         node.Kind,
		TagName:      node.TagName,
		Contents:     node.Contents,
		ContentRange: node.ContentRange,
		Range:        node.Range,
		StartRange:   node.StartRange,
		EndRange:     node.EndRange,
		Prefix:       node.Prefix,
	}
	if node.Kind == types.LiteralMatch {
		m.ImportPath = node.ImportPath
		m.ImportIdentifier = node.ImportIdentifier
	}
	return m, true
}

// All converts every node, in document order
func All(nodes []js.RawTemplateNode) []types.TemplateMatch {
	matches := make([]types.TemplateMatch, 0, len(nodes))
	for _, node := range nodes {
		if m, ok := FromRaw(node); ok {
			matches = append(matches, m)
		}
	}
	slices.SortFunc(matches, func(a, b types.TemplateMatch) int {
		return a.Range.Start() - b.Range.Start()
	})
	return matches
}

// Validate checks that every match's sub-ranges nest properly and that no
// two matches share bytes
func Validate(filePath string, matches []types.TemplateMatch) error {
	for _, m := range matches {
		if err := validateRanges(filePath, m); err != nil {
			return err
		}
	}

	sorted := slices.Clone(matches)
	slices.SortFunc(sorted, func(a, b types.TemplateMatch) int {
		return a.Range.Start() - b.Range.Start()
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].Range.Overlaps(sorted[i].Range) {
			return types.NewOverlappingMatchError(filePath, sorted[i-1].Range, sorted[i].Range)
		}
	}
	return nil
}

func validateRanges(filePath string, m types.TemplateMatch) error {
	switch {
	case m.Range.Start() < 0 || m.Range.Len() < 0:
		return types.NewInvalidRangeError(filePath, m.Range, "range is negative or inverted")
	case m.ContentRange.Len() < 0:
		return types.NewInvalidRangeError(filePath, m.Range, "content range is inverted")
	case !m.Range.Contains(m.ContentRange):
		return types.NewInvalidRangeError(filePath, m.Range, "content range escapes the template range")
	case m.StartRange.End() > m.ContentRange.Start():
		return types.NewInvalidRangeError(filePath, m.Range, "opening delimiter overlaps the content")
	case m.ContentRange.End() > m.EndRange.Start():
		return types.NewInvalidRangeError(filePath, m.Range, "closing delimiter overlaps the content")
	case m.Range.Contains(m.ContentRange) && len(m.Contents) != m.ContentRange.Len():
		return types.NewInvalidRangeError(filePath, m.Range, "contents do not match the content range")
	}
	return nil
}
