package rewrite

import (
	"slices"

	"bennypowers.dev/templatetag/internal/jsgen"
	"bennypowers.dev/templatetag/internal/position"
	"bennypowers.dev/templatetag/transform/types"
)

// LintResult is the original text with each template patched in place
type LintResult struct {
	Output string
	// Replacements are in document order
	Replacements []types.Replacement
}

// Lint patches each template with its compactly printed replacement and
// leaves every other byte where it was. No import is inserted; the calls
// reference the predicted binding name.
//
// Templates are spliced last to first so the original ranges of the ones
// not yet spliced stay valid. Each splice shifts the replaced ranges of the
// templates after it by the change in length.
func Lint(ctx *Context) (*LintResult, error) {
	items, err := buildAll(ctx)
	if err != nil {
		return nil, err
	}

	src := ctx.Doc.Source
	lines := position.NewLineIndex(src)
	output := src
	replacements := make([]types.Replacement, 0, len(items))

	for i := len(items) - 1; i >= 0; i-- {
		node := items[i].node
		code := jsgen.Print(items[i].code, jsgen.Options{Style: jsgen.Compact})
		start, end := node.Range.Start(), node.Range.End()
		sep := separator(src, start, code)
		output = output[:start] + sep + code + output[end:]

		delta := len(sep) + len(code) - node.Range.Len()
		for j := range replacements {
			replacements[j].ReplacedRange = replacements[j].ReplacedRange.Shift(delta)
		}

		line, col := lines.Position(start)
		replacements = append(replacements, types.Replacement{
			OriginalRange:        node.Range,
			OriginalContentRange: node.ContentRange,
			OriginalStart:        types.Location{Line: line, Column: col},
			ReplacedRange:        types.Range{start + len(sep), start + len(sep) + len(code)},
		})
	}

	slices.Reverse(replacements)
	return &LintResult{Output: output, Replacements: replacements}, nil
}
