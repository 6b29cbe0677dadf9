// Package types holds the data shared between the template transform packages
// and their callers: match records, lint replacements, options value types and
// the error taxonomy.
package types

// MatchKind discriminates the two embedded template syntaxes
type MatchKind string

const (
	// TagMatch is a delimiter-based block, e.g. <template>...</template>
	TagMatch MatchKind = "template-tag"
	// LiteralMatch is a tagged template literal bound to a static import, e.g. hbs`...`
	LiteralMatch MatchKind = "template-literal"
)

// Range is a half-open [start, end) byte range into a source file
type Range [2]int

// Start returns the inclusive start offset
func (r Range) Start() int { return r[0] }

// End returns the exclusive end offset
func (r Range) End() int { return r[1] }

// Len returns the number of bytes covered by the range
func (r Range) Len() int { return r[1] - r[0] }

// Contains reports whether other lies entirely within r
func (r Range) Contains(other Range) bool {
	return r[0] <= other[0] && other[1] <= r[1]
}

// Overlaps reports whether r and other share at least one byte
func (r Range) Overlaps(other Range) bool {
	return r[0] < other[1] && other[0] < r[1]
}

// Shift moves both ends of the range by delta
func (r Range) Shift(delta int) Range {
	return Range{r[0] + delta, r[1] + delta}
}

// TemplateMatch is the canonical record for one embedded template region.
//
// ContentRange is enclosed by Range, StartRange ends at or before ContentRange
// begins, and EndRange begins at or after ContentRange ends.
type TemplateMatch struct {
	Kind         MatchKind `json:"type"`
	TagName      string    `json:"tagName"`
	Contents     string    `json:"contents"`
	ContentRange Range     `json:"contentRange"`
	Range        Range     `json:"range"`
	StartRange   Range     `json:"startRange"`
	EndRange     Range     `json:"endRange"`

	// ImportPath and ImportIdentifier are set for literal matches only
	ImportPath       string `json:"importPath,omitempty"`
	ImportIdentifier string `json:"importIdentifier,omitempty"`

	// Prefix is the source text preceding the template delimiter within the
	// match, i.e. the tag expression of a literal match
	Prefix string `json:"prefix,omitempty"`
}

// IsLiteral reports whether the match is a tagged template literal
func (m TemplateMatch) IsLiteral() bool {
	return m.Kind == LiteralMatch
}

// Location is a 0-indexed line and UTF-16 column, the coordinate system
// editors and JS tooling report positions in
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Replacement records one lint-mode splice. ReplacedRange is expressed in
// output coordinates and accounts for every other splice in the file.
type Replacement struct {
	OriginalRange        Range    `json:"originalRange"`
	OriginalContentRange Range    `json:"originalContentRange"`
	OriginalStart        Location `json:"originalStart"`
	ReplacedRange        Range    `json:"replacedRange"`
}

// StaticImportConfig names an importable identifier whose tagged template
// literals are treated as embedded templates
type StaticImportConfig struct {
	// ImportPath is the module specifier, e.g. "ember-cli-htmlbars"
	ImportPath string `json:"importPath" yaml:"importPath"`
	// ImportIdentifier is the exported name, or "default" for a default export
	ImportIdentifier string `json:"importIdentifier" yaml:"importIdentifier"`
}

// ResolveOptions tunes a LocalsResolver call
type ResolveOptions struct {
	// IncludeElementNames counts element tag names (e.g. <MyButton>) as references
	IncludeElementNames bool
}

// LocalsResolver returns the free identifier paths referenced by template
// content, in first-seen order without duplicates
type LocalsResolver func(content string, opts ResolveOptions) ([]string, error)

// Minifier collapses insignificant whitespace in template content
type Minifier func(content string) string

// SourceMapMode selects how full-mode transforms emit source maps
type SourceMapMode string

const (
	// SourceMapsNone emits no source map
	SourceMapsNone SourceMapMode = "none"
	// SourceMapsInline appends a data-URL sourceMappingURL comment to the output
	SourceMapsInline SourceMapMode = "inline"
	// SourceMapsBoth appends the comment and also returns the map
	SourceMapsBoth SourceMapMode = "both"
)

// Valid reports whether m is a known mode; the empty mode means none
func (m SourceMapMode) Valid() bool {
	switch m {
	case "", SourceMapsNone, SourceMapsInline, SourceMapsBoth:
		return true
	}
	return false
}
