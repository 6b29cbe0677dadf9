package html

import "bennypowers.dev/templatetag/transform/types"

// RegionType identifies the kind of region found in template markup
type RegionType int

const (
	// UnknownRegion is the zero value, indicating an uninitialized region type
	UnknownRegion RegionType = iota
	// MarkupRegion is a tag, comment or doctype
	MarkupRegion
	// TextRegion is character data between markup, including raw text of
	// <script> and <style> elements
	TextRegion
)

// Region is a contiguous byte range of an HTML document
type Region struct {
	Range   types.Range
	Content string
	Type    RegionType
	// Values are the attribute value ranges inside a markup region
	Values []types.Range
}
