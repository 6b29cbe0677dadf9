package transform

import (
	"fmt"

	"bennypowers.dev/templatetag/internal/parser/js"
	"bennypowers.dev/templatetag/internal/sourcemap"
	"bennypowers.dev/templatetag/transform/types"
)

// Document is a host parse with its detected templates, as returned by Parse
// and accepted back through Options.PrecomputedAST
type Document = js.Document

// SourceMap is a version 3 source map
type SourceMap = sourcemap.Map

// Options configures a transform. Only Input is required.
type Options struct {
	// Input is the host source text
	Input string
	// RelativePath is the file's path; it becomes the moduleName of every
	// call and picks the host grammar by extension
	RelativePath string
	// TemplateTag is the element name of block templates, "template" by default
	TemplateTag string
	// StaticImportConfigs lists the imports whose tagged literals are templates
	StaticImportConfigs []types.StaticImportConfig
	// ExplicitMode captures template locals in a scope closure. It defaults
	// to true; false emits an eval method instead.
	ExplicitMode *bool
	// LinterMode patches templates in place rather than regenerating the file
	LinterMode bool
	// IncludeSourceMaps applies to full mode only
	IncludeSourceMaps types.SourceMapMode
	// LocalsResolver overrides the built-in template locals resolver
	LocalsResolver types.LocalsResolver
	// Minifier overrides the built-in whitespace minifier
	Minifier types.Minifier
	// ExtraGrammarPlugins enables host grammar extensions: "typescript",
	// "tsx", or any of the always-on syntax plugins like "jsx"
	ExtraGrammarPlugins []string
	// PrecomputedAST skips parsing; it must come from Parse on the same Input
	PrecomputedAST *Document
	// CompilerImportPath and CompilerImportName identify the template
	// compiler function; "@ember/template-compiler" and "template" by default
	CompilerImportPath string
	CompilerImportName string
}

// Explicit reports whether explicit scope capture is on
func (o Options) Explicit() bool {
	return o.ExplicitMode == nil || *o.ExplicitMode
}

func (o Options) templateTag() string {
	if o.TemplateTag == "" {
		return js.DefaultTemplateTag
	}
	return o.TemplateTag
}

func (o Options) validate() error {
	if !o.IncludeSourceMaps.Valid() {
		return fmt.Errorf("%w: unknown source map mode %q", types.ErrInvalidOptions, o.IncludeSourceMaps)
	}
	for _, c := range o.StaticImportConfigs {
		if c.ImportPath == "" || c.ImportIdentifier == "" {
			return fmt.Errorf("%w: static import needs both importPath and importIdentifier", types.ErrInvalidOptions)
		}
	}
	return nil
}

// Bool returns a pointer to b, for ExplicitMode
func Bool(b bool) *bool {
	return &b
}
