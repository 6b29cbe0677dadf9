// Package transform rewrites embedded templates in JavaScript and TypeScript
// sources into calls to the template compiler function.
//
// Transform produces a complete output file, optionally with a source map.
// TransformForLint patches each template in place and reports where every
// patch landed, so tools can map positions in the output back to the input.
package transform

import (
	"fmt"

	"bennypowers.dev/templatetag/internal/log"
	"bennypowers.dev/templatetag/internal/match"
	"bennypowers.dev/templatetag/internal/parser/js"
	"bennypowers.dev/templatetag/internal/rewrite"
	"bennypowers.dev/templatetag/internal/sourcemap"
	"bennypowers.dev/templatetag/transform/types"
)

// Result is the output of a full transform
type Result struct {
	Output string
	// Map is set when IncludeSourceMaps is "both"
	Map *SourceMap
	// Diagnostics are the syntax errors the host parser recovered from
	Diagnostics []*types.HostParseError
}

// LintResult is the output of a lint-mode transform
type LintResult struct {
	Output       string
	Replacements []types.Replacement
	// TemplateCallSpecifier is the name the patched calls use for the
	// compiler function, or the template tag when nothing was patched
	TemplateCallSpecifier string
	Diagnostics           []*types.HostParseError
}

// Parse runs the host parser over opts.Input
func Parse(opts Options) (*Document, error) {
	grammar, err := js.GrammarFor(opts.RelativePath, opts.ExtraGrammarPlugins)
	if err != nil {
		return nil, err
	}
	doc, err := js.Parse(opts.Input, js.Config{
		FilePath:      opts.RelativePath,
		TemplateTag:   opts.templateTag(),
		StaticImports: opts.StaticImportConfigs,
		Grammar:       grammar,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", opts.RelativePath, err)
	}
	return doc, nil
}

// ParseTemplates lists the templates in source without rewriting anything
func ParseTemplates(source, relativePath string, opts Options) ([]types.TemplateMatch, error) {
	opts.Input = source
	opts.RelativePath = relativePath
	doc, err := Parse(opts)
	if err != nil {
		return nil, err
	}
	matches := match.All(doc.Nodes)
	if err := match.Validate(relativePath, matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// prepare parses (unless a document was supplied) and validates the matches.
// A nil context means the file has no templates.
func prepare(opts Options, lint bool) (*rewrite.Context, *Document, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}

	doc := opts.PrecomputedAST
	if doc == nil {
		var err error
		if doc, err = Parse(opts); err != nil {
			return nil, nil, err
		}
	}

	matches := match.All(doc.Nodes)
	if len(matches) == 0 {
		log.Debug("No templates in %s", opts.RelativePath)
		return nil, doc, nil
	}
	if err := match.Validate(opts.RelativePath, matches); err != nil {
		return nil, nil, err
	}

	ctx := rewrite.NewContext(doc, rewrite.Options{
		RelativePath:       opts.RelativePath,
		Explicit:           opts.Explicit(),
		Resolver:           opts.LocalsResolver,
		Minifier:           opts.Minifier,
		CompilerImportPath: opts.CompilerImportPath,
		CompilerImportName: opts.CompilerImportName,
	}, lint)
	return ctx, doc, nil
}

// Transform rewrites every template in opts.Input. With LinterMode set it
// returns the lint-mode output instead; use TransformForLint for the patch
// records. A file without templates comes back unchanged.
func Transform(opts Options) (*Result, error) {
	if opts.LinterMode {
		lint, err := TransformForLint(opts)
		if err != nil {
			return nil, err
		}
		return &Result{Output: lint.Output, Diagnostics: lint.Diagnostics}, nil
	}

	ctx, doc, err := prepare(opts, false)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		return &Result{Output: opts.Input, Diagnostics: doc.Diagnostics}, nil
	}

	full, err := rewrite.Full(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Output: full.Output, Diagnostics: doc.Diagnostics}
	switch opts.IncludeSourceMaps {
	case types.SourceMapsInline, types.SourceMapsBoth:
		sm := sourcemap.FromChunks(opts.RelativePath, opts.RelativePath, opts.Input, full.Output, full.Chunks)
		comment, err := sm.InlineComment()
		if err != nil {
			return nil, err
		}
		result.Output += "\n" + comment
		if opts.IncludeSourceMaps == types.SourceMapsBoth {
			result.Map = sm
		}
	}
	return result, nil
}

// TransformForLint patches every template in opts.Input in place, leaving
// all other bytes where they were.
//
// No import is added. Each patch calls the compiler function by the name a
// full transform would pick, or by the name of an existing import of it, so
// callers must treat that binding as present in the file.
func TransformForLint(opts Options) (*LintResult, error) {
	opts.LinterMode = true
	ctx, doc, err := prepare(opts, true)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		return &LintResult{
			Output:                opts.Input,
			Replacements:          []types.Replacement{},
			TemplateCallSpecifier: opts.templateTag(),
			Diagnostics:           doc.Diagnostics,
		}, nil
	}

	lint, err := rewrite.Lint(ctx)
	if err != nil {
		return nil, err
	}

	specifier := ctx.SpecifierName()
	if specifier == "" {
		specifier = opts.templateTag()
	}
	return &LintResult{
		Output:                lint.Output,
		Replacements:          lint.Replacements,
		TemplateCallSpecifier: specifier,
		Diagnostics:           doc.Diagnostics,
	}, nil
}
