// Package rewrite replaces embedded templates with calls to the template
// compiler function, either across a whole file or as localized patches.
package rewrite

import (
	"bennypowers.dev/templatetag/internal/glimmer"
	"bennypowers.dev/templatetag/internal/imports"
	"bennypowers.dev/templatetag/internal/jsgen"
	"bennypowers.dev/templatetag/internal/parser/js"
	"bennypowers.dev/templatetag/transform/types"
)

// Options configures a rewrite
type Options struct {
	// RelativePath becomes the moduleName of every emitted call
	RelativePath string
	// Explicit captures resolved locals in a scope closure; otherwise the
	// call gets an eval method
	Explicit bool
	Resolver types.LocalsResolver
	Minifier types.Minifier
	// CompilerImportPath and CompilerImportName identify the compiler function
	CompilerImportPath string
	CompilerImportName string
}

func (o Options) withDefaults() Options {
	if o.Resolver == nil {
		o.Resolver = glimmer.Resolver
	}
	if o.Minifier == nil {
		o.Minifier = glimmer.Minifier
	}
	return o
}

// Context is the mutable state of one file's rewrite. It is created when the
// rewrite enters the program and dropped when it is done; it is never
// shared between files.
type Context struct {
	Doc     *js.Document
	Options Options
	Lint    bool
	Imports *imports.Manager
	// Import is the declaration to insert, set by the import manager
	Import *jsgen.ImportDecl
	// Calls are the compiler call sites emitted so far
	Calls []*jsgen.Call
}

// NewContext enters the program of doc
func NewContext(doc *js.Document, opts Options, lint bool) *Context {
	ctx := &Context{
		Doc:     doc,
		Options: opts.withDefaults(),
		Lint:    lint,
	}
	ctx.Imports = imports.NewManager(imports.Config{
		ImportPath: opts.CompilerImportPath,
		ImportName: opts.CompilerImportName,
		Lint:       lint,
		OnInsert:   ctx.insertImport,
	})
	return ctx
}

func (ctx *Context) insertImport(b *imports.Binding) {
	ctx.Import = &jsgen.ImportDecl{
		Specifiers: []jsgen.ImportSpecifier{{
			Imported: ctx.Imports.ImportName(),
			Local:    jsgen.Ref{Target: b},
		}},
		Source: ctx.Imports.ImportPath(),
	}
}

// InsertionPoint is where the import declaration goes
func (ctx *Context) InsertionPoint() int {
	return ctx.Doc.InsertionPoint
}

// scopeAt returns the host scope visible at node, never nil
func (ctx *Context) scopeAt(node js.RawTemplateNode) *js.Scope {
	switch {
	case node.Scope != nil:
		return node.Scope
	case ctx.Doc.Program != nil:
		return ctx.Doc.Program
	}
	return js.NewScope(nil)
}

// SpecifierName returns the binding name chosen for the compiler function,
// or "" when no template was rewritten
func (ctx *Context) SpecifierName() string {
	if b := ctx.Imports.Binding(); b != nil {
		return b.Name()
	}
	return ""
}
