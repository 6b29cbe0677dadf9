package rewrite

import (
	"slices"
	"strings"

	"bennypowers.dev/templatetag/internal/collections"
	"bennypowers.dev/templatetag/internal/jsgen"
	"bennypowers.dev/templatetag/internal/match"
	"bennypowers.dev/templatetag/internal/parser/js"
	"bennypowers.dev/templatetag/transform/types"
)

// Build constructs the code that replaces one template node: a static block
// in a class body, a default export at the top level of the program outside
// lint mode, and the bare call anywhere else an expression may stand.
func Build(ctx *Context, node js.RawTemplateNode) (jsgen.Node, error) {
	m, ok := match.FromRaw(node)
	if !ok {
		return nil, types.NewInvalidRangeError(ctx.Doc.FilePath, node.Range, "template content is not static")
	}
	if node.Context == js.ContextUnsupported {
		return nil, types.NewUnsupportedPlacementError(ctx.Doc.FilePath, node.Range, node.ParentKind)
	}

	binding := ctx.Imports.EnsureBinding(ctx.scopeAt(node))
	call, err := buildCall(ctx, node, m, binding)
	if err != nil {
		return nil, err
	}
	ctx.Calls = append(ctx.Calls, call)

	switch {
	case node.Context == js.ContextClassBody:
		return jsgen.StaticBlock{Body: []jsgen.Node{jsgen.ExprStmt{Expr: *call}}}, nil
	case node.Context == js.ContextProgram && !ctx.Lint:
		return jsgen.ExportDefault{Value: *call, NoSemicolon: semicolonAfter(ctx.Doc.Source, node.Range.End())}, nil
	}
	return *call, nil
}

// semicolonAfter reports whether a semicolon follows offset on the same line
func semicolonAfter(src string, offset int) bool {
	for i := offset; i < len(src); i++ {
		switch src[i] {
		case ' ', '\t':
			continue
		case ';':
			return true
		}
		return false
	}
	return false
}

func buildCall(ctx *Context, node js.RawTemplateNode, m types.TemplateMatch, binding jsgen.Namer) (*jsgen.Call, error) {
	var content jsgen.Node = jsgen.StringLit(jsgen.CookTemplate(m.Contents))
	if !m.IsLiteral() {
		content = jsgen.TemplateLit(shape(ctx, node, m.Contents))
	}

	var scopeProperty jsgen.Node = evalMethod()
	if ctx.Options.Explicit {
		p, err := scopeClosure(ctx, node, m)
		if err != nil {
			return nil, err
		}
		scopeProperty = p
	}

	var members []jsgen.Node
	if node.Context == js.ContextClassBody {
		members = append(members, jsgen.Property{Key: "component", Value: jsgen.This{}})
	}
	members = append(members,
		jsgen.Property{Key: "moduleName", Value: jsgen.StringLit(ctx.Options.RelativePath)},
		scopeProperty,
	)

	return &jsgen.Call{
		Callee: jsgen.Ref{Target: binding},
		Args:   []jsgen.Node{content, jsgen.Object{Members: members}},
	}, nil
}

// shape applies the trim and minify tag properties, in that order
func shape(ctx *Context, node js.RawTemplateNode, content string) string {
	if node.HasProperty("trim") {
		content = strings.TrimSpace(content)
	}
	if node.HasProperty("minify") {
		content = ctx.Options.Minifier(content)
	}
	return content
}

// scopeClosure builds scope: instance => ({ a, b }) from the template's
// locals plus any element names that resolve to host bindings
func scopeClosure(ctx *Context, node js.RawTemplateNode, m types.TemplateMatch) (jsgen.Node, error) {
	locals, err := ctx.Options.Resolver(m.Contents, types.ResolveOptions{})
	if err != nil {
		return nil, types.NewScopeResolutionError(ctx.Doc.FilePath, node.Range, err)
	}
	withElements, err := ctx.Options.Resolver(m.Contents, types.ResolveOptions{IncludeElementNames: true})
	if err != nil {
		return nil, types.NewScopeResolutionError(ctx.Doc.FilePath, node.Range, err)
	}

	scope := ctx.scopeAt(node)
	names := collections.NewOrderedSet[string]()
	for _, local := range locals {
		names.Add(rootSegment(local))
	}
	for _, name := range withElements {
		if !slices.Contains(locals, name) && scope.Has(rootSegment(name)) {
			names.Add(rootSegment(name))
		}
	}

	var properties []jsgen.Node
	for _, name := range names.Members() {
		properties = append(properties, jsgen.Property{Key: name, Value: jsgen.Ident(name)})
	}
	return jsgen.Property{
		Key: "scope",
		Value: jsgen.Arrow{
			Params: []string{"instance"},
			Body:   jsgen.Object{Members: properties},
		},
	}, nil
}

func rootSegment(path string) string {
	root, _, _ := strings.Cut(path, ".")
	return root
}

// evalMethod builds eval() { return eval(arguments[0]); }
func evalMethod() jsgen.Node {
	return jsgen.Method{
		Name: "eval",
		Body: []jsgen.Node{jsgen.Return{Value: jsgen.Call{
			Callee: jsgen.Ident("eval"),
			Args: []jsgen.Node{jsgen.Index{
				Object: jsgen.Ident("arguments"),
				Index:  jsgen.NumberLit(0),
			}},
		}}},
	}
}
