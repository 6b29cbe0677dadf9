package js

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/templatetag/transform/types"
)

// DefaultTemplateTag is the element name recognized for block templates
const DefaultTemplateTag = "template"

// Context is the syntactic position a template occupies in the host program
type Context int

const (
	// ContextUnsupported is any position without a rewrite rule
	ContextUnsupported Context = iota
	// ContextExpression is an ordinary expression position
	ContextExpression
	// ContextClassBody is a direct member of a class body
	ContextClassBody
	// ContextProgram is a top-level statement of the program
	ContextProgram
)

func (c Context) String() string {
	switch c {
	case ContextExpression:
		return "expression"
	case ContextClassBody:
		return "class body"
	case ContextProgram:
		return "program"
	default:
		return "unsupported"
	}
}

// BindingKind separates imported bindings from everything else
type BindingKind int

const (
	// LocalBinding is a declaration, parameter, function or class name
	LocalBinding BindingKind = iota
	// ImportBinding is a name introduced by an import declaration
	ImportBinding
)

// Binding is one name declared in a lexical scope
type Binding struct {
	Name string
	Kind BindingKind
	// Source is the module specifier of an import binding
	Source string
	// Imported is the exported name an import binding refers to:
	// "default" for default imports and "*" for namespace imports
	Imported string
}

// Scope is a lexical scope in the host program. Lookups fall through to the
// parent scope; the zero parent is the program scope.
type Scope struct {
	parent   *Scope
	bindings map[string]Binding
}

// NewScope creates an empty scope nested in parent (which may be nil)
func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, bindings: map[string]Binding{}}
}

// Declare adds b to this scope, shadowing any outer binding of the same name
func (s *Scope) Declare(b Binding) {
	s.bindings[b.Name] = b
}

// Lookup finds the innermost binding for name
func (s *Scope) Lookup(name string) (Binding, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.bindings[name]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

// Has reports whether name is bound in this scope or any enclosing one
func (s *Scope) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// ImportOf reports the import a name is bound to, if it is an import binding
func (s *Scope) ImportOf(name string) (source, imported string, ok bool) {
	b, found := s.Lookup(name)
	if !found || b.Kind != ImportBinding {
		return "", "", false
	}
	return b.Source, b.Imported, true
}

// Names returns the names declared directly in this scope, sorted
func (s *Scope) Names() []string {
	names := make([]string, 0, len(s.bindings))
	for name := range s.bindings {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Parent returns the enclosing scope, or nil for the program scope
func (s *Scope) Parent() *Scope {
	return s.parent
}

// RawTemplateNode is a template region surfaced by the host parser, with its
// byte ranges, tag metadata and the syntactic and lexical context around it
type RawTemplateNode struct {
	Kind         types.MatchKind
	TagName      string
	Contents     string
	Range        types.Range
	ContentRange types.Range
	StartRange   types.Range
	EndRange     types.Range

	// Properties are the opening tag's attributes, e.g. <template trim minify>;
	// boolean attributes map to ""
	Properties map[string]string

	ImportPath       string
	ImportIdentifier string
	Prefix           string

	Context Context
	// ParentKind is the host grammar's name for the enclosing node
	ParentKind string
	// Scope is the innermost lexical scope visible at the template
	Scope *Scope
}

// HasProperty reports whether the opening tag carried the named attribute
func (n RawTemplateNode) HasProperty(name string) bool {
	_, ok := n.Properties[name]
	return ok
}

// Document is the host parse of one file: its detected template nodes in
// document order plus what the rewrite needs to know about the program
type Document struct {
	Source   string
	FilePath string
	Grammar  Grammar
	Nodes    []RawTemplateNode
	// Program is the top-level lexical scope
	Program *Scope
	// InsertionPoint is the byte offset where new top-of-body declarations
	// go: after any hashbang line and directive prologue
	InsertionPoint int
	Diagnostics    []*types.HostParseError
}

// Grammar selects the tree-sitter grammar used for the host language
type Grammar int

const (
	// JavaScript parses .js/.gjs sources (JSX included)
	JavaScript Grammar = iota
	// TypeScript parses .ts/.gts sources
	TypeScript
	// TSX parses .tsx sources
	TSX
)

func (g Grammar) String() string {
	switch g {
	case TypeScript:
		return "typescript"
	case TSX:
		return "tsx"
	default:
		return "javascript"
	}
}

// Config is the per-call parser configuration
type Config struct {
	FilePath      string
	TemplateTag   string
	StaticImports []types.StaticImportConfig
	Grammar       Grammar
}

// builtinPlugins are grammar extensions tree-sitter's grammars always have enabled
var builtinPlugins = []string{
	"jsx",
	"decorators",
	"decorators-legacy",
	"classProperties",
	"classPrivateProperties",
	"classPrivateMethods",
	"classStaticBlock",
}

// GrammarFor picks a grammar from the file extension, then applies any
// requested grammar plugins on top
func GrammarFor(path string, plugins []string) (Grammar, error) {
	g := JavaScript
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ts", ".gts", ".mts", ".cts":
		g = TypeScript
	case ".tsx":
		g = TSX
	}

	for _, plugin := range plugins {
		switch {
		case plugin == "typescript":
			if g != TSX {
				g = TypeScript
			}
		case plugin == "tsx":
			g = TSX
		case slices.Contains(builtinPlugins, plugin):
		default:
			return g, fmt.Errorf("%w: unknown grammar plugin %q", types.ErrInvalidOptions, plugin)
		}
	}
	return g, nil
}
