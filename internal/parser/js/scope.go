package js

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// functionKinds declare their parameters in their own scope
var functionKinds = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"generator_function_declaration": true,
	"generator_function":             true,
	"arrow_function":                 true,
	"method_definition":              true,
}

// blockKinds declare the statements they directly contain
var blockKinds = map[string]bool{
	"program":         true,
	"statement_block": true,
}

func createsScope(kind string) bool {
	switch kind {
	case "class", "class_static_block", "for_statement", "for_in_statement", "catch_clause", "switch_body":
		return true
	}
	return functionKinds[kind] || blockKinds[kind]
}

// scopeBuilder lazily materializes the lexical scopes of a tree-sitter tree.
// Scopes are plain Go values, so they outlive the tree they were read from.
type scopeBuilder struct {
	src   []byte
	cache map[uintptr]*Scope
}

func newScopeBuilder(src []byte) *scopeBuilder {
	return &scopeBuilder{src: src, cache: map[uintptr]*Scope{}}
}

func (b *scopeBuilder) text(n *sitter.Node) string {
	return n.Utf8Text(b.src)
}

// scopeFor returns the innermost scope enclosing n (n included)
func (b *scopeBuilder) scopeFor(n *sitter.Node) *Scope {
	for cur := n; cur != nil; cur = cur.Parent() {
		if createsScope(cur.Kind()) {
			return b.scopeOf(cur)
		}
	}
	return NewScope(nil)
}

func (b *scopeBuilder) scopeOf(n *sitter.Node) *Scope {
	if s, ok := b.cache[n.Id()]; ok {
		return s
	}
	var parent *Scope
	if p := n.Parent(); p != nil {
		parent = b.scopeFor(p)
	}
	s := NewScope(parent)
	b.cache[n.Id()] = s
	b.declareScope(n, s)
	return s
}

func (b *scopeBuilder) declareScope(n *sitter.Node, s *Scope) {
	kind := n.Kind()
	switch {
	case blockKinds[kind]:
		for i := uint(0); i < n.NamedChildCount(); i++ {
			b.declareStatement(n.NamedChild(i), s)
		}
		if kind == "program" {
			b.hoistVars(n, s)
		}
	case functionKinds[kind]:
		if kind == "function_expression" || kind == "function" || kind == "generator_function" {
			b.declareName(n.ChildByFieldName("name"), s)
		}
		b.declarePattern(n.ChildByFieldName("parameters"), s)
		b.declarePattern(n.ChildByFieldName("parameter"), s)
		b.hoistVars(n.ChildByFieldName("body"), s)
	case kind == "class_static_block":
		b.hoistVars(n.ChildByFieldName("body"), s)
	case kind == "class":
		b.declareName(n.ChildByFieldName("name"), s)
	case kind == "for_statement":
		b.declareStatement(n.ChildByFieldName("initializer"), s)
	case kind == "for_in_statement":
		if n.ChildByFieldName("kind") != nil {
			b.declarePattern(n.ChildByFieldName("left"), s)
		}
	case kind == "catch_clause":
		b.declarePattern(n.ChildByFieldName("parameter"), s)
	case kind == "switch_body":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			branch := n.NamedChild(i)
			for j := uint(0); j < branch.NamedChildCount(); j++ {
				b.declareStatement(branch.NamedChild(j), s)
			}
		}
	}
}

func (b *scopeBuilder) declareName(n *sitter.Node, s *Scope) {
	if n == nil {
		return
	}
	s.Declare(Binding{Name: b.text(n), Kind: LocalBinding})
}

func (b *scopeBuilder) declareStatement(n *sitter.Node, s *Scope) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "import_statement":
		b.declareImport(n, s)
	case "lexical_declaration":
		b.declareDeclarators(n, s)
	case "function_declaration", "generator_function_declaration", "class_declaration",
		"abstract_class_declaration", "enum_declaration":
		b.declareName(n.ChildByFieldName("name"), s)
	case "export_statement":
		b.declareStatement(n.ChildByFieldName("declaration"), s)
	}
}

func (b *scopeBuilder) declareDeclarators(n *sitter.Node, s *Scope) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		if d := n.NamedChild(i); d.Kind() == "variable_declarator" {
			b.declarePattern(d.ChildByFieldName("name"), s)
		}
	}
}

// hoistVars declares every var under n in s, the scope of the function,
// static block or program that owns n. The walk enters nested blocks and
// loops but stops at nested functions and static blocks.
func (b *scopeBuilder) hoistVars(n *sitter.Node, s *Scope) {
	if n == nil {
		return
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		child := n.NamedChild(i)
		kind := child.Kind()
		if functionKinds[kind] || kind == "class_static_block" {
			continue
		}
		switch kind {
		case "variable_declaration":
			b.declareDeclarators(child, s)
		case "for_in_statement":
			if k := child.ChildByFieldName("kind"); k != nil && b.text(k) == "var" {
				b.declarePattern(child.ChildByFieldName("left"), s)
			}
		}
		b.hoistVars(child, s)
	}
}

func (b *scopeBuilder) declareImport(n *sitter.Node, s *Scope) {
	source := ""
	if src := n.ChildByFieldName("source"); src != nil {
		source = unquote(b.text(src))
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		clause := n.NamedChild(i)
		if clause.Kind() != "import_clause" {
			continue
		}
		for j := uint(0); j < clause.NamedChildCount(); j++ {
			part := clause.NamedChild(j)
			switch part.Kind() {
			case "identifier":
				s.Declare(Binding{Name: b.text(part), Kind: ImportBinding, Source: source, Imported: "default"})
			case "namespace_import":
				for k := uint(0); k < part.NamedChildCount(); k++ {
					if id := part.NamedChild(k); id.Kind() == "identifier" {
						s.Declare(Binding{Name: b.text(id), Kind: ImportBinding, Source: source, Imported: "*"})
					}
				}
			case "named_imports":
				for k := uint(0); k < part.NamedChildCount(); k++ {
					spec := part.NamedChild(k)
					if spec.Kind() != "import_specifier" {
						continue
					}
					name := spec.ChildByFieldName("name")
					if name == nil {
						continue
					}
					local := name
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = alias
					}
					s.Declare(Binding{
						Name:     b.text(local),
						Kind:     ImportBinding,
						Source:   source,
						Imported: unquote(b.text(name)),
					})
				}
			}
		}
	}
}

// declarePattern declares every identifier bound by a destructuring pattern
// or parameter list
func (b *scopeBuilder) declarePattern(n *sitter.Node, s *Scope) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		b.declareName(n, s)
	case "formal_parameters", "object_pattern", "array_pattern", "rest_pattern":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			b.declarePattern(n.NamedChild(i), s)
		}
	case "pair_pattern":
		b.declarePattern(n.ChildByFieldName("value"), s)
	case "assignment_pattern", "object_assignment_pattern":
		b.declarePattern(n.ChildByFieldName("left"), s)
	case "required_parameter", "optional_parameter":
		b.declarePattern(n.ChildByFieldName("pattern"), s)
	case "lexical_declaration":
		b.declareStatement(n, s)
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
