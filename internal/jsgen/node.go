// Package jsgen builds and prints the small subset of JavaScript the
// template rewrite emits.
package jsgen

// Node is a printable JavaScript expression, statement or member
type Node interface {
	print(p *printer)
}

// Namer supplies a name that is only known for certain at print time
type Namer interface {
	Name() string
}

// Ident is an identifier
type Ident string

// Ref is an identifier whose name is read from Target when printed
type Ref struct {
	Target Namer
}

// This is the this keyword
type This struct{}

// StringLit is a double-quoted string literal holding Value
type StringLit string

// TemplateLit is a template literal without substitutions whose cooked value
// is Value
type TemplateLit string

// NumberLit is an integer literal
type NumberLit int

// Property is a key: value member of an object literal. A property whose
// value is the identifier named by its key prints in shorthand.
type Property struct {
	Key   string
	Value Node
}

// Method is a method member of an object literal
type Method struct {
	Name   string
	Params []string
	Body   []Node
}

// Object is an object literal of Property and Method members
type Object struct {
	Members []Node
}

// Arrow is an arrow function with an expression body
type Arrow struct {
	Params []string
	Body   Node
}

// Call is a call expression
type Call struct {
	Callee Node
	Args   []Node
}

// Index is a computed member access, object[index]
type Index struct {
	Object Node
	Index  Node
}

// Return is a return statement
type Return struct {
	Value Node
}

// ExprStmt is an expression statement
type ExprStmt struct {
	Expr Node
}

// StaticBlock is a class static initialization block
type StaticBlock struct {
	Body []Node
}

// ExportDefault is an export default declaration of an expression
type ExportDefault struct {
	Value Node
	// NoSemicolon leaves the terminator to source text that already has one
	NoSemicolon bool
}

// ImportSpecifier is one name in a named import
type ImportSpecifier struct {
	Imported string
	Local    Node
}

// ImportDecl is an import declaration with named specifiers
type ImportDecl struct {
	Specifiers []ImportSpecifier
	Source     string
}
