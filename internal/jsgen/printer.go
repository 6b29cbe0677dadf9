package jsgen

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Style selects the printed layout
type Style int

const (
	// Pretty breaks object literals and blocks over indented lines
	Pretty Style = iota
	// Compact prints everything on as few bytes as possible
	Compact
)

// Options configures Print
type Options struct {
	Style Style
	// Indent is prefixed to every line after the first, so printed code lines
	// up with the source line it is spliced into
	Indent string
	// IndentUnit is one nesting level; two spaces when empty
	IndentUnit string
}

type printer struct {
	b     strings.Builder
	opts  Options
	depth int
}

// Print renders n as JavaScript source
func Print(n Node, opts Options) string {
	if opts.IndentUnit == "" {
		opts.IndentUnit = "  "
	}
	p := &printer{opts: opts}
	n.print(p)
	return p.b.String()
}

func (p *printer) compact() bool {
	return p.opts.Style == Compact
}

func (p *printer) word(s string) {
	p.b.WriteString(s)
}

// space writes a space outside compact style
func (p *printer) space() {
	if !p.compact() {
		p.b.WriteByte(' ')
	}
}

// newline starts a new line at the current depth, or does nothing in
// compact style
func (p *printer) newline() {
	if p.compact() {
		return
	}
	p.b.WriteByte('\n')
	p.b.WriteString(p.opts.Indent)
	for range p.depth {
		p.b.WriteString(p.opts.IndentUnit)
	}
}

// block prints members between braces, one per line
func (p *printer) block(members []Node, sep string) {
	p.word("{")
	if len(members) == 0 {
		p.word("}")
		return
	}
	p.depth++
	for i, m := range members {
		if i > 0 {
			p.word(sep)
		}
		p.newline()
		m.print(p)
	}
	p.depth--
	p.newline()
	p.word("}")
}

func (p *printer) params(params []string) {
	p.word("(")
	for i, param := range params {
		if i > 0 {
			p.word(",")
			p.space()
		}
		p.word(param)
	}
	p.word(")")
}

func (n Ident) print(p *printer) { p.word(string(n)) }

func (n Ref) print(p *printer) { p.word(n.Target.Name()) }

func (This) print(p *printer) { p.word("this") }

func (n NumberLit) print(p *printer) { p.word(strconv.Itoa(int(n))) }

func (n StringLit) print(p *printer) {
	p.word(QuoteString(string(n)))
}

// QuoteString returns s as a double-quoted JavaScript string literal
func QuoteString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// strings always encode
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

func (n TemplateLit) print(p *printer) {
	p.word("`")
	p.word(EscapeTemplate(string(n)))
	p.word("`")
}

// EscapeTemplate escapes s for use as the raw text of a template literal
// whose cooked value is s
func EscapeTemplate(s string) string {
	if !strings.ContainsAny(s, "`\\$") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '`' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '$' && i+1 < len(s) && s[i+1] == '{':
			b.WriteString("\\$")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (n Property) print(p *printer) {
	if id, ok := n.Value.(Ident); ok && string(id) == n.Key {
		p.word(n.Key)
		return
	}
	p.word(n.Key)
	p.word(":")
	p.space()
	n.Value.print(p)
}

func (n Method) print(p *printer) {
	p.word(n.Name)
	p.params(n.Params)
	p.space()
	p.block(n.Body, "")
}

func (n Object) print(p *printer) {
	p.block(n.Members, ",")
}

func (n Arrow) print(p *printer) {
	if len(n.Params) == 1 {
		p.word(n.Params[0])
	} else {
		p.params(n.Params)
	}
	p.space()
	p.word("=>")
	p.space()
	if _, ok := n.Body.(Object); ok {
		p.word("(")
		n.Body.print(p)
		p.word(")")
		return
	}
	n.Body.print(p)
}

func (n Call) print(p *printer) {
	n.Callee.print(p)
	p.word("(")
	for i, arg := range n.Args {
		if i > 0 {
			p.word(",")
			p.space()
		}
		arg.print(p)
	}
	p.word(")")
}

func (n Index) print(p *printer) {
	n.Object.print(p)
	p.word("[")
	n.Index.print(p)
	p.word("]")
}

func (n Return) print(p *printer) {
	p.word("return")
	if n.Value != nil {
		p.word(" ")
		n.Value.print(p)
	}
	p.word(";")
}

func (n ExprStmt) print(p *printer) {
	n.Expr.print(p)
	p.word(";")
}

func (n StaticBlock) print(p *printer) {
	p.word("static")
	p.space()
	p.block(n.Body, "")
}

func (n ExportDefault) print(p *printer) {
	p.word("export default ")
	n.Value.print(p)
	if !n.NoSemicolon {
		p.word(";")
	}
}

func (n ImportDecl) print(p *printer) {
	p.word("import")
	p.space()
	p.word("{")
	p.space()
	for i, s := range n.Specifiers {
		if i > 0 {
			p.word(",")
			p.space()
		}
		p.word(s.Imported)
		local := s.Imported
		if s.Local != nil {
			local = Print(s.Local, Options{Style: Compact})
		}
		if local != s.Imported {
			p.word(" as ")
			p.word(local)
		}
	}
	p.space()
	p.word("}")
	p.space()
	p.word("from")
	p.space()
	p.word(QuoteString(n.Source))
	p.word(";")
}
