package glimmer

import (
	"slices"
	"strings"

	"bennypowers.dev/templatetag/internal/collections"
	"bennypowers.dev/templatetag/transform/types"
)

// keywords are built into the template language and never resolve to a
// host binding
var keywords = collections.NewSet(
	"action",
	"component",
	"debugger",
	"each",
	"each-in",
	"has-block",
	"has-block-params",
	"helper",
	"if",
	"in-element",
	"-in-element",
	"let",
	"log",
	"modifier",
	"mount",
	"mut",
	"outlet",
	"query-params",
	"readonly",
	"unbound",
	"unless",
	"with",
	"yield",
)

// literals are path-shaped tokens that are values, not references
var literals = collections.NewSet("true", "false", "null", "undefined")

// voidElements never have a closing tag
var voidElements = collections.NewSet(
	"area", "base", "br", "col", "command", "embed", "hr", "img", "input",
	"keygen", "link", "meta", "param", "source", "track", "wbr",
)

// IsKeyword reports whether name is a template-language keyword
func IsKeyword(name string) bool {
	return keywords.Has(name)
}

// frame is one open block or element and the block params it introduces
type frame struct {
	name   string
	block  bool
	params []string
	offset int
}

// resolver walks template content collecting free references
type resolver struct {
	src    string
	opts   types.ResolveOptions
	frames []frame
	tokens *collections.OrderedSet[string]
}

// Locals returns the free identifier paths referenced by content, in
// first-seen order without duplicates. this-paths, @arguments, block params
// in scope and keywords are excluded. With IncludeElementNames every element
// tag name counts as a reference; without it only component-like tags
// (capitalized or dotted) do.
func Locals(content string, opts types.ResolveOptions) ([]string, error) {
	r := &resolver{
		src:    content,
		opts:   opts,
		tokens: collections.NewOrderedSet[string](),
	}
	if err := r.walk(); err != nil {
		return nil, err
	}

	var locals []string
	for _, token := range r.tokens.Members() {
		if !IsKeyword(token) {
			locals = append(locals, token)
		}
	}
	return locals, nil
}

// Resolver is Locals as a types.LocalsResolver
var Resolver types.LocalsResolver = Locals

func (r *resolver) inScope(name string) bool {
	for _, f := range r.frames {
		if slices.Contains(f.params, name) {
			return true
		}
	}
	return false
}

func (r *resolver) add(name string) {
	if name == "" {
		return
	}
	root, _, _ := strings.Cut(name, ".")
	if r.inScope(root) {
		return
	}
	r.tokens.Add(name)
}

func (r *resolver) walk() error {
	src := r.src
	for i := 0; i < len(src); {
		switch {
		case strings.HasPrefix(src[i:], "{{") && (i == 0 || src[i-1] != '\\'):
			m, err := readMustache(src, i)
			if err != nil {
				return err
			}
			if err := r.statement(m); err != nil {
				return err
			}
			i = m.Range.End()
		case strings.HasPrefix(src[i:], "<!--"):
			end := strings.Index(src[i+4:], "-->")
			if end < 0 {
				return syntaxError(i, "unclosed comment")
			}
			i += 4 + end + 3
		case strings.HasPrefix(src[i:], "</"):
			end, err := r.closeElement(i)
			if err != nil {
				return err
			}
			i = end
		case src[i] == '<' && i+1 < len(src) && isTagStart(src[i+1]):
			end, err := r.openElement(i)
			if err != nil {
				return err
			}
			i = end
		default:
			i++
		}
	}

	for j := len(r.frames) - 1; j >= 0; j-- {
		if f := r.frames[j]; f.block {
			return syntaxError(f.offset, "unclosed block {{#%s}}", f.name)
		}
	}
	return nil
}

func isTagStart(c byte) bool {
	return c == ':' || c == '@' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// statement handles one mustache statement
func (r *resolver) statement(m mustache) error {
	switch m.Kind {
	case mustacheComment:
		return nil
	case mustacheBlockClose:
		name := strings.TrimSpace(m.Body)
		for j := len(r.frames) - 1; j >= 0; j-- {
			if r.frames[j].block {
				if r.frames[j].name != name {
					return syntaxError(m.Range.Start(), "{{/%s}} does not match {{#%s}}", name, r.frames[j].name)
				}
				r.frames = r.frames[:j]
				return nil
			}
		}
		return syntaxError(m.Range.Start(), "{{/%s}} closes no open block", name)
	}

	tokens, err := tokenize(m.Body, m.BodyStart)
	if err != nil {
		return err
	}
	params := r.expression(tokens)

	switch m.Kind {
	case mustacheBlockOpen:
		name := ""
		if len(tokens) > 0 && tokens[0].Kind == tokenPath {
			name = tokens[0].Text
		}
		r.frames = append(r.frames, frame{name: name, block: true, params: params, offset: m.Range.Start()})
	case mustacheElse:
		for j := len(r.frames) - 1; j >= 0; j-- {
			if r.frames[j].block {
				r.frames[j].params = params
				break
			}
		}
	}
	return nil
}

// expression records the references in tokens and returns any block params
func (r *resolver) expression(tokens []token) []string {
	var params []string
	for i, t := range tokens {
		switch t.Kind {
		case tokenBlockParams:
			params = append(params, t.Params...)
		case tokenPath:
			if t.Text == "as" && i+1 < len(tokens) && tokens[i+1].Kind == tokenBlockParams {
				continue
			}
			if i+1 < len(tokens) && tokens[i+1].Kind == tokenPunct && tokens[i+1].Text == "=" {
				continue
			}
			if isReference(t.Text) {
				r.add(t.Text)
			}
		}
	}
	return params
}

// isReference reports whether a path token refers to a host binding
func isReference(path string) bool {
	switch {
	case literals.Has(path):
		return false
	case path == "this", strings.HasPrefix(path, "this."), strings.HasPrefix(path, "."):
		return false
	}
	return true
}

// openElement reads a start tag at src[i:] and returns the offset past it
func (r *resolver) openElement(i int) (int, error) {
	src := r.src
	j := i + 1
	for j < len(src) && !isSpace(src[j]) && src[j] != '>' && src[j] != '/' {
		if strings.HasPrefix(src[j:], "{{") {
			break
		}
		j++
	}
	tag := src[i+1 : j]

	var mustaches []mustache
	var params []string
	selfClosing := false
	end := -1
	for end < 0 && j < len(src) {
		switch c := src[j]; {
		case strings.HasPrefix(src[j:], "{{"):
			m, err := readMustache(src, j)
			if err != nil {
				return 0, err
			}
			mustaches = append(mustaches, m)
			j = m.Range.End()
		case c == '"' || c == '\'':
			k := j + 1
			for k < len(src) && src[k] != c {
				if strings.HasPrefix(src[k:], "{{") {
					m, err := readMustache(src, k)
					if err != nil {
						return 0, err
					}
					mustaches = append(mustaches, m)
					k = m.Range.End()
					continue
				}
				k++
			}
			if k >= len(src) {
				return 0, syntaxError(j, "unterminated attribute value in <%s>", tag)
			}
			j = k + 1
		case c == '|':
			k := strings.IndexByte(src[j+1:], '|')
			if k < 0 {
				return 0, syntaxError(j, "unterminated block params in <%s>", tag)
			}
			params = append(params, strings.Fields(src[j+1:j+1+k])...)
			j += k + 2
		case c == '/' && strings.HasPrefix(src[j:], "/>"):
			selfClosing = true
			end = j + 2
		case c == '>':
			end = j + 1
		default:
			j++
		}
	}
	if end < 0 {
		return 0, syntaxError(i, "unclosed start tag <%s>", tag)
	}

	// block params are visible to the element's own tag and attributes
	r.frames = append(r.frames, frame{name: tag, params: params, offset: i})
	if name, ok := r.elementReference(tag); ok {
		r.add(name)
	}
	for _, m := range mustaches {
		if err := r.statement(m); err != nil {
			return 0, err
		}
	}
	if selfClosing || voidElements.Has(strings.ToLower(tag)) {
		r.frames = r.frames[:len(r.frames)-1]
	}
	return end, nil
}

// elementReference reports the reference an element's tag name makes, if any
func (r *resolver) elementReference(tag string) (string, bool) {
	if tag == "" || tag[0] == ':' || tag[0] == '@' || strings.HasPrefix(tag, "this.") {
		return "", false
	}
	if !r.opts.IncludeElementNames && !strings.Contains(tag, ".") && strings.ToLower(tag) == tag {
		return "", false
	}
	return tag, true
}

// closeElement reads an end tag at src[i:] and pops its element frame
func (r *resolver) closeElement(i int) (int, error) {
	end := strings.IndexByte(r.src[i:], '>')
	if end < 0 {
		return 0, syntaxError(i, "unclosed end tag")
	}
	tag := strings.TrimSpace(r.src[i+2 : i+end])
	for j := len(r.frames) - 1; j >= 0; j-- {
		if r.frames[j].block {
			break
		}
		if r.frames[j].name == tag {
			r.frames = r.frames[:j]
			break
		}
	}
	return i + end + 1, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
