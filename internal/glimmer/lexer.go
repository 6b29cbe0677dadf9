// Package glimmer holds the template-language content utilities: a locals
// resolver that lists the free identifiers a template references, and a
// minifier that collapses whitespace in its text.
package glimmer

import (
	"fmt"
	"strings"

	"bennypowers.dev/templatetag/transform/types"
)

// SyntaxError reports malformed template content
type SyntaxError struct {
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax error at offset %d: %s", e.Offset, e.Message)
}

func syntaxError(offset int, format string, args ...any) error {
	return &SyntaxError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// mustacheKind classifies a {{...}} statement by its leading sigil
type mustacheKind int

const (
	mustacheExpr mustacheKind = iota
	mustacheComment
	mustacheBlockOpen
	mustacheBlockClose
	mustacheElse
)

// mustache is one {{...}} or {{{...}}} statement
type mustache struct {
	Kind  mustacheKind
	Range types.Range
	// Body is the text between the delimiters, sigil and ~ stripped
	Body string
	// BodyStart is the offset of Body within the template
	BodyStart int
}

// readMustache reads the mustache opening at src[i:], which must start with "{{"
func readMustache(src string, i int) (mustache, error) {
	open := 2
	closing := "}}"
	if strings.HasPrefix(src[i:], "{{{") {
		open, closing = 3, "}}}"
	}

	bodyStart := i + open
	if strings.HasPrefix(src[bodyStart:], "~") {
		bodyStart++
	}

	if strings.HasPrefix(src[bodyStart:], "!") {
		terminator := "}}"
		if strings.HasPrefix(src[bodyStart:], "!--") {
			terminator = "--}}"
		}
		end := strings.Index(src[bodyStart:], terminator)
		if end < 0 {
			return mustache{}, syntaxError(i, "unclosed comment")
		}
		return mustache{
			Kind:  mustacheComment,
			Range: types.Range{i, bodyStart + end + len(terminator)},
		}, nil
	}

	end := -1
	var quote byte
	for j := bodyStart; j < len(src); j++ {
		c := src[j]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case strings.HasPrefix(src[j:], closing):
			end = j
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return mustache{}, syntaxError(i, "unclosed mustache")
	}

	m := mustache{
		Kind:      mustacheExpr,
		Range:     types.Range{i, end + len(closing)},
		BodyStart: bodyStart,
	}
	body := src[bodyStart:end]
	if strings.HasSuffix(body, "~") {
		body = body[:len(body)-1]
	}

	trimmed := strings.TrimLeft(body, " \t\r\n")
	m.BodyStart += len(body) - len(trimmed)
	body = trimmed
	switch {
	case strings.HasPrefix(body, "#"):
		m.Kind = mustacheBlockOpen
		body, m.BodyStart = body[1:], m.BodyStart+1
		if strings.HasPrefix(body, ">") || strings.HasPrefix(body, "*") {
			body, m.BodyStart = body[1:], m.BodyStart+1
		}
	case strings.HasPrefix(body, "/"):
		m.Kind = mustacheBlockClose
		body, m.BodyStart = body[1:], m.BodyStart+1
	case body == "^" || strings.HasPrefix(body, "^ "):
		m.Kind = mustacheElse
		body, m.BodyStart = body[1:], m.BodyStart+1
	case strings.HasPrefix(body, "^"):
		m.Kind = mustacheBlockOpen
		body, m.BodyStart = body[1:], m.BodyStart+1
	case body == "else" || strings.HasPrefix(body, "else ") || strings.HasPrefix(body, "else\n"):
		m.Kind = mustacheElse
		body, m.BodyStart = body[4:], m.BodyStart+4
	}
	m.Body = body
	return m, nil
}

// mustacheRanges lists every mustache statement in src in document order
func mustacheRanges(src string) ([]types.Range, error) {
	var ranges []types.Range
	for i := 0; i < len(src); {
		next := strings.Index(src[i:], "{{")
		if next < 0 {
			break
		}
		i += next
		if i > 0 && src[i-1] == '\\' {
			i += 2
			continue
		}
		m, err := readMustache(src, i)
		if err != nil {
			return ranges, err
		}
		ranges = append(ranges, m.Range)
		i = m.Range.End()
	}
	return ranges, nil
}

// isIDByte reports whether c can appear in a path segment. Everything but
// whitespace and Handlebars punctuation qualifies.
func isIDByte(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', '\f', '\v',
		'=', '~', '}', '{', '/', '.', ')', '(', '|', '!', '"', '#', '%', '&',
		'\'', ',', ';', '<', '>', '@', '[', ']', '^', '`':
		return false
	}
	return true
}

// expression tokens
type tokenKind int

const (
	tokenPath tokenKind = iota
	tokenArg
	tokenLiteral
	tokenNamedKey
	tokenBlockParams
	tokenPunct
)

type token struct {
	Kind   tokenKind
	Text   string
	Params []string
	Offset int
}

// tokenize splits a mustache body or sub-expression into tokens. offset is
// the position of body within the template, for error reporting.
func tokenize(body string, offset int) ([]token, error) {
	var tokens []token
	for i := 0; i < len(body); {
		c := body[i]
		start := i
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			i++
		case c == '(' || c == ')' || c == '=':
			tokens = append(tokens, token{Kind: tokenPunct, Text: string(c), Offset: offset + i})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(body[i+1:], c)
			if end < 0 {
				return nil, syntaxError(offset+i, "unterminated string")
			}
			i += end + 2
			tokens = append(tokens, token{Kind: tokenLiteral, Text: body[start:i], Offset: offset + start})
		case c == '|':
			end := strings.IndexByte(body[i+1:], '|')
			if end < 0 {
				return nil, syntaxError(offset+i, "unterminated block params")
			}
			params := strings.Fields(body[i+1 : i+1+end])
			i += end + 2
			tokens = append(tokens, token{Kind: tokenBlockParams, Params: params, Offset: offset + start})
		case c == '@':
			i++
			for i < len(body) && (isIDByte(body[i]) || body[i] == '.') {
				i++
			}
			tokens = append(tokens, token{Kind: tokenArg, Text: body[start:i], Offset: offset + start})
		case c == '-' || (c >= '0' && c <= '9'):
			i++
			for i < len(body) && (isIDByte(body[i]) || body[i] == '.') {
				i++
			}
			kind := tokenLiteral
			if c == '-' && !isNumber(body[start:i]) {
				kind = tokenPath
			}
			tokens = append(tokens, token{Kind: kind, Text: body[start:i], Offset: offset + start})
		case isIDByte(c) || c == '.':
			for i < len(body) && (isIDByte(body[i]) || body[i] == '.' || body[i] == '/') {
				i++
			}
			text := body[start:i]
			kind := tokenPath
			if i < len(body) && body[i] == '=' {
				kind = tokenNamedKey
				i++
			}
			tokens = append(tokens, token{Kind: kind, Text: text, Offset: offset + start})
		default:
			return nil, syntaxError(offset+i, "unexpected %q", c)
		}
	}
	return tokens, nil
}

func isNumber(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if (s[i] < '0' || s[i] > '9') && s[i] != '.' {
			return false
		}
	}
	return true
}
