package js

import (
	"strings"

	"bennypowers.dev/templatetag/transform/types"
)

// tagRegion is one <tag ...>...</tag> block located by the scanner
type tagRegion struct {
	Range        types.Range
	StartRange   types.Range
	ContentRange types.Range
	EndRange     types.Range
	Properties   map[string]string
}

// scanIssue is a problem found while scanning, reported as a diagnostic
type scanIssue struct {
	Offset  int
	Message string
}

// keywords after which an expression (and so a regex or a template) may start
var exprKeywords = map[string]bool{
	"return": true, "typeof": true, "instanceof": true, "in": true, "of": true,
	"new": true, "delete": true, "void": true, "throw": true, "case": true,
	"do": true, "else": true, "yield": true, "await": true, "default": true,
}

// scanner finds template tag regions in host source. It only understands
// enough of the host lexical grammar to skip strings, comments, template
// literals and regular expressions, where a "<template" is not a tag.
type scanner struct {
	src string
	tag string
	pos int

	// lastSig is the last significant byte seen; 'a' stands for an identifier
	// or number and '"' for any string-like literal
	lastSig  byte
	lastWord string
	// newline is set when a line break separates lastSig from pos
	newline bool

	// substitutions holds the brace depth of each open ${...}
	substitutions []int

	regions []tagRegion
	issues  []scanIssue
}

// scan returns the template tag regions of src in document order
func scan(src, tag string) ([]tagRegion, []scanIssue) {
	s := &scanner{src: src, tag: tag}
	s.run()
	return s.regions, s.issues
}

func (s *scanner) run() {
	if strings.HasPrefix(s.src, "#!") {
		s.skipLine()
	}
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == '\n':
			s.newline = true
			s.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			s.pos++
		case c == '/' && s.peek(1) == '/':
			s.skipLine()
		case c == '/' && s.peek(1) == '*':
			s.skipBlockComment()
		case c == '/' && s.expressionAllowed():
			s.skipRegex()
			s.sig('"')
		case c == '\'' || c == '"':
			s.skipString(c)
			s.sig('"')
		case c == '`':
			s.pos++
			s.scanTemplateLiteral()
		case c == '{':
			if n := len(s.substitutions); n > 0 {
				s.substitutions[n-1]++
			}
			s.pos++
			s.sig('{')
		case c == '}':
			s.pos++
			if n := len(s.substitutions); n > 0 {
				if s.substitutions[n-1] == 0 {
					s.substitutions = s.substitutions[:n-1]
					s.scanTemplateLiteral()
					continue
				}
				s.substitutions[n-1]--
			}
			s.sig('}')
		case c == '<' && s.isOpeningTag(s.pos) && (s.expressionAllowed() || s.newline):
			s.scanTag()
		case isIdentByte(c):
			start := s.pos
			for s.pos < len(s.src) && isIdentByte(s.src[s.pos]) {
				s.pos++
			}
			s.sig('a')
			s.lastWord = s.src[start:s.pos]
		default:
			s.pos++
			s.sig(c)
		}
	}
}

func (s *scanner) peek(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

func (s *scanner) sig(c byte) {
	s.lastSig = c
	s.lastWord = ""
	s.newline = false
}

// expressionAllowed reports whether the previous token leaves the lexer
// expecting an operand rather than an operator
func (s *scanner) expressionAllowed() bool {
	switch s.lastSig {
	case 0:
		return true
	case 'a':
		return exprKeywords[s.lastWord]
	case '"', ')', ']':
		return false
	}
	return true
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func (s *scanner) skipLine() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) skipBlockComment() {
	end := strings.Index(s.src[s.pos+2:], "*/")
	if end < 0 {
		s.pos = len(s.src)
		return
	}
	next := s.pos + 2 + end + 2
	if strings.Contains(s.src[s.pos:next], "\n") {
		s.newline = true
	}
	s.pos = next
}

func (s *scanner) skipString(quote byte) {
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case quote:
			s.pos++
			return
		case '\n':
			// unterminated; let the host parser report it
			return
		}
		s.pos++
	}
}

func (s *scanner) skipRegex() {
	s.pos++
	inClass := false
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '\n':
			return
		case '/':
			if !inClass {
				s.pos++
				for s.pos < len(s.src) && isIdentByte(s.src[s.pos]) {
					s.pos++
				}
				return
			}
		}
		s.pos++
	}
}

// scanTemplateLiteral consumes template literal text up to the closing
// backtick, or up to a ${ which hands control back to run
func (s *scanner) scanTemplateLiteral() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '`':
			s.pos++
			s.sig('"')
			return
		case '$':
			if s.peek(1) == '{' {
				s.pos += 2
				s.substitutions = append(s.substitutions, 0)
				s.sig('{')
				return
			}
		}
		s.pos++
	}
}

// isOpeningTag reports whether an opening template tag starts at i
func (s *scanner) isOpeningTag(i int) bool {
	rest := s.src[i:]
	if !strings.HasPrefix(rest, "<"+s.tag) {
		return false
	}
	after := i + 1 + len(s.tag)
	return after < len(s.src) && (s.src[after] == '>' || isSpace(s.src[after]))
}

// closingTagAt returns the end offset of a closing template tag at i, or -1
func (s *scanner) closingTagAt(i int) int {
	if !strings.HasPrefix(s.src[i:], "</"+s.tag) {
		return -1
	}
	j := i + 2 + len(s.tag)
	for j < len(s.src) && isSpace(s.src[j]) {
		j++
	}
	if j < len(s.src) && s.src[j] == '>' {
		return j + 1
	}
	return -1
}

func (s *scanner) scanTag() {
	start := s.pos
	props, openEnd, ok := s.readAttributes(start + 1 + len(s.tag))
	if !ok {
		s.issues = append(s.issues, scanIssue{Offset: start, Message: "unterminated <" + s.tag + "> opening tag"})
		s.pos = len(s.src)
		return
	}

	depth := 1
	for i := openEnd; i < len(s.src); {
		next := strings.IndexByte(s.src[i:], '<')
		if next < 0 {
			break
		}
		i += next
		if end := s.closingTagAt(i); end >= 0 {
			depth--
			if depth == 0 {
				s.regions = append(s.regions, tagRegion{
					Range:        types.Range{start, end},
					StartRange:   types.Range{start, openEnd},
					ContentRange: types.Range{openEnd, i},
					EndRange:     types.Range{i, end},
					Properties:   props,
				})
				s.pos = end
				s.sig(')')
				return
			}
			i = end
			continue
		}
		if s.isOpeningTag(i) {
			depth++
		}
		i++
	}

	s.issues = append(s.issues, scanIssue{Offset: start, Message: "unterminated <" + s.tag + "> block: missing </" + s.tag + ">"})
	s.pos = openEnd
	s.sig(')')
}

// readAttributes parses the attributes of an opening tag beginning at i and
// returns them with the offset just past the closing '>'
func (s *scanner) readAttributes(i int) (map[string]string, int, bool) {
	props := map[string]string{}
	for i < len(s.src) {
		c := s.src[i]
		switch {
		case isSpace(c):
			i++
			continue
		case c == '>':
			return props, i + 1, true
		}

		nameStart := i
		for i < len(s.src) && !isSpace(s.src[i]) && s.src[i] != '=' && s.src[i] != '>' {
			i++
		}
		name := s.src[nameStart:i]
		value := ""
		if i < len(s.src) && s.src[i] == '=' {
			i++
			if i < len(s.src) && (s.src[i] == '"' || s.src[i] == '\'') {
				quote := s.src[i]
				end := strings.IndexByte(s.src[i+1:], quote)
				if end < 0 {
					return nil, 0, false
				}
				value = s.src[i+1 : i+1+end]
				i += end + 2
			} else {
				valueStart := i
				for i < len(s.src) && !isSpace(s.src[i]) && s.src[i] != '>' {
					i++
				}
				value = s.src[valueStart:i]
			}
		}
		props[name] = value
	}
	return nil, 0, false
}
