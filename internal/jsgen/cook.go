package jsgen

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// CookTemplate returns the cooked value of raw template literal text: the
// string a tag function receives in strings[0]. Line terminators are
// normalized to \n and escape sequences are decoded. Text with an escape
// that is invalid in a template literal is returned unchanged, since such a
// literal has no cooked value.
func CookTemplate(raw string) string {
	if !strings.ContainsAny(raw, "\\\r") {
		return raw
	}

	var units []uint16
	flush := func(b *strings.Builder) {
		if len(units) > 0 {
			b.WriteString(string(utf16.Decode(units)))
			units = units[:0]
		}
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); {
		c := raw[i]
		if c == '\r' {
			flush(&b)
			b.WriteByte('\n')
			i++
			if i < len(raw) && raw[i] == '\n' {
				i++
			}
			continue
		}
		if c != '\\' {
			flush(&b)
			r, size := utf8.DecodeRuneInString(raw[i:])
			b.WriteRune(r)
			i += size
			continue
		}

		if i+1 >= len(raw) {
			return raw
		}
		esc := raw[i+1]
		i += 2
		if esc != 'u' {
			flush(&b)
		}
		switch esc {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			if i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
				return raw
			}
			b.WriteByte(0)
		case '1', '2', '3', '4', '5', '6', '7', '8', '9':
			return raw
		case '\r':
			// line continuation
			if i < len(raw) && raw[i] == '\n' {
				i++
			}
		case '\n':
		case 'x':
			v, ok := parseHex(raw, i, 2)
			if !ok {
				return raw
			}
			b.WriteRune(rune(v))
			i += 2
		case 'u':
			v, n, ok := parseUnicodeEscape(raw, i)
			if !ok {
				return raw
			}
			i += n
			if v > 0xFFFF {
				flush(&b)
				b.WriteRune(rune(v))
			} else {
				// surrogate pairs arrive as two escapes
				units = append(units, uint16(v))
			}
		default:
			r, size := utf8.DecodeRuneInString(raw[i-1:])
			i += size - 1
			// U+2028 and U+2029 are line continuations too
			if r != '\u2028' && r != '\u2029' {
				b.WriteRune(r)
			}
		}
	}
	flush(&b)
	return b.String()
}

func parseHex(s string, at, n int) (uint64, bool) {
	if at+n > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[at:at+n], 16, 32)
	return v, err == nil
}

// parseUnicodeEscape reads the part of a \u escape after the u: four hex
// digits or a braced code point. It returns the value and bytes consumed.
func parseUnicodeEscape(s string, at int) (uint64, int, bool) {
	if at < len(s) && s[at] == '{' {
		end := strings.IndexByte(s[at:], '}')
		if end < 2 {
			return 0, 0, false
		}
		v, ok := parseHex(s, at+1, end-1)
		if !ok || v > utf8.MaxRune {
			return 0, 0, false
		}
		return v, end + 1, true
	}
	v, ok := parseHex(s, at, 4)
	return v, 4, ok
}
