// Package position converts byte offsets into the line / UTF-16 column
// coordinates used by source maps and JS tooling.
package position

import (
	"sort"
	"unicode/utf16"
	"unicode/utf8"
)

// ByteOffsetToUTF16 converts a byte offset to a UTF-16 code unit offset in a string.
// Offsets that fall inside a multi-byte rune are clamped to the rune's start.
func ByteOffsetToUTF16(s string, byteOffset int) int {
	if byteOffset <= 0 {
		return 0
	}
	if byteOffset > len(s) {
		byteOffset = len(s)
	}

	utf16Count := 0
	currentOffset := 0

	// Iterate through runes without slicing to avoid partial rune issues
	for currentOffset < byteOffset {
		r, size := utf8.DecodeRuneInString(s[currentOffset:])
		if r == utf8.RuneError && size == 0 {
			break // End of string
		}

		// Stop if decoding this rune would cross the target byteOffset
		if currentOffset+size > byteOffset {
			break
		}

		if r == utf8.RuneError && size == 1 {
			// Invalid UTF-8 byte; counts as a single unit
			utf16Count++
		} else {
			utf16Count += utf16.RuneLen(r)
		}

		currentOffset += size
	}
	return utf16Count
}

// StringLengthUTF16 returns the length of a string in UTF-16 code units
func StringLengthUTF16(s string) int {
	return ByteOffsetToUTF16(s, len(s))
}

// LineIndex answers offset-to-position queries for one source text
type LineIndex struct {
	src        string
	lineStarts []int
}

// NewLineIndex records where every line of src begins
func NewLineIndex(src string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{src: src, lineStarts: starts}
}

// LineCount returns the number of lines, counting a trailing empty line
func (idx *LineIndex) LineCount() int {
	return len(idx.lineStarts)
}

// LineStart returns the byte offset at which line begins
func (idx *LineIndex) LineStart(line int) int {
	return idx.lineStarts[line]
}

// Position converts a byte offset into a 0-indexed line and UTF-16 column
func (idx *LineIndex) Position(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(idx.src) {
		offset = len(idx.src)
	}
	line = sort.Search(len(idx.lineStarts), func(i int) bool {
		return idx.lineStarts[i] > offset
	}) - 1
	start := idx.lineStarts[line]
	return line, ByteOffsetToUTF16(idx.src[start:], offset-start)
}
