package position_test

import (
	"testing"

	"bennypowers.dev/templatetag/internal/position"
	"github.com/stretchr/testify/assert"
)

func TestByteOffsetToUTF16(t *testing.T) {
	tests := []struct {
		name       string
		s          string
		byteOffset int
		want       int
	}{
		{name: "empty string", s: "", byteOffset: 0, want: 0},
		{name: "ASCII only", s: "hello world", byteOffset: 5, want: 5},
		{name: "beyond end", s: "hello", byteOffset: 100, want: 5},
		{name: "negative offset", s: "hello", byteOffset: -3, want: 0},
		{name: "emoji counts as surrogate pair", s: "👍 hi", byteOffset: 4, want: 2},
		{name: "CJK is one unit per rune", s: "颜色", byteOffset: 6, want: 2},
		{name: "offset inside a rune clamps", s: "颜色", byteOffset: 4, want: 1},
		{name: "invalid byte is one unit", s: "a\xFFb", byteOffset: 3, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, position.ByteOffsetToUTF16(tt.s, tt.byteOffset))
		})
	}
}

func TestStringLengthUTF16(t *testing.T) {
	assert.Equal(t, 0, position.StringLengthUTF16(""))
	assert.Equal(t, 5, position.StringLengthUTF16("hello"))
	assert.Equal(t, 6, position.StringLengthUTF16("👍颜色🎨"))
}

func TestLineIndex(t *testing.T) {
	src := "const a = 1;\n  👍 b\n\nend"
	idx := position.NewLineIndex(src)

	assert.Equal(t, 4, idx.LineCount())
	assert.Equal(t, 13, idx.LineStart(1))

	tests := []struct {
		name       string
		offset     int
		wantLine   int
		wantColumn int
	}{
		{name: "start of file", offset: 0, wantLine: 0, wantColumn: 0},
		{name: "end of first line", offset: 12, wantLine: 0, wantColumn: 12},
		{name: "after newline", offset: 13, wantLine: 1, wantColumn: 0},
		{name: "after emoji", offset: 13 + 2 + 4, wantLine: 1, wantColumn: 4},
		{name: "end of second line", offset: 21, wantLine: 1, wantColumn: 6},
		{name: "empty line", offset: 22, wantLine: 2, wantColumn: 0},
		{name: "past the end", offset: 1000, wantLine: 3, wantColumn: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, col := idx.Position(tt.offset)
			assert.Equal(t, tt.wantLine, line)
			assert.Equal(t, tt.wantColumn, col)
		})
	}
}
