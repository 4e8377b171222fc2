package gateway

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linerelay/internal/shared/types"
)

func drain(t *testing.T, fr FrameReader) []string {
	t.Helper()
	var out []string
	for i := 0; i < 100; i++ {
		msg, err := fr.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, msg)
	}
	t.Fatal("frame reader never reached EOF")
	return nil
}

func TestLineReader(t *testing.T) {
	tests := []struct {
		name  string
		input string
		size  int
		want  []string
	}{
		{"single line", "hello\n", 64, []string{"hello"}},
		{"crlf", "a\r\nb\r\n", 64, []string{"a", "b"}},
		{"blank lines kept for caller", "\n  \nx\n", 64, []string{"", "  ", "x"}},
		{"partial line at eof", "done\nhalf", 64, []string{"done", "half"}},
		{"overlong line", strings.Repeat("y", 20) + "\n", 16, []string{strings.Repeat("y", 16), "yyyy"}},
		{"invalid utf8", "a\xffb\n", 64, []string{"a�b"}},
		{"empty stream", "", 64, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := NewFrameReader(types.FramingLine, iotest.OneByteReader(strings.NewReader(tt.input)), tt.size)
			assert.Equal(t, tt.want, drain(t, fr))
		})
	}
}

func TestChunkReader(t *testing.T) {
	fr := NewFrameReader(types.FramingChunk, strings.NewReader("one\ntwo\n"), 1024)
	assert.Equal(t, []string{"one\ntwo"}, drain(t, fr), "one read is one message")

	fr = NewFrameReader(types.FramingChunk, strings.NewReader(strings.Repeat("z", 20)), 16)
	assert.Equal(t, []string{strings.Repeat("z", 16), "zzzz"}, drain(t, fr))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, isBlank(""))
	assert.True(t, isBlank(" \t\r"))
	assert.False(t, isBlank(" x "))
}
