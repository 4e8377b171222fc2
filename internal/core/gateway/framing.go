package gateway

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"linerelay/internal/shared/types"
)

// FrameReader yields one inbound message per call. It returns io.EOF only
// after every buffered byte has been handed out.
type FrameReader interface {
	Next() (string, error)
}

// NewFrameReader picks the reader for the configured framing mode.
func NewFrameReader(mode string, r io.Reader, size int) FrameReader {
	if mode == types.FramingChunk {
		return &chunkReader{r: r, buf: make([]byte, size)}
	}
	return &lineReader{r: bufio.NewReaderSize(r, size)}
}

// lineReader reassembles newline-terminated lines across reads. A line longer
// than the buffer is handed out in buffer-sized fragments.
type lineReader struct {
	r *bufio.Reader
}

func (l *lineReader) Next() (string, error) {
	line, err := l.r.ReadSlice('\n')
	switch {
	case err == nil:
		return decode(trimEOL(line)), nil
	case errors.Is(err, bufio.ErrBufferFull):
		return decode(line), nil
	case len(line) > 0:
		// Trailing partial line; the error resurfaces on the next call.
		return decode(line), nil
	default:
		return "", err
	}
}

// chunkReader treats every Read as one message.
type chunkReader struct {
	r   io.Reader
	buf []byte
}

func (c *chunkReader) Next() (string, error) {
	n, err := c.r.Read(c.buf)
	if n > 0 {
		return decode(trimEOL(c.buf[:n])), nil
	}
	if err == nil {
		return "", nil
	}
	return "", err
}

func trimEOL(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
		if n := len(b); n > 0 && b[n-1] == '\r' {
			b = b[:n-1]
		}
	}
	return b
}

func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// isBlank reports whether msg carries nothing worth relaying.
func isBlank(msg string) bool {
	return strings.TrimSpace(msg) == ""
}
