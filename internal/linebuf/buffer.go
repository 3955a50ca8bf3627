// Package linebuf reassembles CRLF-delimited messages from a raw byte stream
// that arrives in small, arbitrarily split chunks.
package linebuf

import "bytes"

// Buffer is a growable byte buffer that only ever grows until it is taken.
type Buffer struct {
	b bytes.Buffer
}

// Append adds p to the end of the buffer.
func (b *Buffer) Append(p []byte) {
	b.b.Write(p)
}

func (b *Buffer) Len() int {
	return b.b.Len()
}

// Bytes returns the buffered content. The slice is only valid until the next
// Append or Take.
func (b *Buffer) Bytes() []byte {
	return b.b.Bytes()
}

// Take returns a copy of the content, truncated to at most max bytes when max
// is positive, and empties the buffer.
func (b *Buffer) Take(max int) []byte {
	p := b.b.Bytes()
	if max > 0 && len(p) > max {
		p = p[:max]
	}
	out := make([]byte, len(p))
	copy(out, p)
	b.b.Reset()
	return out
}

func (b *Buffer) dropLast() {
	if n := b.b.Len(); n > 0 {
		b.b.Truncate(n - 1)
	}
}
