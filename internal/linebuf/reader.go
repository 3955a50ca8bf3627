package linebuf

const (
	// ChunkSize bounds a single socket read.
	ChunkSize = 30
	// MaxMessage is the longest message handed back to the caller.
	MaxMessage = 30
)

// FindNetworkNewline searches the first n bytes of buf for "\r\n" and returns
// the index one past the '\n', or -1 if there is none.
func FindNetworkNewline(buf []byte, n int) int {
	if n > len(buf) {
		n = len(buf)
	}
	for i := 0; i < n-1; i++ {
		if buf[i] == '\r' && buf[i+1] == '\n' {
			return i + 2
		}
	}
	return -1
}

// Reader accumulates chunks until a full line has arrived. Bytes that follow
// the delimiter in the same chunk are kept as overflow and seeded into the
// next message by Reset.
type Reader struct {
	msg      Buffer
	overflow []byte
	complete bool
}

// Reset starts a new message, seeding it with any overflow from the previous
// one. It reports whether the seeded bytes already hold a full line.
func (r *Reader) Reset() bool {
	seed := r.overflow
	r.overflow = nil
	r.msg.Take(0)
	r.complete = false
	if len(seed) == 0 {
		return false
	}
	return r.Feed(seed)
}

// Feed appends a freshly read chunk and reports whether the message is now
// complete. Feeding a complete reader is a no-op.
func (r *Reader) Feed(p []byte) bool {
	if r.complete || len(p) == 0 {
		return r.complete
	}

	// CR at the end of the last chunk, LF at the start of this one.
	if b := r.msg.Bytes(); len(b) > 0 && b[len(b)-1] == '\r' && p[0] == '\n' {
		r.msg.dropLast()
		r.keepOverflow(p[1:])
		r.complete = true
		return true
	}

	idx := FindNetworkNewline(p, len(p))
	if idx == -1 {
		r.msg.Append(p)
		return false
	}
	r.msg.Append(p[:idx-2])
	r.keepOverflow(p[idx:])
	r.complete = true
	return true
}

// Complete reports whether a full line is buffered.
func (r *Reader) Complete() bool {
	return r.complete
}

// Message returns the completed line without its delimiter, truncated to
// MaxMessage bytes. It returns nil if the line is not complete yet.
func (r *Reader) Message() []byte {
	if !r.complete {
		return nil
	}
	r.complete = false
	return r.msg.Take(MaxMessage)
}

// Overflow returns the bytes carried over to the next message.
func (r *Reader) Overflow() []byte {
	return r.overflow
}

func (r *Reader) keepOverflow(p []byte) {
	if len(p) == 0 {
		r.overflow = nil
		return
	}
	r.overflow = append([]byte(nil), p...)
}
