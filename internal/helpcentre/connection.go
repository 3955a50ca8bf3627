package helpcentre

import (
	"net"
	"sync"
	"time"

	"github.com/andy6609/helpcentre-queue/internal/linebuf"
)

const (
	// MaxUsername is the longest username kept; longer names are cut.
	MaxUsername = 30
	// MaxWrite is the most bytes sent by a single Write.
	MaxWrite = 2048
)

type chunk struct {
	data []byte
	err  error
}

// Connection wraps one accepted socket. Apart from the reader goroutine
// started by Registry.Append, every method must be called from the server
// loop.
type Connection struct {
	conn         net.Conn
	addr         string
	writeTimeout time.Duration

	username string
	role     Role
	prompt   PromptState
	io       IOState
	reader   linebuf.Reader
	err      error

	// inbox holds at most one chunk read by watch and not yet consumed.
	inbox     chan chunk
	done      chan struct{}
	closeOnce sync.Once
}

func NewConnection(conn net.Conn, writeTimeout time.Duration) *Connection {
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		addr = ra.String()
	}
	return &Connection{
		conn:         conn,
		addr:         addr,
		writeTimeout: writeTimeout,
		prompt:       AskUsername,
		io:           PrepareToRead,
		inbox:        make(chan chunk, 1),
		done:         make(chan struct{}),
	}
}

func (c *Connection) Username() string { return c.username }

// SetUsername stores name, cut to MaxUsername bytes.
func (c *Connection) SetUsername(name string) {
	if len(name) > MaxUsername {
		name = name[:MaxUsername]
	}
	c.username = name
}

func (c *Connection) Role() Role              { return c.role }
func (c *Connection) SetRole(r Role)          { c.role = r }
func (c *Connection) Prompt() PromptState     { return c.prompt }
func (c *Connection) SetPrompt(s PromptState) { c.prompt = s }
func (c *Connection) IOState() IOState        { return c.io }
func (c *Connection) RemoteAddr() string      { return c.addr }

// Closed reports whether the connection is waiting to be collected.
func (c *Connection) Closed() bool { return c.io == Disconnected }

// Err returns the read or write error that disconnected the client, if any.
func (c *Connection) Err() error { return c.err }

// Write sends msg to the client and returns the number of bytes written, or
// -1 if the connection is already disconnected. A failed write disconnects.
func (c *Connection) Write(msg string) int {
	if c.io == Disconnected {
		return -1
	}
	n, err := writeMessage(c.conn, msg, c.writeTimeout)
	if err != nil {
		c.err = err
		c.io = Disconnected
		return -1
	}
	return n
}

// PrepareRead starts a new inbound message, seeded with bytes left over from
// the previous one.
func (c *Connection) PrepareRead() error {
	if c.io != PrepareToRead {
		return ErrInvalidState
	}
	c.reader.Reset()
	c.io = AwaitingData
	return nil
}

// Read consumes one chunk delivered by the reader goroutine. It never blocks:
// with nothing pending it returns without changing state.
func (c *Connection) Read() error {
	if c.io != AwaitingData {
		return ErrInvalidState
	}
	if c.reader.Complete() {
		c.io = MessageReady
		return nil
	}
	select {
	case ch := <-c.inbox:
		if ch.err != nil {
			c.err = ch.err
			c.io = Disconnected
			return nil
		}
		if c.reader.Feed(ch.data) {
			c.io = MessageReady
		}
	default:
	}
	return nil
}

// ConsumeMessage returns the completed line and readies the connection for
// the next one.
func (c *Connection) ConsumeMessage() (string, error) {
	if c.io != MessageReady {
		return "", ErrInvalidState
	}
	msg := string(c.reader.Message())
	c.io = PrepareToRead
	return msg, nil
}

// Close marks the connection for collection. The socket stays open until
// the registry collects it.
func (c *Connection) Close() {
	c.io = Disconnected
}

// ready reports whether Read would make progress.
func (c *Connection) ready() bool {
	return c.io == AwaitingData && (c.reader.Complete() || len(c.inbox) > 0)
}

// release closes the socket. Safe to call more than once.
func (c *Connection) release() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// watch reads the socket one bounded chunk at a time, parking each chunk in
// the inbox and waking the server loop. It exits once the socket fails or
// the connection is released.
func (c *Connection) watch(wake chan<- struct{}) {
	buf := make([]byte, linebuf.ChunkSize)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			if !c.deliver(chunk{data: append([]byte(nil), buf[:n]...)}, wake) {
				return
			}
		}
		if err != nil {
			c.deliver(chunk{err: err}, wake)
			return
		}
	}
}

func (c *Connection) deliver(ch chunk, wake chan<- struct{}) bool {
	select {
	case c.inbox <- ch:
	case <-c.done:
		return false
	}
	select {
	case wake <- struct{}{}:
	default:
	}
	return true
}
