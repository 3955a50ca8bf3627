package helpcentre

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/andy6609/helpcentre-queue/internal/hcq"
)

type acceptResult struct {
	conn net.Conn
	err  error
}

// Registry is the set of live connections together with the listener they
// were accepted from. Connections are only ever removed by Collect.
type Registry struct {
	listener     net.Listener
	conns        []*Connection
	accepted     chan acceptResult
	wake         chan struct{}
	done         chan struct{}
	acceptDone   chan struct{}
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewRegistry starts accepting on ln. At most backlog accepted connections
// wait for AcceptNewConnection at any time.
func NewRegistry(ln net.Listener, backlog int, writeTimeout time.Duration, logger *slog.Logger) *Registry {
	if backlog <= 0 {
		backlog = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		listener:     ln,
		accepted:     make(chan acceptResult, backlog),
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
		acceptDone:   make(chan struct{}),
		writeTimeout: writeTimeout,
		logger:       logger,
	}
	go r.acceptLoop()
	return r
}

func (r *Registry) acceptLoop() {
	defer close(r.acceptDone)
	for {
		conn, err := r.listener.Accept()
		select {
		case r.accepted <- acceptResult{conn: conn, err: err}:
		case <-r.done:
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
		r.signal()
		if err != nil {
			return
		}
	}
}

func (r *Registry) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Append attaches c to the registry and starts watching its socket.
func (r *Registry) Append(c *Connection) *Registry {
	r.conns = append(r.conns, c)
	go c.watch(r.wake)
	ConnectedClients.Set(float64(len(r.conns)))
	return r
}

// AcceptNewConnection registers one pending connection, if there is one. An
// accept failure means the listener is unusable and is returned as is.
func (r *Registry) AcceptNewConnection() (*Connection, error) {
	var res acceptResult
	select {
	case res = <-r.accepted:
	default:
		return nil, nil
	}
	if res.err != nil {
		return nil, fmt.Errorf("accept: %w", res.err)
	}
	c := NewConnection(res.conn, r.writeTimeout)
	r.Append(c)
	r.logger.Info("client connected", "addr", c.RemoteAddr())
	return c, nil
}

// Connections returns the live connections in arrival order. The slice must
// not be modified, and Collect must not run while it is being iterated.
func (r *Registry) Connections() []*Connection {
	return r.conns
}

func (r *Registry) Len() int {
	return len(r.conns)
}

// ReadySet is the result of WaitReady.
type ReadySet struct {
	Listener bool
	conns    map[*Connection]struct{}
}

func (s ReadySet) Has(c *Connection) bool {
	_, ok := s.conns[c]
	return ok
}

func (s ReadySet) Len() int {
	n := len(s.conns)
	if s.Listener {
		n++
	}
	return n
}

// WaitReady blocks until the listener has a pending connection or at least
// one connection can make read progress. Readiness is level triggered: data
// that was not consumed is reported again on the next call.
func (r *Registry) WaitReady(ctx context.Context) (ReadySet, error) {
	for {
		if set := r.poll(); set.Len() > 0 {
			return set, nil
		}
		select {
		case <-r.wake:
		case <-ctx.Done():
			return ReadySet{}, ctx.Err()
		}
	}
}

func (r *Registry) poll() ReadySet {
	set := ReadySet{Listener: len(r.accepted) > 0}
	for _, c := range r.conns {
		if c.ready() {
			if set.conns == nil {
				set.conns = make(map[*Connection]struct{})
			}
			set.conns[c] = struct{}{}
		}
	}
	return set
}

// Collect removes every disconnected connection in one pass, releasing its
// queue records and closing its socket.
func (r *Registry) Collect(q *hcq.Queue) *Registry {
	kept := r.conns[:0]
	for _, c := range r.conns {
		if c.IOState() != Disconnected {
			kept = append(kept, c)
			continue
		}
		r.remove(c, q)
	}
	for i := len(kept); i < len(r.conns); i++ {
		r.conns[i] = nil
	}
	if len(kept) != len(r.conns) {
		r.conns = kept
		ConnectedClients.Set(float64(len(r.conns)))
	}
	return r
}

func (r *Registry) remove(c *Connection, q *hcq.Queue) {
	if c.Role() != RoleUnset && q != nil {
		q.Release(c)
	}
	_ = c.release()

	attrs := []any{"addr", c.RemoteAddr(), "username", c.Username(), "role", c.Role().String()}
	if err := c.Err(); err != nil {
		attrs = append(attrs, "reason", err.Error())
	}
	r.logger.Info("client disconnected", attrs...)
}

// Close stops accepting, closes the listener and drops every connection,
// releasing their queue records.
func (r *Registry) Close(q *hcq.Queue) error {
	select {
	case <-r.done:
		return nil
	default:
	}
	close(r.done)
	err := r.listener.Close()
	<-r.acceptDone
	for _, c := range r.conns {
		c.Close()
	}
	r.Collect(q)
	for {
		select {
		case res := <-r.accepted:
			if res.conn != nil {
				_ = res.conn.Close()
			}
		default:
			return err
		}
	}
}
