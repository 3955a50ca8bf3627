package helpcentre

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andy6609/helpcentre-queue/internal/hcq"
)

// gatedListener hands out connections pushed on gate, including after Close.
type gatedListener struct {
	gate   chan net.Conn
	closed chan struct{}
}

func newGatedListener() *gatedListener {
	return &gatedListener{gate: make(chan net.Conn), closed: make(chan struct{})}
}

func (l *gatedListener) Accept() (net.Conn, error) {
	c, ok := <-l.gate
	if !ok {
		return nil, net.ErrClosed
	}
	return c, nil
}

func (l *gatedListener) Close() error {
	close(l.closed)
	return nil
}

func (l *gatedListener) Addr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)} }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testQueue() *hcq.Queue {
	return hcq.NewQueue([]hcq.Course{{Code: "CSC108"}, {Code: "CSC148"}, {Code: "CSC209"}}, nil)
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r := NewRegistry(ln, 3, time.Second, testLogger())
	t.Cleanup(func() { _ = r.Close(nil) })
	return r
}

func waitReadySet(t *testing.T, r *Registry) ReadySet {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	set, err := r.WaitReady(ctx)
	require.NoError(t, err)
	return set
}

func TestRegistry_AcceptThenReadLine(t *testing.T) {
	r := newTestRegistry(t)

	client, err := net.Dial("tcp", r.listener.Addr().String())
	require.NoError(t, err)
	defer client.Close()

	set := waitReadySet(t, r)
	require.True(t, set.Listener)
	c, err := r.AcceptNewConnection()
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 1, r.Len())

	require.NoError(t, c.PrepareRead())
	_, err = client.Write([]byte("hi\r\n"))
	require.NoError(t, err)

	set = waitReadySet(t, r)
	require.True(t, set.Has(c))
	require.NoError(t, c.Read())
	msg, err := c.ConsumeMessage()
	require.NoError(t, err)
	assert.Equal(t, "hi", msg)
}

func TestRegistry_AcceptWithNothingPending(t *testing.T) {
	r := newTestRegistry(t)
	c, err := r.AcceptNewConnection()
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestRegistry_WaitReadyStopsOnContext(t *testing.T) {
	r := newTestRegistry(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := r.WaitReady(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRegistry_ReadyIsLevelTriggered(t *testing.T) {
	r := newTestRegistry(t)
	server, client := net.Pipe()
	defer client.Close()
	c := NewConnection(server, time.Second)
	r.Append(c)

	send(t, client, "partial")
	// not reading yet: data waits in the inbox and is not reported
	require.Eventually(t, func() bool { return len(c.inbox) == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, r.poll().Has(c))

	require.NoError(t, c.PrepareRead())
	assert.True(t, waitReadySet(t, r).Has(c))
	assert.True(t, waitReadySet(t, r).Has(c))
}

func TestRegistry_CollectReleasesQueueRecords(t *testing.T) {
	r := newTestRegistry(t)
	q := testQueue()

	pipes := make([]net.Conn, 0, 4)
	newConn := func(name string, role Role) *Connection {
		server, client := net.Pipe()
		pipes = append(pipes, client)
		c := NewConnection(server, time.Second)
		c.SetUsername(name)
		c.SetRole(role)
		r.Append(c)
		return c
	}
	defer func() {
		for _, p := range pipes {
			_ = p.Close()
		}
	}()

	student := newConn("alice", RoleStudent)
	ta := newConn("t1", RoleTA)
	unset := newConn("", RoleUnset)
	keep := newConn("bob", RoleStudent)

	require.NoError(t, q.AddStudent("alice", "CSC108", student))
	require.NoError(t, q.AddStudent("bob", "CSC108", keep))
	q.AddTa("t1", ta)

	student.Close()
	ta.Close()
	unset.Close()
	r.Collect(q)

	require.Equal(t, 1, r.Len())
	assert.Same(t, keep, r.Connections()[0])
	assert.Nil(t, q.FindStudent("alice"))
	assert.Nil(t, q.FindTa("t1"))
	assert.NotNil(t, q.FindStudent("bob"))
	assert.Equal(t, 1, q.FindCourse("CSC108").Bailed)

	// sockets of collected connections are closed
	_, err := pipes[0].Write([]byte("x"))
	assert.Error(t, err)

	// collecting again is a no-op
	r.Collect(q)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_CloseDropsEverything(t *testing.T) {
	r := newTestRegistry(t)
	q := testQueue()
	server, client := net.Pipe()
	defer client.Close()
	c := NewConnection(server, time.Second)
	c.SetUsername("alice")
	c.SetRole(RoleStudent)
	r.Append(c)
	require.NoError(t, q.AddStudent("alice", "CSC209", c))

	require.NoError(t, r.Close(q))
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, q.Waiting())
	assert.NoError(t, r.Close(q))
}

func TestRegistry_CloseReleasesConnectionAcceptedDuringShutdown(t *testing.T) {
	ln := newGatedListener()
	r := NewRegistry(ln, 3, time.Second, testLogger())

	closeErr := make(chan error, 1)
	go func() { closeErr <- r.Close(nil) }()

	select {
	case <-ln.closed:
	case <-time.After(time.Second):
		t.Fatal("listener not closed")
	}

	// Accept was already in flight when the registry shut down.
	server, client := net.Pipe()
	defer client.Close()
	ln.gate <- server
	close(ln.gate)

	select {
	case err := <-closeErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("close did not return")
	}

	_ = client.SetReadDeadline(time.Now().Add(time.Second))
	_, err := client.Read(make([]byte, 1))
	assert.ErrorIs(t, err, io.EOF)
	assert.Zero(t, len(r.accepted))
}
