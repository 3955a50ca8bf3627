package helpcentre

import (
	"io"
	"net"
	"time"
)

// writeMessage sends at most MaxWrite bytes of msg. The deadline keeps a peer
// that stopped reading from stalling the loop; the caller treats it like any
// other broken pipe.
func writeMessage(conn net.Conn, msg string, timeout time.Duration) (int, error) {
	if len(msg) > MaxWrite {
		msg = msg[:MaxWrite]
	}
	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return 0, err
		}
	}
	return io.WriteString(conn, msg)
}
