//go:build !unix

package helpcentre

import "net"

func listenConfig() net.ListenConfig {
	return net.ListenConfig{}
}
