package client

import (
	"net"
	"time"
)

// Reachable reports whether something accepts TCP connections at addr ("host:port").
// Any dial error means false.
func Reachable(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}

	conn.Close()
	return true
}
