package fakenode

import (
	"fmt"
	"log"
	"net"
	"testing"
	"time"

	"github.com/phayes/freeport"

	"github.com/YuriyNasretdinov/ipfsprobe/protocol"
)

// StartTestNode runs a Node on a free local port for the duration
// of the test and returns it together with its "host:port" address.
func StartTestNode(t *testing.T, identity protocol.NodeID) (n *Node, addr string) {
	t.Helper()

	port, err := freeport.GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get a free port: %v", err)
	}

	addr = net.JoinHostPort("127.0.0.1", fmt.Sprint(port))

	n = New(nil, identity)
	go func() {
		if err := n.ListenAndServe(addr); err != nil {
			log.Printf("Fake node at %s stopped: %v", addr, err)
		}
	}()
	t.Cleanup(func() { n.Shutdown() })

	WaitForPort(t, addr)
	return n, addr
}

// WaitForPort waits up to ~5 seconds for addr to accept connections.
func WaitForPort(t *testing.T, addr string) {
	t.Helper()

	for i := 0; i <= 100; i++ {
		timeout := time.Millisecond * 50
		conn, err := net.DialTimeout("tcp", addr, timeout)
		if err != nil {
			time.Sleep(timeout)
			continue
		}
		conn.Close()
		return
	}

	t.Fatalf("Port at %s did not open", addr)
}
