package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"strings"

	"github.com/phayes/freeport"

	"github.com/YuriyNasretdinov/ipfsprobe/fakenode"
	"github.com/YuriyNasretdinov/ipfsprobe/protocol"
)

var (
	port      = flag.Uint("port", 5001, "Network port to listen on (0 picks a free one)")
	nodeID    = flag.String("id", "12D3KooWFakeNodeFakeNodeFakeNodeFakeNodeFakeNode", "Peer ID reported by the `id` command")
	addresses = flag.String("addresses", "/ip4/127.0.0.1/tcp/4001,/ip4/127.0.0.1/udp/4001/quic-v1", "Comma-separated listen addresses reported by the `id` command")
	failWith  = flag.Int("fail-status", 0, "Fail the first -fail-count requests with this HTTP status")
	failCount = flag.Int("fail-count", 0, "How many requests to fail with -fail-status")
)

func main() {
	flag.Parse()

	listenPort := int(*port)
	if listenPort == 0 {
		p, err := freeport.GetFreePort()
		if err != nil {
			log.Fatalf("Could not find a free port: %v", err)
		}
		listenPort = p
	}

	var addrs []string
	for _, a := range strings.Split(*addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}

	n := fakenode.New(log.Default(), protocol.NodeID{
		ID:              *nodeID,
		Addresses:       addrs,
		AgentVersion:    "fake-ipfsd/0.1.0",
		ProtocolVersion: "ipfs/0.1.0",
	})

	if *failWith != 0 && *failCount > 0 {
		n.FailNext(*failWith, *failCount)
	}

	listenAddr := net.JoinHostPort("127.0.0.1", fmt.Sprint(listenPort))

	log.Printf("Serving fake IPFS API at http://%s/api/v0", listenAddr)
	if err := n.ListenAndServe(listenAddr); err != nil {
		log.Fatalf("Serve: %v", err)
	}
}
