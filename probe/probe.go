// Package probe runs the connectivity check against a local IPFS daemon
// and writes a human-readable report.
package probe

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	"github.com/op/go-logging"

	"github.com/YuriyNasretdinov/ipfsprobe/config"
	"github.com/YuriyNasretdinov/ipfsprobe/protocol"
)

var log = logging.MustGetLogger("probe")

const (
	testFileName  = "test.txt"
	maxAddresses  = 2
	bannerWidth   = 50
	contentFormat = "Hello from ipfsprobe! time: %s"
)

// Daemon is the part of the daemon API the probe needs.
type Daemon interface {
	ID(ctx context.Context) (protocol.NodeID, error)
	Add(ctx context.Context, name string, data []byte) (protocol.AddedObject, error)
	PinAdd(ctx context.Context, cid string) (protocol.PinResult, error)
}

// Result summarises a single run.
type Result struct {
	Reachable bool
	Node      protocol.NodeID
	CID       string
	Pinned    bool
	Err       error
}

// Prober runs the check. Out receives the report.
type Prober struct {
	Out       io.Writer
	Daemon    Daemon
	Reachable func() bool
	Now       func() time.Time

	port          string
	gateway       string
	publicGateway string
}

// New creates *Prober.
func New(cfg config.Config, d Daemon, reachable func() bool, out io.Writer) *Prober {
	return &Prober{
		Out:           out,
		Daemon:        d,
		Reachable:     reachable,
		Now:           time.Now,
		port:          cfg.Port(),
		gateway:       strings.TrimRight(cfg.Gateway, "/"),
		publicGateway: strings.TrimRight(cfg.PublicGateway, "/"),
	}
}

func (p *Prober) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.Out, format, args...)
}

func (p *Prober) banner() {
	p.printf("%s\n", strings.Repeat("=", bannerWidth))
}

// Run performs the check: reachability, identity, upload, pin.
// It never fails itself; the outcome is reported to Out and in Result.
func (p *Prober) Run(ctx context.Context) (res Result) {
	p.banner()
	p.printf("IPFS daemon connectivity check\n")
	p.banner()

	if !p.Reachable() {
		log.Debugf("Nothing is listening on API port %s", p.port)
		p.printNotRunning()
		return res
	}
	res.Reachable = true

	p.printf("IPFS daemon is running (port %s is listening)\n", p.port)

	if err := p.runAPI(ctx, &res); err != nil {
		log.Debugf("Connectivity check failed: %v", err)
		res.Err = err
		p.printFailure(err)
	}

	return res
}

func (p *Prober) runAPI(ctx context.Context, res *Result) error {
	p.printf("\nFetching node identity...\n")

	node, err := p.Daemon.ID(ctx)
	if err != nil {
		return err
	}
	res.Node = node

	addrs := node.Addresses
	if len(addrs) > maxAddresses {
		addrs = addrs[:maxAddresses]
	}
	shown := make([]string, 0, len(addrs))
	for _, a := range addrs {
		shown = append(shown, formatAddr(a))
	}

	p.printf("Connected!\n")
	p.printf("   Node ID   : %s\n", node.ID)
	p.printf("   Addresses : [%s]\n", strings.Join(shown, ", "))

	p.printf("\nTesting file upload...\n")

	content := fmt.Sprintf(contentFormat, p.Now().Format("2006-01-02 15:04:05"))
	added, err := p.Daemon.Add(ctx, testFileName, []byte(content))
	if err != nil {
		return err
	}
	res.CID = added.Hash

	p.printf("Upload succeeded!\n")
	p.printf("   CID     : %s\n", added.Hash)
	if desc, ok := protocol.DescribeCID(added.Hash); ok {
		p.printf("   Format  : %s\n", desc)
	} else {
		log.Debugf("Daemon returned %q which does not parse as a CID", added.Hash)
	}
	p.printf("   Gateway : %s/ipfs/%s\n", p.gateway, added.Hash)
	p.printf("   Public  : %s/ipfs/%s\n", p.publicGateway, added.Hash)

	if _, err := p.Daemon.PinAdd(ctx, added.Hash); err != nil {
		return err
	}
	res.Pinned = true

	p.printf("Pinned, the file will be kept in local storage\n")

	p.printf("\n")
	p.banner()
	p.printf("IPFS daemon is working correctly!\n")
	p.banner()

	return nil
}

// formatAddr prints the address in its canonical multiaddr form.
func formatAddr(a string) string {
	m, err := ma.NewMultiaddr(a)
	if err != nil {
		log.Debugf("Daemon reported a malformed address %q: %v", a, err)
		return a + " (invalid)"
	}

	return m.String()
}

func (p *Prober) printNotRunning() {
	p.printf("IPFS daemon is not running or the port is unavailable\n")
	p.printf("\nPlease check that:\n")
	p.printf("   1. The IPFS daemon (or IPFS Desktop) is started\n")
	p.printf("   2. Its status shows \"Connected\" or \"Running\"\n")
	p.printf("   3. The API port is %s (the default, unless changed)\n", p.port)
}

func (p *Prober) printFailure(err error) {
	p.printf("Test failed: %v\n", err)
	p.printf("\nCommon fixes:\n")
	p.printf("   * Make sure the IPFS daemon has fully started\n")
	p.printf("   * Check that a firewall or antivirus does not block port %s\n", p.port)
	p.printf("   * Restart the IPFS daemon and try again\n")
}
