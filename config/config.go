// Package config holds the settings of the connectivity probe.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
)

const (
	DefaultAPIAddr       = "/ip4/127.0.0.1/tcp/5001"
	DefaultGateway       = "http://127.0.0.1:8080"
	DefaultPublicGateway = "https://ipfs.io"
	DefaultDialTimeout   = 2 * time.Second
	DefaultTimeout       = 10 * time.Second
	DefaultMaxRetries    = 3
	DefaultBackoffFactor = time.Second
)

// DefaultRetryStatuses are the HTTP status codes on which a request is replayed.
var DefaultRetryStatuses = []int{502, 503, 504}

// Config describes where the daemon lives and how hard to try talking to it.
type Config struct {
	// APIAddr is the multiaddr of the daemon HTTP API.
	APIAddr       string
	Gateway       string
	PublicGateway string

	// DialTimeout bounds the reachability check.
	DialTimeout time.Duration
	// Timeout bounds every single HTTP request.
	Timeout time.Duration

	MaxRetries    int
	BackoffFactor time.Duration
	RetryStatuses []int

	Debug bool
}

// Default returns the configuration used when the probe is started without flags.
func Default() Config {
	return Config{
		APIAddr:       DefaultAPIAddr,
		Gateway:       DefaultGateway,
		PublicGateway: DefaultPublicGateway,
		DialTimeout:   DefaultDialTimeout,
		Timeout:       DefaultTimeout,
		MaxRetries:    DefaultMaxRetries,
		BackoffFactor: DefaultBackoffFactor,
		RetryStatuses: append([]int(nil), DefaultRetryStatuses...),
	}
}

// Validate checks that the values make sense.
func (c Config) Validate() error {
	if _, err := c.DialAddr(); err != nil {
		return err
	}

	for _, g := range []string{c.Gateway, c.PublicGateway} {
		u, err := url.Parse(g)
		if err != nil {
			return fmt.Errorf("bad gateway URL %q: %w", g, err)
		} else if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("bad gateway URL %q: scheme and host must be provided", g)
		}
	}

	if c.DialTimeout <= 0 {
		return errors.New("dial timeout must be positive")
	}

	if c.Timeout <= 0 {
		return errors.New("request timeout must be positive")
	}

	if c.MaxRetries < 0 {
		return errors.New("max retries must not be negative")
	}

	if c.BackoffFactor < 0 {
		return errors.New("backoff factor must not be negative")
	}

	return nil
}

// DialAddr converts APIAddr into a "host:port" string.
func (c Config) DialAddr() (string, error) {
	m, err := ma.NewMultiaddr(c.APIAddr)
	if err != nil {
		return "", fmt.Errorf("bad API multiaddr %q: %w", c.APIAddr, err)
	}

	network, host, err := manet.DialArgs(m)
	if err != nil {
		return "", fmt.Errorf("bad API multiaddr %q: %w", c.APIAddr, err)
	}

	switch network {
	case "tcp", "tcp4", "tcp6":
	default:
		return "", fmt.Errorf("bad API multiaddr %q: network %q is not supported, need tcp", c.APIAddr, network)
	}

	return host, nil
}

// APIURL returns the base URL of the HTTP API, e.g. "http://127.0.0.1:5001/api/v0".
func (c Config) APIURL() (string, error) {
	host, err := c.DialAddr()
	if err != nil {
		return "", err
	}

	return "http://" + host + "/api/v0", nil
}

// Port returns the TCP port part of APIAddr.
func (c Config) Port() string {
	m, err := ma.NewMultiaddr(c.APIAddr)
	if err != nil {
		return ""
	}

	port, err := m.ValueForProtocol(ma.P_TCP)
	if err != nil {
		return ""
	}

	return port
}
