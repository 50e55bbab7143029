package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()

	if err := c.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v; want no errors", err)
	}

	host, err := c.DialAddr()
	if err != nil || host != "127.0.0.1:5001" {
		t.Errorf("DialAddr() = %q, %v; want %q, nil", host, err, "127.0.0.1:5001")
	}

	u, err := c.APIURL()
	if err != nil || u != "http://127.0.0.1:5001/api/v0" {
		t.Errorf("APIURL() = %q, %v; want %q, nil", u, err, "http://127.0.0.1:5001/api/v0")
	}

	if p := c.Port(); p != "5001" {
		t.Errorf("Port() = %q; want %q", p, "5001")
	}
}

func TestDialAddrIPv6(t *testing.T) {
	c := Default()
	c.APIAddr = "/ip6/::1/tcp/5002"

	host, err := c.DialAddr()
	if err != nil || host != "[::1]:5002" {
		t.Errorf("DialAddr() = %q, %v; want %q, nil", host, err, "[::1]:5002")
	}
}

func TestValidateErrors(t *testing.T) {
	testCases := map[string]func(c *Config){
		"garbage multiaddr": func(c *Config) { c.APIAddr = "127.0.0.1:5001" },
		"udp multiaddr":     func(c *Config) { c.APIAddr = "/ip4/127.0.0.1/udp/5001" },
		"no port":           func(c *Config) { c.APIAddr = "/ip4/127.0.0.1" },
		"relative gateway":  func(c *Config) { c.Gateway = "localhost" },
		"zero timeout":      func(c *Config) { c.Timeout = 0 },
		"zero dial timeout": func(c *Config) { c.DialTimeout = 0 },
		"negative retries":  func(c *Config) { c.MaxRetries = -1 },
		"negative backoff":  func(c *Config) { c.BackoffFactor = -time.Second },
	}

	for name, modify := range testCases {
		c := Default()
		modify(&c)

		if err := c.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil; want an error", name)
		}
	}
}
