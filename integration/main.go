package integration

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/YuriyNasretdinov/ipfsprobe/client"
	"github.com/YuriyNasretdinov/ipfsprobe/config"
	"github.com/YuriyNasretdinov/ipfsprobe/probe"
)

// RunArgs are the dependencies of Run.
type RunArgs struct {
	Config config.Config
	Out    io.Writer

	// DebugLogger receives the API call log when Config.Debug is set.
	DebugLogger *log.Logger
}

// NewHTTPClient creates the single HTTP client used for all daemon calls.
func NewHTTPClient(cfg config.Config) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Run checks the config, wires the API client into the probe
// and runs it. Only an invalid config is returned as an error;
// the outcome of the check itself is in probe.Result.
func Run(ctx context.Context, a RunArgs) (probe.Result, error) {
	if err := a.Config.Validate(); err != nil {
		return probe.Result{}, err
	}

	apiURL, err := a.Config.APIURL()
	if err != nil {
		return probe.Result{}, err
	}

	dialAddr, err := a.Config.DialAddr()
	if err != nil {
		return probe.Result{}, err
	}

	cl := client.NewRaw(NewHTTPClient(a.Config), apiURL)
	cl.SetRetryPolicy(a.Config.MaxRetries, a.Config.BackoffFactor, a.Config.RetryStatuses)
	if a.Config.Debug {
		cl.Logger = a.DebugLogger
		cl.SetDebug(true)
	}

	reachable := func() bool { return client.Reachable(dialAddr, a.Config.DialTimeout) }

	return probe.New(a.Config, cl, reachable, a.Out).Run(ctx), nil
}
