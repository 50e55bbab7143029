package main

import (
	"fmt"
	stdlog "log"
	"os"

	"github.com/op/go-logging"
	"github.com/spf13/cobra"

	"github.com/YuriyNasretdinov/ipfsprobe/config"
	"github.com/YuriyNasretdinov/ipfsprobe/integration"
)

var log = logging.MustGetLogger("main")

var stderrLogFormat = logging.MustStringFormatter(
	`%{color:reset}%{color}%{time:15:04:05.000} [%{module}] [%{level}] %{message}`,
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:           "ipfsprobe",
	Short:         "Checks that the local IPFS daemon answers its HTTP API",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cfg.Debug)

		log.Debugf("Probing daemon API at %s", cfg.APIAddr)

		// The result of the check is only reported, it never changes the exit code.
		_, err := integration.Run(cmd.Context(), integration.RunArgs{
			Config:      cfg,
			Out:         os.Stdout,
			DebugLogger: stdlog.New(os.Stderr, "client: ", stdlog.LstdFlags|stdlog.Lmicroseconds),
		})
		return err
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfg.APIAddr, "api", cfg.APIAddr, "Multiaddr of the daemon HTTP API")
	f.StringVar(&cfg.Gateway, "gateway", cfg.Gateway, "Local gateway URL used for the printed links")
	f.StringVar(&cfg.PublicGateway, "public-gateway", cfg.PublicGateway, "Public gateway URL used for the printed links")
	f.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "Timeout of the port check")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Timeout of every API request")
	f.IntVar(&cfg.MaxRetries, "retries", cfg.MaxRetries, "How many times to retry a request that failed with 502, 503 or 504")
	f.DurationVar(&cfg.BackoffFactor, "backoff", cfg.BackoffFactor, "Wait before the first retry, doubled for every next one")
	f.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Log every API call to stderr")
}

func setupLogging(debug bool) {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, stderrLogFormat))

	if debug {
		leveled.SetLevel(logging.DEBUG, "")
	} else {
		leveled.SetLevel(logging.WARNING, "")
	}

	logging.SetBackend(leveled)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
