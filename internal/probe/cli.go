package probe

import (
	"fmt"
	"os"

	"github.com/okian/counterpick/pkg/logger"
)

// SetupLogging initializes the global logger for the probe.
func SetupLogging(format string, verbose bool) error {
	if err := logger.Init(logger.WithFormat(format)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return nil
}

// ShowHelp prints usage information for the probe.
func ShowHelp() {
	os.Stdout.WriteString(`counterpick probe
=================

Checks /ping, then fires concurrent /recommend requests for random hero
pairs and verifies every response.

Usage:
  go run ./cmd/probe [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -requests int
        Number of /recommend requests (default 200)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -top int
        top query value; 0 leaves it to the server (default 0)
  -phase string
        Fixed phase; empty rotates the all-phase view and each phase
  -timeout duration
        HTTP request timeout (default 30s)
  -seed uint
        Pair selection seed (default 1)
  -log-format string
        text or json (default "text")
  -verbose
        Log every failed request
  -help
        Show this help message

Examples:
  go run ./cmd/probe -requests 1000 -workers 16
  go run ./cmd/probe -phase late -top 3 -verbose
`)
}
