package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/counterpick/internal/probe"
	"github.com/okian/counterpick/pkg/logger"
)

// Default configuration constants.
const (
	defaultRequests     = 200
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		requests  = flag.Int("requests", defaultRequests, "Number of /recommend requests")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		top       = flag.Int("top", 0, "top query value; 0 leaves it to the server")
		phase     = flag.String("phase", "", "Fixed phase; empty rotates all phases")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed      = flag.Uint64("seed", 1, "Pair selection seed")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every failed request")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		probe.ShowHelp()
		return
	}

	if err := probe.SetupLogging(*logFormat, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultProbeTimeout)
	defer cancel()

	cfg := &probe.Config{
		BaseURL:  *baseURL,
		Requests: *requests,
		Workers:  *workers,
		Top:      *top,
		Phase:    *phase,
		Timeout:  *timeout,
		Seed:     *seed,
		Verbose:  *verbose,
	}

	if _, err := probe.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "probe failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
