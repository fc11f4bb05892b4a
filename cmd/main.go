package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/counterpick/internal/adapters/http/api"
	"github.com/okian/counterpick/internal/adapters/http/swagger"
	"github.com/okian/counterpick/internal/adapters/opendota"
	app "github.com/okian/counterpick/internal/app"
	"github.com/okian/counterpick/internal/config"
	"github.com/okian/counterpick/internal/domain/rules"
	"github.com/okian/counterpick/pkg/logger"
	"github.com/okian/counterpick/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr since the logger format depends on config
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Rule tables are the only fatal startup dependency.
	tables, err := loadRules(ctx, cfg)
	if err != nil {
		loggerInstance.Fatal(ctx, "failed to load rule tables", logger.Error(err))
	}

	svc, err := newService(ctx, cfg, tables, loggerInstance)
	if err != nil {
		loggerInstance.Fatal(ctx, "failed to create service", logger.Error(err))
	}
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Fatal(ctx, "failed to start service", logger.Error(err))
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	handler, err := buildHandler(ctx, cfg, svc)
	if err != nil {
		loggerInstance.Fatal(ctx, "failed to build HTTP handler", logger.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

func loadRules(ctx context.Context, cfg *config.Config) (*rules.Tables, error) {
	return rules.Load(ctx,
		rules.WithHeroTagsFile(cfg.HeroTagsFile),
		rules.WithTagRulesFile(cfg.TagRulesFile),
		rules.WithBoostsFile(cfg.TagBoostsFile),
	)
}

// newService wires the OpenDota client and the recommendation service from cfg.
func newService(ctx context.Context, cfg *config.Config, tables *rules.Tables, l logger.Logger) (*app.Service, error) {
	client := opendota.New(
		opendota.WithBaseURL(cfg.OpenDotaBaseURL),
		opendota.WithAPIKey(cfg.OpenDotaAPIKey),
		opendota.WithTimeout(cfg.OpenDotaTimeout()),
		opendota.WithRetries(cfg.OpenDotaRetries, cfg.OpenDotaRetryBase()),
		opendota.WithRatePerMinute(cfg.OpenDotaRatePerMinute),
		opendota.WithBreaker(cfg.OpenDotaBreakerFailures, cfg.OpenDotaBreakerCooldown()),
		opendota.WithLogger(l.Named("opendota")),
	)
	return app.New(ctx,
		app.WithLogger(l.Named("service")),
		app.WithUpstream(client),
		app.WithRules(tables),
		app.WithTop(cfg.DefaultTop, cfg.MaxTop),
		app.WithMetadata(cfg.MetadataTTL(), cfg.MetadataFetchTimeout()),
		app.WithPopularityTimeout(cfg.PopularityTimeout()),
		app.WithExplorerTimeout(cfg.ExplorerTimeout()),
		app.WithHealthTimeout(cfg.HealthTimeout()),
	)
}

// buildHandler registers the API and docs routes and wraps them in the
// middleware chain.
func buildHandler(ctx context.Context, cfg *config.Config, svc api.Dependencies) (http.Handler, error) {
	mux := http.NewServeMux()

	// Register ReDoc under /api-docs
	swagger.Register(ctx, mux)

	api.NewServer(svc).Register(ctx, mux)

	return api.Chain(mux, api.ChainConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RatePerMinute:  cfg.RateLimitPerMinute,
		Gzip:           cfg.GzipEnabled,
	})
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Calculate average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
