package probe

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/counterpick/pkg/logger"
)

// WorkerChannelMultiplier sizes the job channel per worker.
const WorkerChannelMultiplier = 2

const percentageMultiplier = 100

// Run executes a complete probe. It returns the stats and a non-nil error
// when the service is unreachable or any response failed.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Named("probe")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting counterpick probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int("top", cfg.Top),
		logger.String("phase", cfg.Phase),
	)

	if err := checkPing(ctx, client); err != nil {
		return stats, err
	}

	heroes, err := client.Heroes(ctx)
	if err != nil {
		return stats, err
	}
	if len(heroes) < 2 {
		return stats, ErrNoHeroes
	}

	jobs := BuildJobs(heroes, cfg.Requests, cfg.Phase, cfg.Seed)
	results := fire(ctx, client, cfg, jobs)

	latencies := make([]time.Duration, 0, len(results))
	for _, r := range results {
		stats.Requests++
		latencies = append(latencies, r.latency)
		switch {
		case r.err == nil:
			stats.Successful++
			continue
		case r.status != http.StatusOK:
			stats.StatusErrs++
		default:
			stats.Invalid++
		}
		stats.Failed++
		if cfg.Verbose {
			log.Warn(ctx, "request failed",
				logger.String("ally", r.job.Ally),
				logger.String("enemy", r.job.Enemy),
				logger.String("phase", r.job.Phase),
				logger.Int("status", r.status),
				logger.Error(r.err),
			)
		}
	}
	stats.Latency = summarize(latencies)
	stats.Duration = time.Since(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%w: %d of %d requests", ErrVerification, stats.Failed, stats.Requests)
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

func checkPing(ctx context.Context, client *Client) error {
	status, _, err := client.Get(ctx, "/ping")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: /ping status %d", ErrUnhealthy, status)
	}
	return nil
}

type result struct {
	job     Job
	status  int
	latency time.Duration
	err     error
}

// fire runs jobs on cfg.Workers goroutines and collects one result per
// job that was started before ctx ended.
func fire(ctx context.Context, client *Client, cfg *Config, jobs []Job) []result {
	workers := max(1, cfg.Workers)
	jobCh := make(chan Job, workers*WorkerChannelMultiplier)

	var (
		mu      sync.Mutex
		results = make([]result, 0, len(jobs))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobCh)
		for _, j := range jobs {
			select {
			case <-gctx.Done():
				return nil
			case jobCh <- j:
			}
		}
		return nil
	})
	for range workers {
		g.Go(func() error {
			for j := range jobCh {
				r := call(gctx, client, cfg.Top, j)
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func call(ctx context.Context, client *Client, top int, j Job) result {
	start := time.Now()
	status, body, err := client.Get(ctx, recommendPath(j, top))
	r := result{job: j, status: status, latency: time.Since(start)}
	switch {
	case err != nil:
		r.err = err
	case status != http.StatusOK:
		r.err = fmt.Errorf("status %d: %s", status, body)
	default:
		r.err = Verify(j, top, body)
	}
	return r
}

func summarize(ds []time.Duration) LatencySummary {
	if len(ds) == 0 {
		return LatencySummary{}
	}
	sorted := slices.Clone(ds)
	slices.Sort(sorted)
	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	pct := func(p int) time.Duration {
		return sorted[min(len(sorted)-1, len(sorted)*p/percentageMultiplier)]
	}
	return LatencySummary{
		Min: sorted[0],
		Avg: sum / time.Duration(len(sorted)),
		P50: pct(50),
		P95: pct(95),
		Max: sorted[len(sorted)-1],
	}
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, perSecond float64
	if stats.Requests > 0 {
		successRate = float64(stats.Successful) / float64(stats.Requests) * percentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.Requests) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("requests", stats.Requests),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("statusErrors", stats.StatusErrs),
		logger.Int("invalidBodies", stats.Invalid),
		logger.Duration("latencyMin", stats.Latency.Min),
		logger.Duration("latencyAvg", stats.Latency.Avg),
		logger.Duration("latencyP50", stats.Latency.P50),
		logger.Duration("latencyP95", stats.Latency.P95),
		logger.Duration("latencyMax", stats.Latency.Max),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", perSecond),
	)
}
