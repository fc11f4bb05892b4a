// Package opendota is the client for the OpenDota public API, the stats
// source for hero metadata, item catalogs, item popularity and explorer
// queries.
package opendota

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/okian/counterpick/internal/domain/model"
	"github.com/okian/counterpick/pkg/logger"
	"github.com/okian/counterpick/pkg/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Endpoint labels used in logs and metrics.
const (
	EndpointHeroStats      = "heroStats"
	EndpointHeroAbilities  = "heroAbilities"
	EndpointAbilities      = "abilities"
	EndpointItems          = "items"
	EndpointItemPopularity = "itemPopularity"
	EndpointExplorer       = "explorer"
	EndpointHealth         = "health"
)

// Client calls the stats source. Every call waits on the outbound limiter,
// runs through the circuit breaker and retries transient failures with
// exponential backoff. It is safe for concurrent use.
type Client struct {
	baseURL         string
	apiKey          string
	http            *http.Client
	timeout         time.Duration
	retries         int
	retryBase       time.Duration
	ratePerMinute   int
	breakerFailures uint32
	breakerCooldown time.Duration
	logger          logger.Logger

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:         DefaultBaseURL,
		timeout:         defaultTimeout,
		retries:         defaultRetries,
		retryBase:       defaultRetryBase,
		ratePerMinute:   defaultRatePerMinute,
		breakerFailures: defaultBreakerFailures,
		breakerCooldown: defaultBreakerCooldown,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.baseURL = strings.TrimRight(c.baseURL, "/")
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.logger == nil {
		c.logger = logger.Named("opendota")
	}
	if c.ratePerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(c.ratePerMinute)/60), c.ratePerMinute)
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "opendota",
		MaxRequests: 1,
		Timeout:     c.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
			metrics.RecordBreakerTransition(from.String(), to.String(), breakerGauge(to))
		},
		// Caller mistakes (4xx other than 429) say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return !se.retryable()
			}
			return err == nil
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
	})
	return c
}

func breakerGauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	default:
		return metrics.BreakerClosed
	}
}

// BreakerState reports the circuit breaker state: closed, half-open or open.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// HeroStats fetches the hero roster.
func (c *Client) HeroStats(ctx context.Context) ([]model.HeroMeta, error) {
	b, err := c.call(ctx, EndpointHeroStats, http.MethodGet, "/heroStats", nil)
	if err != nil {
		return nil, err
	}
	return decode(EndpointHeroStats, b, decodeHeroStats)
}

// HeroAbilities fetches hero slug -> ability keys. Keys are normalized by
// stripping the engine prefix.
func (c *Client) HeroAbilities(ctx context.Context) (map[string][]string, error) {
	b, err := c.call(ctx, EndpointHeroAbilities, http.MethodGet, "/constants/hero_abilities", nil)
	if err != nil {
		return nil, err
	}
	return decode(EndpointHeroAbilities, b, decodeHeroAbilities)
}

// Abilities fetches ability key -> details.
func (c *Client) Abilities(ctx context.Context) (map[string]model.Ability, error) {
	b, err := c.call(ctx, EndpointAbilities, http.MethodGet, "/constants/abilities", nil)
	if err != nil {
		return nil, err
	}
	return decode(EndpointAbilities, b, decodeAbilities)
}

// Items fetches the item catalog keyed by numeric item id.
func (c *Client) Items(ctx context.Context) (map[int]model.Item, error) {
	b, err := c.call(ctx, EndpointItems, http.MethodGet, "/constants/items", nil)
	if err != nil {
		return nil, err
	}
	return decode(EndpointItems, b, decodeItems)
}

// ItemPopularity fetches raw per-phase item purchase counts for a hero.
func (c *Client) ItemPopularity(ctx context.Context, heroID int) (model.RawPopularity, error) {
	path := "/heroes/" + strconv.Itoa(heroID) + "/itemPopularity"
	b, err := c.call(ctx, EndpointItemPopularity, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return decode(EndpointItemPopularity, b, decodePopularity)
}

// Explorer runs a SQL query against the public explorer and returns its
// rows. A 404 is an empty result, not an error.
func (c *Client) Explorer(ctx context.Context, sql string) ([]json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"sql": sql})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, EndpointExplorer, err)
	}
	b, err := c.call(ctx, EndpointExplorer, http.MethodPost, "/explorer", body)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return []json.RawMessage{}, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []json.RawMessage{}, nil
	}
	resp, err := decode(EndpointExplorer, b, func(b []byte) (explorerResponse, error) {
		var r explorerResponse
		err := json.Unmarshal(b, &r)
		return r, err
	})
	if err != nil {
		return nil, err
	}
	if resp.Rows == nil {
		return []json.RawMessage{}, nil
	}
	return resp.Rows, nil
}

// Health fetches the stats source's own health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	b, err := c.call(ctx, EndpointHealth, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	return decode(EndpointHealth, b, func(b []byte) (map[string]any, error) {
		var m map[string]any
		err := json.Unmarshal(b, &m)
		return m, err
	})
}

func decode[T any](endpoint string, b []byte, fn func([]byte) (T, error)) (T, error) {
	v, err := fn(b)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %w", ErrDecode, endpoint, err)
	}
	return v, nil
}

func (c *Client) call(ctx context.Context, endpoint, method, path string, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: rate limit wait: %w", ErrUpstream, endpoint, err)
		}
	}

	start := time.Now()
	b, err := c.breaker.Execute(func() ([]byte, error) {
		return c.withRetry(ctx, endpoint, method, path, body)
	})
	ms := float64(time.Since(start).Microseconds()) / 1000

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordUpstreamRequest(endpoint, "rejected", ms)
		return nil, fmt.Errorf("%w: %w: %s", ErrUpstream, ErrCircuitOpen, endpoint)
	case err != nil:
		metrics.RecordUpstreamRequest(endpoint, "error", ms)
		metrics.RecordErrorByComponent("opendota", endpoint)
		return nil, err
	}
	metrics.RecordUpstreamRequest(endpoint, "ok", ms)
	return b, nil
}

func (c *Client) withRetry(ctx context.Context, endpoint, method, path string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			metrics.RecordUpstreamRetry(endpoint)
			t := time.NewTimer(c.retryBase << (attempt - 1))
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, endpoint, ctx.Err())
			case <-t.C:
			}
		}

		b, err := c.do(ctx, endpoint, method, path, body)
		if err == nil {
			return b, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil {
			return nil, err
		}
		c.logger.Debug(ctx, "upstream call failed, retrying",
			logger.String("endpoint", endpoint),
			logger.Int("attempt", attempt+1),
			logger.Error(err),
		)
	}
	return nil, lastErr
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.retryable()
	}
	return true
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body []byte) ([]byte, error) {
	u, err := c.url(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, endpoint, err)
	}

	var rdr io.Reader = http.NoBody
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: create request: %w", ErrUpstream, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read body: %w", ErrUpstream, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Body: msg}
	}
	return data, nil
}

func (c *Client) url(path string) (string, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return "", err
	}
	if c.apiKey != "" {
		q := u.Query()
		q.Set("api_key", c.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
