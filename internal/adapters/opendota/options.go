package opendota

import (
	"net/http"
	"time"

	"github.com/okian/counterpick/pkg/logger"
)

// Default client settings.
const (
	DefaultBaseURL         = "https://api.opendota.com/api"
	defaultTimeout         = 15 * time.Second
	defaultRetries         = 2
	defaultRetryBase       = 250 * time.Millisecond
	defaultRatePerMinute   = 60
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
	maxErrorBody           = 512
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL points the client at another API root, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithAPIKey sets the api_key query parameter sent on every call.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets the retry count and the base of the exponential backoff.
func WithRetries(n int, base time.Duration) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
		if base > 0 {
			c.retryBase = base
		}
	}
}

// WithRatePerMinute caps outbound calls. Zero or less disables the limiter.
func WithRatePerMinute(n int) Option {
	return func(c *Client) { c.ratePerMinute = n }
}

// WithBreaker sets the consecutive-failure threshold and the open-state cooldown.
func WithBreaker(failures int, cooldown time.Duration) Option {
	return func(c *Client) {
		if failures > 0 {
			c.breakerFailures = uint32(failures)
		}
		if cooldown > 0 {
			c.breakerCooldown = cooldown
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
