package api

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/counterpick/pkg/metrics"
)

// UpstreamChecker reports the stats source's health.
type UpstreamChecker interface {
	UpstreamHealth(ctx context.Context) map[string]any
}

// HealthHandler handles liveness, metrics and upstream health requests.
type HealthHandler struct {
	upstream UpstreamChecker
	metrics  http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(upstream UpstreamChecker) *HealthHandler {
	return &HealthHandler{
		upstream: upstream,
		metrics:  promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

// HandlePing handles GET /ping.
func (h *HealthHandler) HandlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleHealth handles GET /healthz and GET /metrics by serving the
// Prometheus registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

// HandleUpstream handles GET /upstream/health. Upstream trouble is part of
// the body, never a non-200 status.
func (h *HealthHandler) HandleUpstream(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.upstream.UpstreamHealth(r.Context()))
}
