// Package metrics provides Prometheus metrics for the counterpick recommendation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Breaker state values exported by the breaker gauge.
const (
	BreakerClosed   = 0
	BreakerHalfOpen = 1
	BreakerOpen     = 2
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Recommendation metrics
	recommendationsServed *prometheus.CounterVec
	scoringLatency        prometheus.Histogram
	scoredItems           prometheus.Histogram

	// Metadata cache metrics
	metadataRefreshes       *prometheus.CounterVec
	metadataFetchErrors     *prometheus.CounterVec
	metadataRefreshDuration prometheus.Histogram
	metadataGeneration      prometheus.Gauge
	metadataSnapshotAge     prometheus.Gauge
	metadataHeroes          prometheus.Gauge
	metadataAbilities       prometheus.Gauge

	// Tag inference metrics
	tagCacheLookups      *prometheus.CounterVec
	tagInferenceFailures prometheus.Counter

	// Popularity metrics
	popularityFallbacks   prometheus.Counter
	popularityRowsDropped prometheus.Counter
	itemCatalogSize       prometheus.Gauge

	// Upstream (stats API) metrics
	upstreamRequests   *prometheus.CounterVec
	upstreamLatency    *prometheus.HistogramVec
	upstreamRetries    *prometheus.CounterVec
	breakerState       prometheus.Gauge
	breakerTransitions *prometheus.CounterVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "counterpick",
		subsystem:        "recommender",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often gauge updaters should run.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether recording is active.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	msBuckets := []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 15000}

	m.recommendationsServed = auto.NewCounterVec(
		m.counterOpts("recommendations_total", "Recommendations served by phase (\"all\" for the four-phase view)"),
		[]string{"phase"},
	)
	m.scoringLatency = auto.NewHistogram(m.histogramOpts(
		"scoring_latency_milliseconds", "Scoring engine latency in milliseconds",
		[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	))
	m.scoredItems = auto.NewHistogram(m.histogramOpts(
		"scored_items", "Number of candidate items scored per phase",
		[]float64{0, 5, 10, 25, 50, 100, 200},
	))

	m.metadataRefreshes = auto.NewCounterVec(
		m.counterOpts("metadata_refreshes_total", "Metadata snapshot installs by outcome (complete or partial)"),
		[]string{"outcome"},
	)
	m.metadataFetchErrors = auto.NewCounterVec(
		m.counterOpts("metadata_fetch_errors_total", "Metadata dataset fetches that fell back to empty"),
		[]string{"dataset"},
	)
	m.metadataRefreshDuration = auto.NewHistogram(m.histogramOpts(
		"metadata_refresh_duration_milliseconds", "Wall time of a metadata refresh in milliseconds", msBuckets,
	))
	m.metadataGeneration = auto.NewGauge(m.gaugeOpts("metadata_generation", "Generation of the installed metadata snapshot"))
	m.metadataSnapshotAge = auto.NewGauge(m.gaugeOpts("metadata_snapshot_age_seconds", "Age of the installed metadata snapshot"))
	m.metadataHeroes = auto.NewGauge(m.gaugeOpts("metadata_heroes", "Heroes in the installed metadata snapshot"))
	m.metadataAbilities = auto.NewGauge(m.gaugeOpts("metadata_abilities", "Abilities in the installed metadata snapshot"))

	m.tagCacheLookups = auto.NewCounterVec(
		m.counterOpts("tag_cache_lookups_total", "Inferred tag memo lookups by result (hit or miss)"),
		[]string{"result"},
	)
	m.tagInferenceFailures = auto.NewCounter(m.counterOpts(
		"tag_inference_failures_total", "Hero tag inferences that degraded to an empty inferred set",
	))

	m.popularityFallbacks = auto.NewCounter(m.counterOpts(
		"popularity_fallbacks_total", "Popularity lookups answered with empty phases after an upstream failure",
	))
	m.popularityRowsDropped = auto.NewCounter(m.counterOpts(
		"popularity_rows_dropped_total", "Popularity rows dropped because the item id was not an integer",
	))
	m.itemCatalogSize = auto.NewGauge(m.gaugeOpts("item_catalog_size", "Items in the cached id to name catalog"))

	m.upstreamRequests = auto.NewCounterVec(
		m.counterOpts("upstream_requests_total", "Stats API calls by endpoint and outcome"),
		[]string{"endpoint", "outcome"},
	)
	m.upstreamLatency = auto.NewHistogramVec(
		m.histogramOpts("upstream_latency_milliseconds", "Stats API call latency in milliseconds", msBuckets),
		[]string{"endpoint"},
	)
	m.upstreamRetries = auto.NewCounterVec(
		m.counterOpts("upstream_retries_total", "Stats API retry attempts by endpoint"),
		[]string{"endpoint"},
	)
	m.breakerState = auto.NewGauge(m.gaugeOpts("upstream_breaker_state", "Circuit breaker state (0 closed, 1 half-open, 2 open)"))
	m.breakerTransitions = auto.NewCounterVec(
		m.counterOpts("upstream_breaker_transitions_total", "Circuit breaker state transitions"),
		[]string{"from", "to"},
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", msBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by HTTP endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of failed operations in milliseconds", msBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

func on() bool { return globalManager != nil && globalManager.enabled }

// RecordRecommendation counts a served recommendation for phase.
func RecordRecommendation(phase string) {
	if on() {
		globalManager.recommendationsServed.WithLabelValues(phase).Inc()
	}
}

// RecordScoring records one scoring pass.
func RecordScoring(latencyMs float64, items int) {
	if on() {
		globalManager.scoringLatency.Observe(latencyMs)
		globalManager.scoredItems.Observe(float64(items))
	}
}

// RecordMetadataRefresh records a snapshot install.
func RecordMetadataRefresh(outcome string, durationMs float64) {
	if on() {
		globalManager.metadataRefreshes.WithLabelValues(outcome).Inc()
		globalManager.metadataRefreshDuration.Observe(durationMs)
	}
}

// RecordMetadataFetchError counts a dataset that fell back to empty.
func RecordMetadataFetchError(dataset string) {
	if on() {
		globalManager.metadataFetchErrors.WithLabelValues(dataset).Inc()
	}
}

// UpdateMetadataSnapshot publishes the installed snapshot's shape.
func UpdateMetadataSnapshot(generation uint64, heroes, abilities int) {
	if on() {
		globalManager.metadataGeneration.Set(float64(generation))
		globalManager.metadataHeroes.Set(float64(heroes))
		globalManager.metadataAbilities.Set(float64(abilities))
	}
}

// UpdateMetadataSnapshotAge publishes the snapshot age.
func UpdateMetadataSnapshotAge(age time.Duration) {
	if on() {
		globalManager.metadataSnapshotAge.Set(age.Seconds())
	}
}

// RecordTagCacheLookup counts a memo hit or miss.
func RecordTagCacheLookup(hit bool) {
	if !on() {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.tagCacheLookups.WithLabelValues(result).Inc()
}

// RecordTagInferenceFailure counts a hero whose inference was abandoned.
func RecordTagInferenceFailure() {
	if on() {
		globalManager.tagInferenceFailures.Inc()
	}
}

// RecordPopularityFallback counts an empty popularity answer.
func RecordPopularityFallback() {
	if on() {
		globalManager.popularityFallbacks.Inc()
	}
}

// RecordPopularityRowsDropped counts rows with malformed item ids.
func RecordPopularityRowsDropped(n int) {
	if on() && n > 0 {
		globalManager.popularityRowsDropped.Add(float64(n))
	}
}

// UpdateItemCatalogSize publishes the catalog size.
func UpdateItemCatalogSize(n int) {
	if on() {
		globalManager.itemCatalogSize.Set(float64(n))
	}
}

// RecordUpstreamRequest records one stats API call.
func RecordUpstreamRequest(endpoint, outcome string, latencyMs float64) {
	if on() {
		globalManager.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
		globalManager.upstreamLatency.WithLabelValues(endpoint).Observe(latencyMs)
	}
}

// RecordUpstreamRetry counts a retry attempt.
func RecordUpstreamRetry(endpoint string) {
	if on() {
		globalManager.upstreamRetries.WithLabelValues(endpoint).Inc()
	}
}

// RecordBreakerTransition records a breaker state change.
func RecordBreakerTransition(from, to string, state int) {
	if on() {
		globalManager.breakerTransitions.WithLabelValues(from, to).Inc()
		globalManager.breakerState.Set(float64(state))
	}
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if on() {
		globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if on() {
		globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records errors by component and type.
func RecordErrorByComponent(component, errorType string) {
	if on() {
		globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType records errors by type and severity.
func RecordErrorByType(errorType, severity string) {
	if on() {
		globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records errors by HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if on() {
		globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorLatency records latency for failed operations.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if on() {
		globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

// UpdateSystemMemoryUsage updates the system memory usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	if on() {
		globalManager.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount updates the goroutine count gauge.
func UpdateSystemGoroutineCount(count int) {
	if on() {
		globalManager.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	if on() {
		globalManager.systemGCPauseTime.Observe(pauseMs)
	}
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
