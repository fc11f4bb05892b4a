// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"

	service "github.com/okian/counterpick/internal/app"
	"github.com/okian/counterpick/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RecommendDependencies
	HeroesDependencies
	UpstreamChecker
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	recommendHandler *RecommendHandler
	heroesHandler    *HeroesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(deps),
		statsHandler:     NewStatsHandler(deps),
		recommendHandler: NewRecommendHandler(deps),
		heroesHandler:    NewHeroesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /ping", MetricsMiddleware(s.healthHandler.HandlePing, "ping"))
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleHealth, "metrics"))
	mux.HandleFunc("GET /upstream/health", MetricsMiddleware(s.healthHandler.HandleUpstream, "upstream_health"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /recommend", MetricsMiddleware(s.recommendHandler.HandleRecommend, "recommend"))
	mux.HandleFunc("GET /heroes", MetricsMiddleware(s.heroesHandler.HandleList, "heroes"))
	mux.HandleFunc("GET /heroes/{hero}/itemPopularity", MetricsMiddleware(s.heroesHandler.HandlePopularity, "item_popularity"))
	mux.HandleFunc("GET /heroes/{hero}/itemTimings", MetricsMiddleware(s.heroesHandler.HandleTimings, "item_timings"))
	mux.HandleFunc("GET /heroes/{hero}/tags", MetricsMiddleware(s.heroesHandler.HandleTags, "hero_tags"))
	mux.HandleFunc("/", MetricsMiddleware(handleNotFound, "not_found"))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", NewKind(r.Method+" "+r.URL.Path, ErrNotFound))
}

var validate = validator.New()

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an operation error onto a status code. Caller mistakes
// become 400; anything else is logged and reported as 500.
func writeFailure(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrBadRequest) || errors.Is(err, service.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	logger.Named("api").Error(ctx, "request failed", logger.Error(Wrap(op, err)))
	writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
}
