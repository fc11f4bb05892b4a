package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/counterpick/internal/app"
	"github.com/okian/counterpick/internal/domain/hero"
	"github.com/okian/counterpick/internal/domain/tags"
)

// HeroesDependencies defines the per-hero read operations.
type HeroesDependencies interface {
	Popularity(ctx context.Context, ref, phase string, named bool) (service.PopularityView, error)
	HeroTags(ctx context.Context, ref string) (tags.Explanation, error)
	ItemTimings(ctx context.Context, ref string, q service.TimingQuery) (service.TimingsView, error)
	Heroes() []hero.Hero
}

// HeroesHandler handles /heroes requests.
type HeroesHandler struct {
	deps HeroesDependencies
}

// NewHeroesHandler creates a new heroes handler.
func NewHeroesHandler(deps HeroesDependencies) *HeroesHandler {
	return &HeroesHandler{deps: deps}
}

// HandleList handles GET /heroes.
func (h *HeroesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	heroes := h.deps.Heroes()
	writeJSON(w, http.StatusOK, map[string]any{"count": len(heroes), "heroes": heroes})
}

// HandlePopularity handles GET /heroes/{hero}/itemPopularity?named=&phase=.
// Items are named by default.
func (h *HeroesHandler) HandlePopularity(w http.ResponseWriter, r *http.Request) {
	const op = "api.item_popularity"
	named := true
	if raw := strings.TrimSpace(r.URL.Query().Get("named")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		named = b
	}
	view, err := h.deps.Popularity(r.Context(), r.PathValue("hero"), r.URL.Query().Get("phase"), named)
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// timingsQuery mirrors the query string of GET /heroes/{hero}/itemTimings.
type timingsQuery struct {
	MinCount int `validate:"min=0"`
	Limit    int `validate:"min=0,max=1000"`
}

// HandleTimings handles GET /heroes/{hero}/itemTimings?minCount=&limit=.
func (h *HeroesHandler) HandleTimings(w http.ResponseWriter, r *http.Request) {
	const op = "api.item_timings"
	v := r.URL.Query()
	var q timingsQuery
	var err error
	if q.MinCount, err = intParam(v.Get("minCount"), "minCount"); err == nil {
		q.Limit, err = intParam(v.Get("limit"), "limit")
	}
	if err == nil {
		err = validate.Struct(q)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	view, err := h.deps.ItemTimings(r.Context(), r.PathValue("hero"), service.TimingQuery{MinCount: q.MinCount, Limit: q.Limit})
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleTags handles GET /heroes/{hero}/tags.
func (h *HeroesHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	exp, err := h.deps.HeroTags(r.Context(), r.PathValue("hero"))
	if err != nil {
		writeFailure(r.Context(), w, "api.hero_tags", err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}
