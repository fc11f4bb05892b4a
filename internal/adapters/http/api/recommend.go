package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/counterpick/internal/app"
)

// RecommendDependencies defines the interface for recommendation reads.
type RecommendDependencies interface {
	Recommend(ctx context.Context, req service.Request) (service.Recommendation, error)
}

// RecommendHandler handles recommendation requests.
type RecommendHandler struct {
	deps RecommendDependencies
}

// NewRecommendHandler creates a new recommend handler.
func NewRecommendHandler(deps RecommendDependencies) *RecommendHandler {
	return &RecommendHandler{deps: deps}
}

// recommendQuery mirrors the query string of GET /recommend.
type recommendQuery struct {
	Ally  string `validate:"required"`
	Enemy string `validate:"required"`
	Phase string
	Top   int `validate:"min=0"`
}

// HandleRecommend handles GET /recommend?ally=&enemy=&phase=&top=.
// Without a phase the response carries all four phases.
func (h *RecommendHandler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommend"
	q, err := parseRecommendQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.Recommend(r.Context(), service.Request{
		Ally:  q.Ally,
		Enemy: q.Enemy,
		Phase: q.Phase,
		Top:   q.Top,
	})
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func parseRecommendQuery(r *http.Request) (recommendQuery, error) {
	v := r.URL.Query()
	q := recommendQuery{
		Ally:  strings.TrimSpace(v.Get("ally")),
		Enemy: strings.TrimSpace(v.Get("enemy")),
		Phase: strings.TrimSpace(v.Get("phase")),
	}
	top, err := intParam(v.Get("top"), "top")
	if err != nil {
		return q, err
	}
	q.Top = top
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// intParam parses an optional integer query value; empty means zero.
func intParam(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", name, raw)
	}
	return n, nil
}
