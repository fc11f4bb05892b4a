package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/counterpick/internal/adapters/http/api"
	service "github.com/okian/counterpick/internal/app"
	"github.com/okian/counterpick/internal/domain/hero"
	"github.com/okian/counterpick/internal/domain/model"
	"github.com/okian/counterpick/internal/domain/tags"
	"github.com/okian/counterpick/internal/domain/types"
	"github.com/okian/counterpick/pkg/logger"
)

func init() { _ = logger.Init() }

type mockDependencies struct {
	recommendErr error
	lastRequest  service.Request
	calls        int

	lastNamed  bool
	lastPhase  string
	lastTiming service.TimingQuery
}

func (m *mockDependencies) Recommend(_ context.Context, req service.Request) (service.Recommendation, error) {
	m.calls++
	m.lastRequest = req
	if m.recommendErr != nil {
		return service.Recommendation{}, m.recommendErr
	}
	axe, _ := hero.BySlug("axe")
	jugg, _ := hero.BySlug("juggernaut")
	return service.Recommendation{Single: &service.PhaseRecommendation{
		Ally:            jugg,
		Enemy:           axe,
		Phase:           model.PhaseEarly,
		Recommendations: types.Ranking{{Item: "Phase Boots", Count: 40}},
	}}, nil
}

func (m *mockDependencies) Popularity(_ context.Context, ref, phase string, named bool) (service.PopularityView, error) {
	m.calls++
	m.lastNamed = named
	m.lastPhase = phase
	h, err := hero.Resolve(ref)
	if err != nil {
		return service.PopularityView{}, fmt.Errorf("%w: %w", service.ErrInvalidRequest, err)
	}
	return service.PopularityView{Hero: h, Named: named, Phases: map[string]map[string]int{"early_game_items": {"Phase Boots": 3}}}, nil
}

func (m *mockDependencies) HeroTags(_ context.Context, ref string) (tags.Explanation, error) {
	m.calls++
	return tags.Explanation{Hero: ref, Generation: 1}, nil
}

func (m *mockDependencies) ItemTimings(_ context.Context, ref string, q service.TimingQuery) (service.TimingsView, error) {
	m.calls++
	m.lastTiming = q
	h, _ := hero.Resolve(ref)
	return service.TimingsView{Hero: h, MinCount: q.MinCount, Limit: q.Limit, Timings: []types.ItemTiming{}}, nil
}

func (m *mockDependencies) UpstreamHealth(context.Context) map[string]any {
	return map[string]any{"status": "unavailable"}
}

func (m *mockDependencies) Heroes() []hero.Hero { return hero.All() }

func (m *mockDependencies) GetStats() map[string]any {
	return map[string]any{"metadataGeneration": 3}
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return mux
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
	return body
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("Then ping answers ok", func() {
			w := get(mux, "/ping")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then healthz and metrics serve the registry", func() {
			So(get(mux, "/healthz").Code, ShouldEqual, http.StatusOK)
			So(get(mux, "/metrics").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are encoded as JSON", func() {
			w := get(mux, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, `"metadataGeneration":3`)
		})

		Convey("Then upstream health is always 200", func() {
			w := get(mux, "/upstream/health")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "unavailable")
		})

		Convey("Then the hero table is listed", func() {
			w := get(mux, "/heroes")
			So(w.Code, ShouldEqual, http.StatusOK)
			var body struct {
				Count  int         `json:"count"`
				Heroes []hero.Hero `json:"heroes"`
			}
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body.Count, ShouldEqual, len(hero.All()))
			So(body.Heroes, ShouldNotBeEmpty)
		})

		Convey("Then unknown routes return a JSON 404", func() {
			w := get(mux, "/unknown")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w)["code"], ShouldEqual, "not_found")
		})
	})
}

func TestRecommendHandler(t *testing.T) {
	Convey("Given the recommend route", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When the query is complete", func() {
			w := get(mux, "/recommend?ally=juggernaut&enemy=axe&phase=early&top=3")

			Convey("Then the request is forwarded and the ranking returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastRequest, ShouldResemble, service.Request{Ally: "juggernaut", Enemy: "axe", Phase: "early", Top: 3})
				So(w.Body.String(), ShouldContainSubstring, `"recommendations":{"Phase Boots":40}`)
			})
		})

		Convey("When the enemy is missing", func() {
			w := get(mux, "/recommend?ally=juggernaut")

			Convey("Then it is a bad request and the service is not called", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
				So(deps.calls, ShouldEqual, 0)
			})
		})

		Convey("When top is not an integer", func() {
			w := get(mux, "/recommend?ally=juggernaut&enemy=axe&top=many")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "top must be an integer")
			})
		})

		Convey("When top is negative", func() {
			w := get(mux, "/recommend?ally=juggernaut&enemy=axe&top=-1")

			Convey("Then validation rejects it", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.calls, ShouldEqual, 0)
			})
		})

		Convey("When the service reports a caller mistake", func() {
			deps.recommendErr = fmt.Errorf("%w: ally %q: %w", service.ErrInvalidRequest, "qwerty123", hero.ErrUnknownHero)
			w := get(mux, "/recommend?ally=qwerty123&enemy=axe")

			Convey("Then it maps to 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "unknown hero")
			})
		})

		Convey("When the service fails unexpectedly", func() {
			deps.recommendErr = errors.New("boom")
			w := get(mux, "/recommend?ally=juggernaut&enemy=axe")

			Convey("Then it maps to 500 without leaking the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "internal_error")
				So(body["message"], ShouldNotContainSubstring, "boom")
			})
		})
	})
}

func TestHeroesHandler(t *testing.T) {
	Convey("Given the per-hero routes", t, func() {
		deps := &mockDependencies{}
		mux := newMux(deps)

		Convey("When popularity is requested without named", func() {
			w := get(mux, "/heroes/axe/itemPopularity?phase=early")

			Convey("Then names are on by default", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastNamed, ShouldBeTrue)
				So(deps.lastPhase, ShouldEqual, "early")
			})
		})

		Convey("When raw popularity is requested", func() {
			w := get(mux, "/heroes/2/itemPopularity?named=false")

			Convey("Then named is false", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastNamed, ShouldBeFalse)
			})
		})

		Convey("When named is not a boolean", func() {
			w := get(mux, "/heroes/axe/itemPopularity?named=perhaps")

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.calls, ShouldEqual, 0)
			})
		})

		Convey("When the hero is unknown", func() {
			w := get(mux, "/heroes/qwerty123/itemPopularity")

			Convey("Then it maps to 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When timings are requested", func() {
			w := get(mux, "/heroes/axe/itemTimings?minCount=7&limit=20")

			Convey("Then the bounds are forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastTiming, ShouldResemble, service.TimingQuery{MinCount: 7, Limit: 20})
			})
		})

		Convey("When a timing bound is malformed", func() {
			So(get(mux, "/heroes/axe/itemTimings?minCount=x").Code, ShouldEqual, http.StatusBadRequest)
			So(get(mux, "/heroes/axe/itemTimings?limit=5000").Code, ShouldEqual, http.StatusBadRequest)
			So(deps.calls, ShouldEqual, 0)
		})

		Convey("When tags are requested", func() {
			w := get(mux, "/heroes/axe/tags")

			Convey("Then the explanation is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"axe"`)
			})
		})
	})
}

func TestChain(t *testing.T) {
	Convey("Given the middleware chain", t, func() {
		var seenID string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = logger.RequestID(r.Context())
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(strings.Repeat("counter ", 200)))
		})

		Convey("When a request id is supplied", func() {
			h, err := api.Chain(inner, api.ChainConfig{})
			So(err, ShouldBeNil)
			req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "req-7")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is echoed and placed on the context", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "req-7")
				So(seenID, ShouldEqual, "req-7")
			})
		})

		Convey("When no request id is supplied", func() {
			h, _ := api.Chain(inner, api.ChainConfig{})
			w := get(h, "/x")

			Convey("Then a UUID is minted", func() {
				So(len(w.Header().Get(api.RequestIDHeader)), ShouldEqual, 36)
				So(seenID, ShouldEqual, w.Header().Get(api.RequestIDHeader))
			})
		})

		Convey("When a cross-origin request arrives", func() {
			h, _ := api.Chain(inner, api.ChainConfig{})
			req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
			req.Header.Set("Origin", "https://ui.example")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then any origin is allowed by default", func() {
				So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
			})
		})

		Convey("When the per-IP budget is exhausted", func() {
			h, _ := api.Chain(inner, api.ChainConfig{RatePerMinute: 2})
			codes := make([]int, 0, 3)
			for range 3 {
				codes = append(codes, get(h, "/x").Code)
			}

			Convey("Then the third request is rejected with a JSON 429", func() {
				So(codes, ShouldResemble, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests})
			})
		})

		Convey("When gzip is enabled and the client accepts it", func() {
			h, err := api.Chain(inner, api.ChainConfig{Gzip: true})
			So(err, ShouldBeNil)
			req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
			req.Header.Set("Accept-Encoding", "gzip")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then the body is compressed", func() {
				So(w.Header().Get("Content-Encoding"), ShouldEqual, "gzip")
			})
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("Given operation errors", t, func() {
		cause := errors.New("bad top")

		Convey("Then WrapKind unwraps to both kind and cause", func() {
			err := api.WrapKind("api.recommend", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.recommend: bad request: bad top")

			var op *api.OpError
			So(errors.As(err, &op), ShouldBeTrue)
			So(op.Op, ShouldEqual, "api.recommend")
		})

		Convey("Then Wrap and WrapKind keep nil as nil", func() {
			So(api.Wrap("op", nil), ShouldBeNil)
			So(api.WrapKind("op", api.ErrBadRequest, nil), ShouldBeNil)
		})

		Convey("Then NewKind carries only the kind", func() {
			err := api.NewKind("api.rate_limit", api.ErrRateLimited)
			So(errors.Is(err, api.ErrRateLimited), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.rate_limit: rate limited")
			So(api.Wrap("op", cause).Error(), ShouldEqual, "op: bad top")
		})
	})
}
