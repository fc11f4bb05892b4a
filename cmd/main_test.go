package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/counterpick/internal/config"
	"github.com/okian/counterpick/pkg/logger"
	"github.com/okian/counterpick/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() { _ = logger.Init() }

// newTestConfig points the client at a stub upstream that answers 404.
func newTestConfig(hits *atomic.Int64) (*config.Config, func()) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.NotFound(w, nil)
	}))
	cfg := config.New(context.Background())
	cfg.OpenDotaBaseURL = upstream.URL
	cfg.OpenDotaRetries = 0
	cfg.OpenDotaRatePerMinute = 0
	cfg.RateLimitPerMinute = 0
	return cfg, upstream.Close
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		ctx := context.Background()

		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("COUNTERPICK_ADDR", ":8080")
			_ = os.Setenv("COUNTERPICK_DEFAULT_TOP", "4")
			defer func() {
				_ = os.Unsetenv("COUNTERPICK_ADDR")
				_ = os.Unsetenv("COUNTERPICK_DEFAULT_TOP")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DefaultTop, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading the embedded rule tables", func() {
			tables, err := loadRules(ctx, config.New(ctx))

			convey.Convey("Then they load without overrides", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(tables, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When a rule override file is missing", func() {
			cfg := config.New(ctx)
			cfg.TagBoostsFile = "/nonexistent/tag_boosts.yaml"
			_, err := loadRules(ctx, cfg)

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager()
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the wired application", t, func() {
		ctx := context.Background()
		var hits atomic.Int64
		cfg, closeUpstream := newTestConfig(&hits)
		defer closeUpstream()

		tables, err := loadRules(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		svc, err := newService(ctx, cfg, tables, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		defer svc.Stop()

		handler, err := buildHandler(ctx, cfg, svc)
		convey.So(err, convey.ShouldBeNil)

		serve := func(target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, http.NoBody))
			return w
		}

		convey.Convey("Then ping passes through the middleware chain", func() {
			w := serve("/ping")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
		})

		convey.Convey("Then the docs routes are registered", func() {
			convey.So(serve("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then an unknown hero is rejected without upstream calls", func() {
			w := serve("/recommend?ally=qwerty123&enemy=axe")
			convey.So(w.Code, convey.ShouldEqual, http.StatusBadRequest)
			convey.So(hits.Load(), convey.ShouldEqual, 0)
		})

		convey.Convey("Then a dead upstream still yields a recommendation", func() {
			w := serve("/recommend?ally=juggernaut&enemy=axe&phase=late")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"phase":"late"`)
			convey.So(hits.Load(), convey.ShouldBeGreaterThan, 0)
		})

		convey.Convey("Then stats report the breaker", func() {
			w := serve("/stats")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"breaker"`)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it returns once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}
