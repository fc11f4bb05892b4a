package opendota_test

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/okian/counterpick/internal/adapters/opendota"
	"github.com/okian/counterpick/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func newClient(url string, opts ...opendota.Option) *opendota.Client {
	base := []opendota.Option{
		opendota.WithBaseURL(url),
		opendota.WithRetries(2, time.Millisecond),
		opendota.WithRatePerMinute(0),
	}
	return opendota.New(append(base, opts...)...)
}

func TestClientRequests(t *testing.T) {
	Convey("Given a stats server", t, func() {
		var hits atomic.Int32
		var lastQuery atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			lastQuery.Store(r.URL.RawQuery)
			switch r.URL.Path {
			case "/heroStats":
				_, _ = io.WriteString(w, `[
					{"id":2,"name":"npc_dota_hero_axe","localized_name":"Axe","roles":["Initiator","Durable"]},
					{"id":5,"name":"npc_dota_hero_crystal_maiden","localized_name":"Crystal Maiden","roles":["Support",7]},
					{"id":9,"localized_name":"nameless"}
				]`)
			case "/health":
				_, _ = io.WriteString(w, `{"postgresUsage":{"metric":1}}`)
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		Convey("When fetching hero stats with an api key", func() {
			c := newClient(srv.URL, opendota.WithAPIKey("secret"))
			heroes, err := c.HeroStats(context.Background())

			Convey("Then rows decode and the key is sent", func() {
				So(err, ShouldBeNil)
				So(len(heroes), ShouldEqual, 2)
				So(heroes[0].Slug(), ShouldEqual, "axe")
				So(heroes[0].Roles, ShouldResemble, []string{"Initiator", "Durable"})
				So(heroes[1].Roles, ShouldResemble, []string{"Support"})
				So(lastQuery.Load(), ShouldEqual, "api_key=secret")
			})
		})

		Convey("When no api key is configured", func() {
			_, err := newClient(srv.URL).Health(context.Background())

			Convey("Then no query parameter is added", func() {
				So(err, ShouldBeNil)
				So(lastQuery.Load(), ShouldEqual, "")
			})
		})

		Convey("When the endpoint is missing", func() {
			_, err := newClient(srv.URL).Items(context.Background())

			Convey("Then a status error is returned without retries", func() {
				var se *opendota.StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Status, ShouldEqual, http.StatusNotFound)
				So(errors.Is(err, opendota.ErrUpstream), ShouldBeTrue)
				So(hits.Load(), ShouldEqual, 1)
			})
		})
	})
}

func TestClientRetries(t *testing.T) {
	Convey("Given a flaky server", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, `{"ok":true}`)
		}))
		defer srv.Close()

		Convey("When two attempts fail", func() {
			h, err := newClient(srv.URL).Health(context.Background())

			Convey("Then the third attempt succeeds", func() {
				So(err, ShouldBeNil)
				So(h["ok"], ShouldEqual, true)
				So(hits.Load(), ShouldEqual, 3)
			})
		})
	})

	Convey("Given a server that keeps failing", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		Convey("When retries run out", func() {
			_, err := newClient(srv.URL).Health(context.Background())

			Convey("Then the last status error is returned", func() {
				var se *opendota.StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Status, ShouldEqual, http.StatusTooManyRequests)
				So(hits.Load(), ShouldEqual, 3)
			})
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := newClient(srv.URL).Health(ctx)

			Convey("Then the call fails fast", func() {
				So(err, ShouldNotBeNil)
				So(hits.Load(), ShouldBeLessThanOrEqualTo, 1)
			})
		})
	})
}

func TestClientBreaker(t *testing.T) {
	Convey("Given a failing server and a low breaker threshold", t, func() {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := newClient(srv.URL, opendota.WithRetries(0, time.Millisecond), opendota.WithBreaker(2, time.Hour))
		ctx := context.Background()

		Convey("When consecutive calls fail", func() {
			_, err1 := c.Health(ctx)
			_, err2 := c.Health(ctx)
			_, err3 := c.Health(ctx)

			Convey("Then the breaker opens and rejects without calling upstream", func() {
				So(errors.Is(err1, opendota.ErrCircuitOpen), ShouldBeFalse)
				So(errors.Is(err2, opendota.ErrCircuitOpen), ShouldBeFalse)
				So(errors.Is(err3, opendota.ErrCircuitOpen), ShouldBeTrue)
				So(errors.Is(err3, opendota.ErrUpstream), ShouldBeTrue)
				So(hits.Load(), ShouldEqual, 2)
				So(c.BreakerState(), ShouldEqual, "open")
			})
		})
	})

	Convey("Given a server answering 404", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()
		c := newClient(srv.URL, opendota.WithBreaker(1, time.Hour))

		Convey("Then caller errors never trip the breaker", func() {
			for i := 0; i < 3; i++ {
				_, err := c.Items(context.Background())
				So(errors.Is(err, opendota.ErrCircuitOpen), ShouldBeFalse)
			}
			So(c.BreakerState(), ShouldEqual, "closed")
		})
	})
}

func TestClientDecoding(t *testing.T) {
	Convey("Given loosely typed payloads", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/constants/hero_abilities":
				_, _ = io.WriteString(w, `{
					"npc_dota_hero_axe":{"abilities":["axe_berserkers_call","axe_culling_blade"],"talents":[]},
					"npc_dota_hero_lina":["lina_dragon_slave"],
					"npc_dota_hero_broken":42
				}`)
			case "/constants/abilities":
				_, _ = io.WriteString(w, `{
					"axe_berserkers_call":{"dname":"Berserker's Call","desc":["Taunts","nearby enemies"],"lore":"Axe calls."},
					"odd":{"dname":7},
					"bad":"not an object"
				}`)
			case "/constants/items":
				_, _ = io.WriteString(w, `{
					"blink":{"id":1,"dname":"Blink Dagger"},
					"black_king_bar":{"id":116},
					"recipe_x":{"dname":"No Id"},
					"weird":{"id":-1}
				}`)
			case "/heroes/2/itemPopularity":
				_, _ = io.WriteString(w, `{
					"start_game_items":{"29":"12","44":3.0,"x":"nope"},
					"late_game_items":{"1":1e30,"116":"-1e30","63":"NaN","48":"2.5e3"},
					"early_game_items":[1,2,3],
					"mid_game_items":null
				}`)
			case "/explorer":
				b, _ := io.ReadAll(r.Body)
				var req map[string]string
				_ = json.Unmarshal(b, &req)
				if r.Method != http.MethodPost || req["sql"] == "" {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				if req["sql"] == "missing" {
					http.NotFound(w, r)
					return
				}
				_, _ = io.WriteString(w, `{"rows":[
					{"item_key":"blink","median_min":"14.5","uses":"120"},
					{"item_key":"","median_min":3,"uses":9},
					{"item_key":"bkb","median_min":21,"uses":88}
				]}`)
			default:
				_, _ = io.WriteString(w, `not json`)
			}
		}))
		defer srv.Close()
		c := newClient(srv.URL)
		ctx := context.Background()

		Convey("Then hero abilities accept arrays and objects", func() {
			m, err := c.HeroAbilities(ctx)
			So(err, ShouldBeNil)
			So(m["axe"], ShouldResemble, []string{"axe_berserkers_call", "axe_culling_blade"})
			So(m["lina"], ShouldResemble, []string{"lina_dragon_slave"})
			So(m["broken"], ShouldBeNil)
		})

		Convey("Then ability text fields accept strings and arrays", func() {
			m, err := c.Abilities(ctx)
			So(err, ShouldBeNil)
			a := m["axe_berserkers_call"]
			So(a.Description, ShouldEqual, "Taunts nearby enemies")
			So(a.Lore, ShouldEqual, "Axe calls.")
			So(m["odd"].DisplayName, ShouldEqual, "")
			_, ok := m["bad"]
			So(ok, ShouldBeFalse)
		})

		Convey("Then items without a valid id are skipped", func() {
			m, err := c.Items(ctx)
			So(err, ShouldBeNil)
			So(len(m), ShouldEqual, 2)
			So(m[1].Name(), ShouldEqual, "Blink Dagger")
			So(m[116].Name(), ShouldEqual, "Black King Bar")
		})

		Convey("Then popularity counts tolerate strings and bad phases", func() {
			p, err := c.ItemPopularity(ctx, 2)
			So(err, ShouldBeNil)
			So(p["start_game_items"], ShouldResemble, map[string]int{"29": 12, "44": 3, "x": 0})
			So(len(p["early_game_items"]), ShouldEqual, 0)
			So(len(p["mid_game_items"]), ShouldEqual, 0)
		})

		Convey("Then out of range counts are clamped", func() {
			p, err := c.ItemPopularity(ctx, 2)
			So(err, ShouldBeNil)
			So(p["late_game_items"], ShouldResemble, map[string]int{"1": math.MaxInt32, "116": 0, "63": 0, "48": 2500})
		})

		Convey("Then explorer rows decode into timings", func() {
			rows, err := c.Explorer(ctx, "select 1")
			So(err, ShouldBeNil)
			timings := opendota.DecodeTimings(rows)
			So(len(timings), ShouldEqual, 2)
			So(timings[0].Item, ShouldEqual, "blink")
			So(timings[0].Minute, ShouldEqual, 14.5)
			So(timings[0].Uses, ShouldEqual, 120)
		})

		Convey("Then an explorer 404 is an empty result", func() {
			rows, err := c.Explorer(ctx, "missing")
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 0)
		})

		Convey("Then an undecodable body is a decode error", func() {
			_, err := c.HeroStats(ctx)
			So(errors.Is(err, opendota.ErrDecode), ShouldBeTrue)
		})
	})
}
