package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/counterpick/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.OpenDotaBaseURL, convey.ShouldEqual, "https://api.opendota.com/api")
			convey.So(cfg.OpenDotaRetries, convey.ShouldEqual, 2)
			convey.So(cfg.DefaultTop, convey.ShouldEqual, 6)
			convey.So(cfg.MaxTop, convey.ShouldEqual, 50)
			convey.So(cfg.CORSAllowedOrigins, convey.ShouldBeEmpty)
			convey.So(cfg.GzipEnabled, convey.ShouldBeTrue)
		})

		convey.Convey("Then the duration helpers convert units", func() {
			convey.So(cfg.OpenDotaTimeout(), convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.OpenDotaRetryBase(), convey.ShouldEqual, 250*time.Millisecond)
			convey.So(cfg.OpenDotaBreakerCooldown(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.MetadataTTL(), convey.ShouldEqual, 30*time.Minute)
			convey.So(cfg.MetadataFetchTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.PopularityTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.ExplorerTimeout(), convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.HealthTimeout(), convey.ShouldEqual, 5*time.Second)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("When default_top exceeds max_top", func() {
			cfg.DefaultTop = 60

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the log format is unknown", func() {
			cfg.LogFormat = "xml"

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the base URL is not a URL", func() {
			cfg.OpenDotaBaseURL = "opendota"

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a rule file does not exist", func() {
			cfg.HeroTagsFile = "/nonexistent/hero_tags.yaml"

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When retries is negative", func() {
			cfg.OpenDotaRetries = -1

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
