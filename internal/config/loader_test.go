package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/counterpick/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.MetadataTTLMinutes, convey.ShouldEqual, 30)
				convey.So(cfg.RateLimitPerMinute, convey.ShouldEqual, 120)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("COUNTERPICK_ADDR", ":8080")
			_ = os.Setenv("COUNTERPICK_OPENDOTA_API_KEY", "secret")
			_ = os.Setenv("COUNTERPICK_OPENDOTA_RETRIES", "4")
			_ = os.Setenv("COUNTERPICK_MAX_TOP", "20")
			_ = os.Setenv("COUNTERPICK_GZIP_ENABLED", "false")
			_ = os.Setenv("COUNTERPICK_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.OpenDotaAPIKey, convey.ShouldEqual, "secret")
				convey.So(cfg.OpenDotaRetries, convey.ShouldEqual, 4)
				convey.So(cfg.MaxTop, convey.ShouldEqual, 20)
				convey.So(cfg.GzipEnabled, convey.ShouldBeFalse)
				convey.So(cfg.CORSAllowedOrigins, convey.ShouldResemble, []string{"https://a.example", "https://b.example"})
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
log_format: json
metadata_ttl_minutes: 5
popularity_timeout_ms: 2500
default_top: 8
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("COUNTERPICK_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.MetadataTTLMinutes, convey.ShouldEqual, 5)
				convey.So(cfg.PopularityTimeoutMS, convey.ShouldEqual, 2500)
				convey.So(cfg.DefaultTop, convey.ShouldEqual, 8)
				convey.So(cfg.MaxTop, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nmax_top: 30\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("COUNTERPICK_CONFIG", tmpFile)
			_ = os.Setenv("COUNTERPICK_ADDR", ":7070")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.MaxTop, convey.ShouldEqual, 30)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile("addr: [unclosed\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("COUNTERPICK_CONFIG", tmpFile)

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("COUNTERPICK_CONFIG", "/nonexistent/counterpick.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("COUNTERPICK_MAX_TOP", "lots")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			tmpFile := createTempConfigFile("addr: \"\"\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("COUNTERPICK_CONFIG", tmpFile)

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with out of range values", func() {
			_ = os.Setenv("COUNTERPICK_DEFAULT_TOP", "0")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"COUNTERPICK_CONFIG",
		"COUNTERPICK_ADDR",
		"COUNTERPICK_OPENDOTA_API_KEY",
		"COUNTERPICK_OPENDOTA_RETRIES",
		"COUNTERPICK_MAX_TOP",
		"COUNTERPICK_DEFAULT_TOP",
		"COUNTERPICK_GZIP_ENABLED",
		"COUNTERPICK_CORS_ALLOWED_ORIGINS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "counterpick-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
