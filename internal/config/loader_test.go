package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/sailrank/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sailrank.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	ctx := context.Background()
	convey.Convey("Given no file and no environment", t, func() {
		t.Setenv(config.EnvConfigFile, "")
		cfg, err := config.Load(ctx)

		convey.Convey("Then the defaults are loaded", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg, convey.ShouldResemble, config.New())
		})
	})
}

func TestLoad_Env(t *testing.T) {
	ctx := context.Background()
	convey.Convey("Given environment overrides", t, func() {
		t.Setenv(config.EnvConfigFile, "")
		t.Setenv("SAILRANK_ADDR", ":8080")
		t.Setenv("SAILRANK_QUEUE_SIZE", "64")
		t.Setenv("SAILRANK_STORE", "bolt")
		t.Setenv("SAILRANK_BOLT_PATH", "/tmp/ratings.db")
		t.Setenv("SAILRANK_DECAY_FACTOR", "0.9")
		t.Setenv("SAILRANK_REFERENCE_SEASON", "f24")

		cfg, err := config.Load(ctx)

		convey.Convey("Then they override the defaults", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreBolt)
			convey.So(cfg.BoltPath, convey.ShouldEqual, "/tmp/ratings.db")
			convey.So(cfg.DecayFactor, convey.ShouldEqual, 0.9)
			convey.So(cfg.ReferenceSeason, convey.ShouldEqual, "f24")
		})
	})
}

func TestLoad_File(t *testing.T) {
	ctx := context.Background()
	convey.Convey("Given a YAML file", t, func() {
		path := writeConfigFile(t, `
addr: ":9090"
queue_size: 300
a_division_weight: 1.5
event_type_weights:
  JV: 0.5
  Promotional: 0.8
`)
		t.Setenv(config.EnvConfigFile, path)

		convey.Convey("When it is loaded alone", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then its values are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.ADivisionWeight, convey.ShouldEqual, 1.5)
				convey.So(cfg.EventTypeWeights["JV"], convey.ShouldEqual, 0.5)
				convey.So(cfg.EventTypeWeights["Promotional"], convey.ShouldEqual, 0.8)
				convey.So(cfg.DecayFactor, convey.ShouldEqual, 0.97)
			})
		})

		convey.Convey("When the environment also sets a value", func() {
			t.Setenv("SAILRANK_ADDR", ":7070")
			cfg, err := config.Load(ctx)

			convey.Convey("Then the environment wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
			})
		})
	})
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()
	convey.Convey("Given a missing file", t, func() {
		_, err := config.LoadFile(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

		convey.Convey("Then loading fails", func() {
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an invalid value", t, func() {
		t.Setenv(config.EnvConfigFile, "")
		t.Setenv("SAILRANK_STORE", "postgres")
		_, err := config.Load(ctx)

		convey.Convey("Then validation fails", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
