package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	service "github.com/okian/sailrank/internal/app"
	"github.com/okian/sailrank/internal/config"
	"github.com/okian/sailrank/pkg/logger"
)

func TestOptionsFromConfig(t *testing.T) {
	convey.Convey("Given a configuration pinned to a season on a bolt store", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.Store = config.StoreBolt
		cfg.BoltPath = filepath.Join(t.TempDir(), "ratings.db")
		cfg.ReferenceSeason = "s25"

		opts, err := service.OptionsFromConfig(cfg)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When a service is built from it", func() {
			svc := service.New(append(opts, service.WithLogger(logger.Nop()))...)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the season and store follow the configuration", func() {
				st := svc.GetStats(ctx)
				convey.So(st.Started, convey.ShouldBeTrue)
				convey.So(st.Season, convey.ShouldEqual, "s25")
			})
		})
	})

	convey.Convey("Given a configuration with a malformed season", t, func() {
		cfg := config.New()
		cfg.ReferenceSeason = "autumn"

		_, err := service.OptionsFromConfig(cfg)
		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}
