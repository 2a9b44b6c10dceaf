package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/sailrank/internal/app"
	"github.com/okian/sailrank/internal/config"
	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/season"
	"github.com/okian/sailrank/pkg/logger"
)

func init() {
	_ = logger.Init(logger.WithOutput(io.Discard))
}

// seed writes one two-boat regatta into a bolt file.
func seed(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	svc := app.New(
		app.WithLogger(logger.Nop()),
		app.WithBoltPath(path),
		app.WithReferenceSeason(season.MustParse("f24")),
	)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer svc.Stop()
	_, err := svc.Ingest(ctx, model.Submission{
		ID:    "seed",
		Event: model.Event{Name: "Fall Open", Date: time.Date(2024, time.September, 7, 0, 0, 0, 0, time.UTC)},
		Placements: []model.Placement{
			{Name: "Alice", Affiliation: "Yale", Division: "A", Role: model.Skipper, Place: "1"},
			{Name: "Bob", Affiliation: "MIT", Division: "A", Role: model.Skipper, Place: "2"},
		},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
}

func TestRun(t *testing.T) {
	convey.Convey("Given a bolt store with history", t, func() {
		dir := t.TempDir()
		db := filepath.Join(dir, "ratings.db")
		seed(t, db)

		cfgPath := filepath.Join(dir, "sailrank.yaml")
		yaml := "store: bolt\nbolt_path: " + db + "\n"
		convey.So(os.WriteFile(cfgPath, []byte(yaml), 0o600), convey.ShouldBeNil)

		convey.Convey("When it is recalculated for the next spring with decay", func() {
			var out bytes.Buffer
			err := run(context.Background(), []string{"-config", cfgPath, "-season", "s25", "-apply-decay"}, &out)

			convey.Convey("Then a summary is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, "(season s25)")
				convey.So(out.String(), convey.ShouldContainSubstring, "events:       1")
				convey.So(out.String(), convey.ShouldContainSubstring, "decayed:      2")
				convey.So(out.String(), convey.ShouldContainSubstring, "participants: 2")
			})
		})

		convey.Convey("When the season flag is malformed", func() {
			err := run(context.Background(), []string{"-config", cfgPath, "-season", "2024"}, io.Discard)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an unknown flag", t, func() {
		err := run(context.Background(), []string{"-nope"}, io.Discard)
		convey.So(err, convey.ShouldNotBeNil)
	})
}
