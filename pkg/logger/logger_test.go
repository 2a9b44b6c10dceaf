package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given an initialized logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		defer func() { So(Sync(), ShouldBeNil) }()

		ctx := context.Background()

		Convey("When logging at info", func() {
			Get().Info(ctx, "ratings recalculated", String("season", "f24"), Int("events", 3))

			Convey("Then the record carries its fields and source", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "ratings recalculated")
				So(out, ShouldContainSubstring, "season=f24")
				So(out, ShouldContainSubstring, "events=3")
				So(out, ShouldContainSubstring, "logger_test.go:")
			})
		})

		Convey("When logging at debug with the default level", func() {
			Get().Debug(ctx, "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When the level is lowered to debug", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(ctx, "visible")
			So(buf.String(), ShouldContainSubstring, "visible")
			So(SetLevelString("info"), ShouldBeNil)
		})

		Convey("When an unknown level is given", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})

		Convey("When using a named logger", func() {
			Named("engine").Warn(ctx, "careful")
			So(buf.String(), ShouldContainSubstring, "component=engine")
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf), WithFormat("json")), ShouldBeNil)

		Get().Error(context.Background(), "boom", Bool("retry", false))

		So(strings.HasPrefix(buf.String(), "{"), ShouldBeTrue)
		So(buf.String(), ShouldContainSubstring, `"retry":false`)
	})
}

func TestNop(t *testing.T) {
	Convey("Given a no-op logger", t, func() {
		l := Nop()

		Convey("Then logging and naming are safe", func() {
			So(func() {
				l.Error(context.Background(), "discarded", Error(nil))
				l.Named("x").Info(context.Background(), "discarded")
			}, ShouldNotPanic)
		})
	})
}
