package types_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/types"
)

func results(roles ...model.Role) []model.Result {
	out := make([]model.Result, 0, len(roles))
	for _, r := range roles {
		out = append(out, model.Result{Role: r})
	}
	return out
}

func TestPrimaryRole(t *testing.T) {
	Convey("Given a participant's results", t, func() {
		Convey("When most are at the helm", func() {
			So(types.PrimaryRole(results(model.Skipper, model.Skipper, model.Skipper, model.Crew)), ShouldEqual, "Skipper (75%)")
		})

		Convey("When most are crewing", func() {
			So(types.PrimaryRole(results(model.Crew, model.Crew, model.Skipper)), ShouldEqual, "Crew (67%)")
		})

		Convey("When the seats are split evenly", func() {
			So(types.PrimaryRole(results(model.Crew, model.Skipper)), ShouldEqual, "Both (50%)")
		})

		Convey("When there are none", func() {
			So(types.PrimaryRole(nil), ShouldEqual, "-")
		})
	})
}
