package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/rating"
	"github.com/okian/sailrank/internal/domain/season"
)

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

func factories() []storeFactory {
	return []storeFactory{
		{name: "memory", open: func(*testing.T) Store { return NewMemoryStore() }},
		{name: "bolt", open: func(t *testing.T) Store {
			s, err := OpenBolt(filepath.Join(t.TempDir(), "ratings.db"), WithOpenTimeout(time.Second))
			if err != nil {
				t.Fatalf("open bolt: %v", err)
			}
			return s
		}},
	}
}

func testEvent(name string, day int) model.Event {
	date := time.Date(2024, time.September, day, 0, 0, 0, 0, time.UTC)
	return model.Event{
		ID:     model.EventID("", name, date),
		Name:   name,
		Date:   date,
		Season: season.MustParse("f24"),
		Weight: 1,
	}
}

func TestStores(t *testing.T) {
	for _, f := range factories() {
		Convey("Given a "+f.name+" store", t, func() {
			ctx := context.Background()
			s := f.open(t)
			defer s.Close()

			alice := model.NewParticipant("Alice '25", "Yale")
			bob := model.NewParticipant("Bob", "Harvard")

			Convey("When participants are upserted", func() {
				c1, err := s.UpsertParticipant(ctx, alice)
				So(err, ShouldBeNil)
				alice.Rating = 1500
				c2, err := s.UpsertParticipant(ctx, alice)
				So(err, ShouldBeNil)

				Convey("Then the first insert wins and the rating is kept", func() {
					So(c1, ShouldEqual, Added)
					So(c2, ShouldEqual, Unchanged)
					got, err := s.Participant(ctx, alice.ID)
					So(err, ShouldBeNil)
					So(got.Rating, ShouldEqual, model.InitialRating)
				})
			})

			Convey("When an unknown id is looked up", func() {
				_, err := s.Participant(ctx, "missing")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				_, err = s.Event(ctx, "missing")
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})

			Convey("When events are upserted", func() {
				first, err := s.UpsertEvent(ctx, testEvent("Fall Open", 7))
				So(err, ShouldBeNil)
				second, err := s.UpsertEvent(ctx, testEvent("Fall Open", 7))
				So(err, ShouldBeNil)
				other, err := s.UpsertEvent(ctx, testEvent("Early Bird", 1))
				So(err, ShouldBeNil)

				Convey("Then sequences are stable and events replay by date", func() {
					So(second.Seq, ShouldEqual, first.Seq)
					So(other.Seq, ShouldBeGreaterThan, first.Seq)
					events, err := s.Events(ctx)
					So(err, ShouldBeNil)
					So(len(events), ShouldEqual, 2)
					So(events[0].Name, ShouldEqual, "Early Bird")
				})
			})

			Convey("When results are written and a division is applied", func() {
				ev, err := s.UpsertEvent(ctx, testEvent("Fall Open", 7))
				So(err, ShouldBeNil)
				_, _ = s.UpsertParticipant(ctx, alice)
				_, _ = s.UpsertParticipant(ctx, bob)

				ra := model.Result{ParticipantID: alice.ID, EventID: ev.ID, Division: "A", Role: model.Skipper, Place: "1"}
				rb := model.Result{ParticipantID: bob.ID, EventID: ev.ID, Division: "A", Role: model.Skipper, Place: "2"}
				rbB := model.Result{ParticipantID: bob.ID, EventID: ev.ID, Division: "B", Role: model.Crew, Place: "1"}
				for _, r := range []model.Result{ra, rb, rbB} {
					c, err := s.UpsertResult(ctx, r)
					So(err, ShouldBeNil)
					So(c, ShouldEqual, Added)
				}

				err = s.ApplyDivision(ctx, rating.DivisionUpdate{
					EventID: ev.ID, Division: "A",
					Deltas: map[string]float64{alice.ID: 7.2, bob.ID: -6.5},
				})
				So(err, ShouldBeNil)

				Convey("Then ratings and result changes move together", func() {
					a, _ := s.Participant(ctx, alice.ID)
					b, _ := s.Participant(ctx, bob.ID)
					So(a.Rating, ShouldAlmostEqual, 1007.2, 1e-9)
					So(b.Rating, ShouldAlmostEqual, 993.5, 1e-9)

					results, err := s.EventResults(ctx, ev.ID)
					So(err, ShouldBeNil)
					So(len(results), ShouldEqual, 3)
					for _, r := range results {
						switch {
						case r.Division == "B":
							So(r.RatingChange, ShouldEqual, 0.0)
						case r.ParticipantID == alice.ID:
							So(r.RatingChange, ShouldEqual, 7.2)
						default:
							So(r.RatingChange, ShouldEqual, -6.5)
						}
					}

					mine, err := s.ParticipantResults(ctx, bob.ID)
					So(err, ShouldBeNil)
					So(len(mine), ShouldEqual, 2)
				})

				Convey("Then re-upserting a result only changes its place", func() {
					moved := rb
					moved.Place = "3"
					c, err := s.UpsertResult(ctx, moved)
					So(err, ShouldBeNil)
					So(c, ShouldEqual, Updated)
					c, err = s.UpsertResult(ctx, moved)
					So(err, ShouldBeNil)
					So(c, ShouldEqual, Unchanged)

					mine, _ := s.ParticipantResults(ctx, bob.ID)
					for _, r := range mine {
						if r.Division == "A" {
							So(r.Place, ShouldEqual, model.Place("3"))
							So(r.RatingChange, ShouldEqual, -6.5)
						}
					}
				})

				Convey("Then a reset restores ratings and clears changes", func() {
					So(s.ResetRatings(ctx, model.InitialRating), ShouldBeNil)
					a, _ := s.Participant(ctx, alice.ID)
					So(a.Rating, ShouldEqual, model.InitialRating)
					results, _ := s.EventResults(ctx, ev.ID)
					for _, r := range results {
						So(r.RatingChange, ShouldEqual, 0.0)
					}
				})

				Convey("Then scaling touches only the named participants", func() {
					So(s.ScaleRatings(ctx, []string{bob.ID}, 0.5), ShouldBeNil)
					a, _ := s.Participant(ctx, alice.ID)
					b, _ := s.Participant(ctx, bob.ID)
					So(a.Rating, ShouldAlmostEqual, 1007.2, 1e-9)
					So(b.Rating, ShouldAlmostEqual, 496.75, 1e-9)
				})

				Convey("Then counts reflect the contents", func() {
					c, err := s.Counts(ctx)
					So(err, ShouldBeNil)
					So(c, ShouldResemble, Counts{Participants: 2, Events: 1, Affiliations: 2, Results: 3})
				})
			})

			Convey("When a division names an unknown participant", func() {
				ev, _ := s.UpsertEvent(ctx, testEvent("Fall Open", 7))
				_, _ = s.UpsertParticipant(ctx, alice)
				err := s.ApplyDivision(ctx, rating.DivisionUpdate{
					EventID: ev.ID, Division: "A",
					Deltas: map[string]float64{alice.ID: 1, "ghost": -1},
				})

				Convey("Then nothing is applied", func() {
					So(errors.Is(err, ErrNotFound), ShouldBeTrue)
					a, _ := s.Participant(ctx, alice.ID)
					So(a.Rating, ShouldEqual, model.InitialRating)
				})
			})
		})
	}
}

func TestBoltReopen(t *testing.T) {
	Convey("Given a bolt store that is closed and reopened", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "ratings.db")

		s, err := OpenBolt(path)
		So(err, ShouldBeNil)
		p := model.NewParticipant("Carol", "MIT")
		_, err = s.UpsertParticipant(ctx, p)
		So(err, ShouldBeNil)
		first, err := s.UpsertEvent(ctx, testEvent("Fall Open", 7))
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		s, err = OpenBolt(path)
		So(err, ShouldBeNil)
		defer s.Close()

		Convey("Then data and sequences survive", func() {
			got, err := s.Participant(ctx, p.ID)
			So(err, ShouldBeNil)
			So(got.Name, ShouldEqual, "Carol")
			next, err := s.UpsertEvent(ctx, testEvent("Late Open", 20))
			So(err, ShouldBeNil)
			So(next.Seq, ShouldBeGreaterThan, first.Seq)
			So(s.Path(), ShouldEqual, path)
		})
	})
}

func TestMemoryClosed(t *testing.T) {
	Convey("Given a closed memory store", t, func() {
		s := NewMemoryStore()
		So(s.Close(), ShouldBeNil)

		Convey("Then writes fail", func() {
			_, err := s.UpsertParticipant(context.Background(), model.NewParticipant("A", "B"))
			So(err, ShouldEqual, ErrClosed)
		})
	})
}
