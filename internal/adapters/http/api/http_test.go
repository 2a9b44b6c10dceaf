package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/sailrank/internal/app"
	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/season"
	"github.com/okian/sailrank/internal/domain/types"
)

// mockDependencies implements Dependencies for handler tests.
type mockDependencies struct {
	submitted []model.Submission
	seen      map[string]bool
	submitErr error

	entries  []Entry
	gradYear string
	topNErr  error

	profiles map[string]types.Profile

	decayed      int
	recalculated []bool
	recalcErr    error

	stats types.Stats
}

func newMockDependencies() *mockDependencies {
	return &mockDependencies{
		seen: make(map[string]bool),
		entries: []Entry{
			{Rank: 1, Participant: "p1", Name: "Alice '25", Affiliation: "Yale", Rating: 1010},
			{Rank: 2, Participant: "p2", Name: "Bob '26", Affiliation: "MIT", Rating: 990},
		},
		profiles: map[string]types.Profile{
			"p1": {ID: "p1", Name: "Alice '25", CleanName: "Alice", GradYear: "'25", Rating: 1010, Rank: 1},
		},
		stats: types.Stats{Started: true, Participants: 2, Season: "f24"},
	}
}

func (m *mockDependencies) Submit(_ context.Context, sub model.Submission) (string, bool, error) {
	if m.submitErr != nil {
		return sub.ID, false, m.submitErr
	}
	if sub.ID == "" {
		sub.ID = fmt.Sprintf("generated-%d", len(m.submitted)+1)
	}
	if m.seen[sub.ID] {
		return sub.ID, true, nil
	}
	m.seen[sub.ID] = true
	m.submitted = append(m.submitted, sub)
	return sub.ID, false, nil
}

func (m *mockDependencies) TopN(_ context.Context, n int, gradYear string) ([]Entry, error) {
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	m.gradYear = gradYear
	if n > len(m.entries) {
		return m.entries, nil
	}
	return m.entries[:n], nil
}

func (m *mockDependencies) Rank(_ context.Context, id string) (Entry, error) {
	for _, e := range m.entries {
		if e.Participant == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("participant %s: %w", id, service.ErrNotFound)
}

func (m *mockDependencies) Profile(_ context.Context, id string) (types.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return types.Profile{}, fmt.Errorf("participant %s: %w", id, service.ErrNotFound)
	}
	return p, nil
}

func (m *mockDependencies) Recalculate(_ context.Context, applyDecay bool) (types.RecalculationReport, error) {
	if m.recalcErr != nil {
		return types.RecalculationReport{}, m.recalcErr
	}
	m.recalculated = append(m.recalculated, applyDecay)
	return types.RecalculationReport{RunID: "run-1", Season: "f24", Events: 3}, nil
}

func (m *mockDependencies) ApplyDecay(context.Context) (int, error) {
	m.decayed++
	return 4, nil
}

func (m *mockDependencies) GetStats(context.Context) types.Stats {
	return m.stats
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

const validSheet = `{
	"id": "sheet-1",
	"event": {"name": "Fall Open", "date": "2024-09-07"},
	"placements": [
		{"name": "Alice '25", "affiliation": "Yale", "division": "A", "role": "Skipper", "place": "1"},
		{"name": "Bob '26", "affiliation": "MIT", "division": "A", "role": "Skipper", "place": "2"}
	]
}`

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := newMockDependencies()
		mux := http.NewServeMux()
		NewServer(deps, 100).Register(context.Background(), mux)

		Convey("Then health reports ok", func() {
			w := serve(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then metrics are exposed in the Prometheus format", func() {
			serve(mux, http.MethodGet, "/healthz", "")
			w := serve(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "sailrank_")
		})

		Convey("Then stats are served as JSON", func() {
			w := serve(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var st types.Stats
			So(json.Unmarshal(w.Body.Bytes(), &st), ShouldBeNil)
			So(st.Participants, ShouldEqual, 2)
			So(st.Season, ShouldEqual, "f24")
		})

		Convey("Then unknown paths are not found", func() {
			So(serve(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are not found", func() {
			So(serve(mux, http.MethodGet, "/events", "").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodGet, "/recalculate", "").Code, ShouldEqual, http.StatusNotFound)
			So(serve(mux, http.MethodPost, "/leaderboard?limit=1", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestEventsHandler(t *testing.T) {
	Convey("Given the events endpoint", t, func() {
		deps := newMockDependencies()
		mux := http.NewServeMux()
		NewServer(deps, 100).Register(context.Background(), mux)

		Convey("When a valid sheet is posted", func() {
			w := serve(mux, http.MethodPost, "/events", validSheet)

			Convey("Then it is accepted and converted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				var ack ackResponse
				So(json.Unmarshal(w.Body.Bytes(), &ack), ShouldBeNil)
				So(ack.ID, ShouldEqual, "sheet-1")
				So(ack.Status, ShouldEqual, "accepted")

				So(len(deps.submitted), ShouldEqual, 1)
				sub := deps.submitted[0]
				So(sub.Event.Name, ShouldEqual, "Fall Open")
				So(sub.Event.Date.Day(), ShouldEqual, 7)
				So(len(sub.Placements), ShouldEqual, 2)
				So(sub.Placements[1].Place, ShouldEqual, model.Place("2"))
			})

			Convey("Then posting it again is a duplicate", func() {
				w := serve(mux, http.MethodPost, "/events", validSheet)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the body is not JSON", func() {
			w := serve(mux, http.MethodPost, "/events", "{")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "bad_request")
		})

		Convey("When the sheet exceeds the size limit", func() {
			huge := `{"description":"` + strings.Repeat("x", maxSubmissionBytes) + `"}`
			w := serve(mux, http.MethodPost, "/events", huge)
			So(w.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(w.Body.String(), ShouldContainSubstring, "payload_too_large")
			So(deps.submitted, ShouldBeEmpty)
		})

		Convey("When the event is incomplete", func() {
			So(serve(mux, http.MethodPost, "/events", `{}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the service rejects the submission", func() {
			deps.submitErr = fmt.Errorf("%w: placement 0: missing division", service.ErrInvalidSubmission)
			So(serve(mux, http.MethodPost, "/events", validSheet).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the queue is full", func() {
			deps.submitErr = service.ErrBackpressure
			w := serve(mux, http.MethodPost, "/events", validSheet)
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(w.Body.String(), ShouldContainSubstring, "backpressure")
		})

		Convey("When the service is not running", func() {
			deps.submitErr = service.ErrNotStarted
			So(serve(mux, http.MethodPost, "/events", validSheet).Code, ShouldEqual, http.StatusServiceUnavailable)
		})
	})
}

func TestSubmissionRequest(t *testing.T) {
	Convey("Given submission requests", t, func() {
		base := func() submissionRequest {
			return submissionRequest{
				Event:      eventRequest{Name: "Fall Open", Date: "2024-09-07"},
				Placements: []model.Placement{{Name: "A", Affiliation: "Yale", Division: "A", Role: model.Skipper, Place: "1"}},
			}
		}

		Convey("When the date is RFC3339", func() {
			req := base()
			req.Event.Date = "2024-09-07T10:00:00Z"
			sub, err := req.submission()
			So(err, ShouldBeNil)
			So(sub.Event.Date.Hour(), ShouldEqual, 10)
		})

		Convey("When the date is malformed", func() {
			req := base()
			req.Event.Date = "07/09/2024"
			_, err := req.submission()
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "event.date")
		})

		Convey("When a season is given", func() {
			req := base()
			req.Event.Season = "f24"
			sub, err := req.submission()
			So(err, ShouldBeNil)
			So(sub.Event.Season, ShouldResemble, season.MustParse("f24"))

			req.Event.Season = "x24"
			_, err = req.submission()
			So(errors.Is(err, season.ErrInvalidSeason), ShouldBeTrue)
		})

		Convey("When required parts are missing", func() {
			for field, mutate := range map[string]func(*submissionRequest){
				"event.name": func(r *submissionRequest) { r.Event.Name = " " },
				"event.date": func(r *submissionRequest) { r.Event.Date = "" },
				"placements": func(r *submissionRequest) { r.Placements = nil },
			} {
				req := base()
				mutate(&req)
				_, err := req.submission()
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, field)
			}
		})

		Convey("When the weight is negative", func() {
			req := base()
			req.Event.Weight = -1
			_, err := req.submission()
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLeaderboardHandler(t *testing.T) {
	Convey("Given the leaderboard endpoint", t, func() {
		deps := newMockDependencies()
		mux := http.NewServeMux()
		NewServer(deps, 10).Register(context.Background(), mux)

		Convey("When a valid limit is requested", func() {
			w := serve(mux, http.MethodGet, "/leaderboard?limit=1&grad_year=25", "")

			Convey("Then the entries and filter are passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var entries []Entry
				So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
				So(len(entries), ShouldEqual, 1)
				So(entries[0].Participant, ShouldEqual, "p1")
				So(deps.gradYear, ShouldEqual, "25")
			})
		})

		Convey("When the limit is missing, invalid or too large", func() {
			for _, target := range []string{"/leaderboard", "/leaderboard?limit=abc", "/leaderboard?limit=0", "/leaderboard?limit=11"} {
				So(serve(mux, http.MethodGet, target, "").Code, ShouldEqual, http.StatusBadRequest)
			}
			So(serve(mux, http.MethodGet, "/leaderboard?limit=11", "").Body.String(), ShouldContainSubstring, "limit_exceeded")
		})

		Convey("When the read fails", func() {
			deps.topNErr = errors.New("boom")
			So(serve(mux, http.MethodGet, "/leaderboard?limit=1", "").Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestRankAndProfileHandlers(t *testing.T) {
	Convey("Given the rank and profile endpoints", t, func() {
		deps := newMockDependencies()
		mux := http.NewServeMux()
		NewServer(deps, 100).Register(context.Background(), mux)

		Convey("Then a known participant's rank is returned", func() {
			w := serve(mux, http.MethodGet, "/rank/p2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"rank":2`)
		})

		Convey("Then a known participant's profile is returned", func() {
			w := serve(mux, http.MethodGet, "/participants/p1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var p types.Profile
			So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
			So(p.CleanName, ShouldEqual, "Alice")
		})

		Convey("Then unknown participants are not found", func() {
			So(serve(mux, http.MethodGet, "/rank/ghost", "").Code, ShouldEqual, http.StatusNotFound)
			w := serve(mux, http.MethodGet, "/participants/ghost", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(w.Body.String(), ShouldContainSubstring, "not_found")
		})

		Convey("Then malformed paths are bad requests", func() {
			So(serve(mux, http.MethodGet, "/rank/", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, http.MethodGet, "/participants/a/b", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMaintenanceHandler(t *testing.T) {
	Convey("Given the maintenance endpoints", t, func() {
		deps := newMockDependencies()
		mux := http.NewServeMux()
		NewServer(deps, 100).Register(context.Background(), mux)

		Convey("When a recalculation is requested", func() {
			w := serve(mux, http.MethodPost, "/recalculate?apply_decay=true", "")

			Convey("Then the report is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"run_id":"run-1"`)
				So(deps.recalculated, ShouldResemble, []bool{true})
			})
		})

		Convey("When apply_decay is not a boolean", func() {
			So(serve(mux, http.MethodPost, "/recalculate?apply_decay=maybe", "").Code, ShouldEqual, http.StatusBadRequest)
			So(len(deps.recalculated), ShouldEqual, 0)
		})

		Convey("When the recalculation fails", func() {
			deps.recalcErr = errors.New("disk full")
			So(serve(mux, http.MethodPost, "/recalculate", "").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When the decay is applied", func() {
			w := serve(mux, http.MethodPost, "/decay", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"decayed":4`)
			So(deps.decayed, ShouldEqual, 1)
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := errors.New("cause")

		Convey("Then kinds and causes stay reachable", func() {
			err := WrapKind("api.op", ErrBadRequest, cause)
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldStartWith, "api.op: ")

			So(errors.Is(NewKind("api.op", ErrNotFound), ErrNotFound), ShouldBeTrue)
			So(errors.Is(Wrap("api.op", cause), cause), ShouldBeTrue)
			So(Wrap("api.op", nil), ShouldBeNil)
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a wrapped handler", t, func() {
		h := MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, "test")

		Convey("Then the status passes through", func() {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("Then error classes match response codes", func() {
			So(errorClass(http.StatusBadRequest), ShouldEqual, "bad_request")
			So(errorClass(http.StatusNotFound), ShouldEqual, "not_found")
			So(errorClass(http.StatusTooManyRequests), ShouldEqual, "backpressure")
			So(errorClass(http.StatusServiceUnavailable), ShouldEqual, "unavailable")
			So(errorClass(http.StatusRequestEntityTooLarge), ShouldEqual, "payload_too_large")
			So(errorClass(http.StatusBadGateway), ShouldEqual, "internal_error")
			So(errorClass(http.StatusConflict), ShouldEqual, "client_error")
		})
	})
}
