package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/season"
)

// maxSubmissionBytes bounds the size of one result sheet.
const maxSubmissionBytes = 4 << 20

// EventDependencies defines the interface for event submission.
type EventDependencies interface {
	Submit(ctx context.Context, sub model.Submission) (string, bool, error)
}

// EventsHandler handles result sheet submissions.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// submissionRequest is the body of POST /events.
type submissionRequest struct {
	ID          string            `json:"id"`
	Event       eventRequest      `json:"event"`
	Description string            `json:"description"`
	Placements  []model.Placement `json:"placements"`
}

type eventRequest struct {
	Name   string  `json:"name"`
	URL    string  `json:"url"`
	Date   string  `json:"date"`
	Season string  `json:"season"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
	JV     bool    `json:"jv"`
}

// submission converts the request into a domain submission. Dates are
// accepted as YYYY-MM-DD or RFC3339.
func (r submissionRequest) submission() (model.Submission, error) {
	switch {
	case strings.TrimSpace(r.Event.Name) == "":
		return model.Submission{}, errors.New("missing event.name")
	case strings.TrimSpace(r.Event.Date) == "":
		return model.Submission{}, errors.New("missing event.date")
	case len(r.Placements) == 0:
		return model.Submission{}, errors.New("missing placements")
	}

	date, err := time.Parse(time.DateOnly, r.Event.Date)
	if err != nil {
		if date, err = time.Parse(time.RFC3339, r.Event.Date); err != nil {
			return model.Submission{}, errors.New("invalid event.date; must be YYYY-MM-DD or RFC3339")
		}
	}

	ev := model.Event{
		Name:   r.Event.Name,
		URL:    r.Event.URL,
		Date:   date,
		Type:   model.EventType(r.Event.Type),
		Weight: r.Event.Weight,
		JV:     r.Event.JV,
	}
	if r.Event.Weight < 0 {
		return model.Submission{}, errors.New("event.weight must not be negative")
	}
	if s := strings.TrimSpace(r.Event.Season); s != "" {
		if ev.Season, err = season.Parse(s); err != nil {
			return model.Submission{}, fmt.Errorf("invalid event.season: %w", err)
		}
	}
	return model.Submission{
		ID:          strings.TrimSpace(r.ID),
		Event:       ev,
		Description: r.Description,
		Placements:  r.Placements,
	}, nil
}

// HandlePostEvent handles POST /events requests.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req submissionRequest
	body := http.MaxBytesReader(w, r.Body, maxSubmissionBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", WrapKind(op, ErrBadRequest, err))
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sub, err := req.submission()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	id, duplicate, err := h.deps.Submit(r.Context(), sub)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{ID: id, Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{ID: id, Status: "accepted"})
}
