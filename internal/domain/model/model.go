// Package model contains domain models passed between layers.
package model

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sailrank/internal/domain/season"
)

// InitialRating is the rating every participant starts from.
const InitialRating = 1000.0

// DefaultEventWeight applies when an event carries no explicit importance.
const DefaultEventWeight = 1.0

// Namespaces for deterministic identifiers.
var (
	participantNamespace = uuid.MustParse("5f0b8a52-3c1e-4d7a-9a55-0e6a3b1c2d40")
	eventNamespace       = uuid.MustParse("a8c4e1d6-7b2f-4e90-8f13-6d5c2b9a0e71")
)

// Sentinel kinds for model validation.
var (
	ErrInvalidEvent     = errors.New("invalid event")
	ErrInvalidPlacement = errors.New("invalid placement")
)

// Participant is a competitor whose rating the engine maintains.
type Participant struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Affiliation string  `json:"affiliation"`
	Rating      float64 `json:"rating"`
}

// ParticipantID derives the stable identifier for name within affiliation.
// Names are unique per affiliation, so the pair is the identity.
func ParticipantID(name, affiliation string) string {
	key := strings.TrimSpace(name) + "\x00" + strings.TrimSpace(affiliation)
	return uuid.NewSHA1(participantNamespace, []byte(key)).String()
}

// NewParticipant creates a participant at the initial rating.
func NewParticipant(name, affiliation string) Participant {
	return Participant{
		ID:          ParticipantID(name, affiliation),
		Name:        strings.TrimSpace(name),
		Affiliation: strings.TrimSpace(affiliation),
		Rating:      InitialRating,
	}
}

// Event is a single regatta.
type Event struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	URL    string    `json:"url,omitempty"`
	Date   time.Time `json:"date"`
	Season season.ID `json:"season"`
	Type   EventType `json:"type"`
	Weight float64   `json:"weight"`
	JV     bool      `json:"jv"`
	// Seq is assigned by the store on first insert and breaks date ties.
	Seq uint64 `json:"seq"`
}

// EventID derives an identifier from the event's source URL, falling back to
// its name and date when no URL is known.
func EventID(url, name string, date time.Time) string {
	key := strings.TrimSpace(url)
	if key == "" {
		key = strings.TrimSpace(name) + "\x00" + date.Format(time.DateOnly)
	}
	return uuid.NewSHA1(eventNamespace, []byte(key)).String()
}

// Validate checks the fields the engine relies on.
func (e Event) Validate() error {
	switch {
	case strings.TrimSpace(e.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	case e.Date.IsZero():
		return fmt.Errorf("%w: missing date", ErrInvalidEvent)
	case e.Season.IsZero():
		return fmt.Errorf("%w: missing season", ErrInvalidEvent)
	case e.Weight <= 0:
		return fmt.Errorf("%w: weight must be positive, got %v", ErrInvalidEvent, e.Weight)
	}
	return nil
}

// CompareEvents orders events chronologically, then by creation sequence,
// then by id.
func CompareEvents(a, b Event) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// SortEvents sorts events in replay order.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, CompareEvents)
}

// Role is the seat a participant filled in a boat.
type Role string

// Known roles.
const (
	Skipper Role = "Skipper"
	Crew    Role = "Crew"
)

// Place is a finishing place as ingested. It is kept as text because upstream
// sources sometimes report non-numeric places.
type Place string

// PlaceOf formats an integer place.
func PlaceOf(n int) Place { return Place(strconv.Itoa(n)) }

// Int returns the numeric place and whether the value is numeric.
func (p Place) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(string(p)))
	if err != nil {
		return 0, false
	}
	return n, true
}

// Result is one participant's placement in a division of an event.
type Result struct {
	ParticipantID string  `json:"participant_id"`
	EventID       string  `json:"event_id"`
	Division      string  `json:"division"`
	Role          Role    `json:"role"`
	Place         Place   `json:"place"`
	RatingChange  float64 `json:"rating_change"`
}

// ResultKey is the uniqueness key of a result.
type ResultKey struct {
	EventID       string
	Division      string
	Role          Role
	ParticipantID string
}

// Key returns the result's uniqueness key.
func (r Result) Key() ResultKey {
	return ResultKey{
		EventID:       r.EventID,
		Division:      r.Division,
		Role:          r.Role,
		ParticipantID: r.ParticipantID,
	}
}

// KeySeparator joins the parts of an encoded ResultKey.
const KeySeparator = "\x1f"

// String encodes the key so that results of one event, and of one division
// within it, sort together.
func (k ResultKey) String() string {
	return k.EventID + KeySeparator + k.Division + KeySeparator + string(k.Role) + KeySeparator + k.ParticipantID
}

// Divisions returns the distinct division labels of results in sorted order.
func Divisions(results []Result) []string {
	seen := make(map[string]struct{}, 2)
	out := make([]string, 0, 2)
	for _, r := range results {
		if _, ok := seen[r.Division]; ok {
			continue
		}
		seen[r.Division] = struct{}{}
		out = append(out, r.Division)
	}
	slices.Sort(out)
	return out
}

// NormalizeRole maps case variants of the known roles onto their canonical
// spelling. Unknown roles are returned trimmed.
func NormalizeRole(r Role) Role {
	s := strings.TrimSpace(string(r))
	switch {
	case strings.EqualFold(s, string(Skipper)):
		return Skipper
	case strings.EqualFold(s, string(Crew)):
		return Crew
	}
	return Role(s)
}
