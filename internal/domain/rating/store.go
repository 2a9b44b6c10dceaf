package rating

import (
	"context"

	"github.com/okian/sailrank/internal/domain/model"
)

// DivisionUpdate is the outcome of aggregating one division: the summed
// rating change per participant. Stores apply it in a single transaction,
// adding each delta to the participant's rating and recording it on every
// result the participant holds in that division.
type DivisionUpdate struct {
	EventID  string
	Division string
	Deltas   map[string]float64
}

// Store is the persistence collaborator the engine reads from and writes to.
// Lookups of unknown ids must return an error; the engine wraps it.
type Store interface {
	Participant(ctx context.Context, id string) (model.Participant, error)
	Participants(ctx context.Context) ([]model.Participant, error)

	Event(ctx context.Context, id string) (model.Event, error)
	Events(ctx context.Context) ([]model.Event, error)

	EventResults(ctx context.Context, eventID string) ([]model.Result, error)
	ParticipantResults(ctx context.Context, participantID string) ([]model.Result, error)

	// ApplyDivision commits a division's deltas atomically.
	ApplyDivision(ctx context.Context, u DivisionUpdate) error
	// ResetRatings sets every rating to rating and clears every result's
	// recorded rating change.
	ResetRatings(ctx context.Context, rating float64) error
	// ScaleRatings multiplies the ratings of the given participants by factor.
	ScaleRatings(ctx context.Context, ids []string, factor float64) error
}
