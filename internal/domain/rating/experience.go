package rating

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/sailrank/internal/domain/model"
)

// timeline is the full event history in replay order.
type timeline struct {
	events []model.Event
	pos    map[string]int
}

func (e *Engine) loadTimeline(ctx context.Context) (*timeline, error) {
	events, err := e.store.Events(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	model.SortEvents(events)
	pos := make(map[string]int, len(events))
	for i, ev := range events {
		pos[ev.ID] = i
	}
	return &timeline{events: events, pos: pos}, nil
}

func (t *timeline) position(eventID string) (int, error) {
	i, ok := t.pos[eventID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
	}
	return i, nil
}

// experience counts the distinct events a participant has results in, up to
// and including the given event in replay order.
type experience interface {
	eventCount(ctx context.Context, participantID, eventID string) (int, error)
}

// storeExperience answers from the store; used for single-event updates.
type storeExperience struct {
	store    Store
	timeline *timeline
}

func (s *storeExperience) eventCount(ctx context.Context, participantID, eventID string) (int, error) {
	through, err := s.timeline.position(eventID)
	if err != nil {
		return 0, err
	}
	results, err := s.store.ParticipantResults(ctx, participantID)
	if err != nil {
		return 0, fmt.Errorf("load results of participant %s: %w", participantID, err)
	}
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		i, err := s.timeline.position(r.EventID)
		if err != nil {
			return 0, err
		}
		if i <= through {
			seen[r.EventID] = struct{}{}
		}
	}
	return len(seen), nil
}

// replayExperience answers from attendance precomputed for a full replay.
// attended holds ascending timeline positions per participant.
type replayExperience struct {
	timeline *timeline
	attended map[string][]int
}

func (r *replayExperience) eventCount(_ context.Context, participantID, eventID string) (int, error) {
	through, err := r.timeline.position(eventID)
	if err != nil {
		return 0, err
	}
	return sort.SearchInts(r.attended[participantID], through+1), nil
}
