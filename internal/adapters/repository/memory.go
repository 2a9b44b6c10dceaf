package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/rating"
)

// MemoryStore keeps everything in maps guarded by one RWMutex. Writes that
// span several records, like ApplyDivision, happen under a single lock and
// are therefore all-or-nothing.
type MemoryStore struct {
	mu           sync.RWMutex
	participants map[string]model.Participant
	events       map[string]model.Event
	results      map[model.ResultKey]model.Result
	seq          uint64
	closed       bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		participants: make(map[string]model.Participant),
		events:       make(map[string]model.Event),
		results:      make(map[model.ResultKey]model.Result),
	}
}

var _ Store = (*MemoryStore)(nil)

// Participant returns a participant by id.
func (s *MemoryStore) Participant(_ context.Context, id string) (model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return model.Participant{}, fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	return p, nil
}

// Participants returns all participants ordered by id.
func (s *MemoryStore) Participants(_ context.Context) ([]model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b model.Participant) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// Event returns an event by id.
func (s *MemoryStore) Event(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return ev, nil
}

// Events returns all events in replay order.
func (s *MemoryStore) Events(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev)
	}
	model.SortEvents(out)
	return out, nil
}

// EventResults returns the results of one event ordered by key.
func (s *MemoryStore) EventResults(_ context.Context, eventID string) ([]model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r model.Result) bool { return r.EventID == eventID }), nil
}

// ParticipantResults returns every result of one participant ordered by key.
func (s *MemoryStore) ParticipantResults(_ context.Context, participantID string) ([]model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(r model.Result) bool { return r.ParticipantID == participantID }), nil
}

func (s *MemoryStore) collect(keep func(model.Result) bool) []model.Result {
	var out []model.Result
	for _, r := range s.results {
		if keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b model.Result) int { return strings.Compare(a.Key().String(), b.Key().String()) })
	return out
}

// ApplyDivision adds each delta to its participant and stamps it on the
// participant's results in the division.
func (s *MemoryStore) ApplyDivision(_ context.Context, u rating.DivisionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	for id := range u.Deltas {
		if _, ok := s.participants[id]; !ok {
			return fmt.Errorf("participant %s: %w", id, ErrNotFound)
		}
	}
	for id, delta := range u.Deltas {
		p := s.participants[id]
		p.Rating += delta
		s.participants[id] = p
	}
	for k, r := range s.results {
		if r.EventID != u.EventID || r.Division != u.Division {
			continue
		}
		if delta, ok := u.Deltas[r.ParticipantID]; ok {
			r.RatingChange = delta
			s.results[k] = r
		}
	}
	return nil
}

// ResetRatings restores every rating and clears recorded changes.
func (s *MemoryStore) ResetRatings(_ context.Context, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for id, p := range s.participants {
		p.Rating = value
		s.participants[id] = p
	}
	for k, r := range s.results {
		r.RatingChange = 0
		s.results[k] = r
	}
	return nil
}

// ScaleRatings multiplies the ratings of ids by factor. Unknown ids are an
// error and nothing is changed.
func (s *MemoryStore) ScaleRatings(_ context.Context, ids []string, factor float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, id := range ids {
		if _, ok := s.participants[id]; !ok {
			return fmt.Errorf("participant %s: %w", id, ErrNotFound)
		}
	}
	for _, id := range ids {
		p := s.participants[id]
		p.Rating *= factor
		s.participants[id] = p
	}
	return nil
}

// UpsertParticipant creates p when its id is new.
func (s *MemoryStore) UpsertParticipant(_ context.Context, p model.Participant) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Unchanged, ErrClosed
	}
	if _, ok := s.participants[p.ID]; ok {
		return Unchanged, nil
	}
	s.participants[p.ID] = p
	return Added, nil
}

// UpsertEvent stores ev, keeping the sequence of an existing event.
func (s *MemoryStore) UpsertEvent(_ context.Context, ev model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.Event{}, ErrClosed
	}
	if old, ok := s.events[ev.ID]; ok {
		ev.Seq = old.Seq
	} else {
		s.seq++
		ev.Seq = s.seq
	}
	s.events[ev.ID] = ev
	return ev, nil
}

// UpsertResult inserts r or updates the place of an existing result.
func (s *MemoryStore) UpsertResult(_ context.Context, r model.Result) (Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Unchanged, ErrClosed
	}
	k := r.Key()
	old, ok := s.results[k]
	if !ok {
		r.RatingChange = 0
		s.results[k] = r
		return Added, nil
	}
	if old.Place == r.Place {
		return Unchanged, nil
	}
	old.Place = r.Place
	s.results[k] = old
	return Updated, nil
}

// Counts summarizes the store.
func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	affiliations := make(map[string]struct{})
	for _, p := range s.participants {
		affiliations[p.Affiliation] = struct{}{}
	}
	return Counts{
		Participants: len(s.participants),
		Events:       len(s.events),
		Affiliations: len(affiliations),
		Results:      len(s.results),
	}, nil
}

// Close marks the store closed; later writes fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
