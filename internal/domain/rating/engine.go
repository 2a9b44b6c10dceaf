// Package rating implements the pairwise ELO variant that turns per-division
// finishing places into participant ratings.
//
// The engine is synchronous and holds no locks. Two aggregations touching the
// same participants must not run concurrently; callers serialize them.
package rating

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/season"
	"github.com/okian/sailrank/pkg/logger"
	"github.com/okian/sailrank/pkg/metrics"
)

// Engine defaults.
const (
	PrimaryDivision              = "A"
	defaultPrimaryDivisionWeight = 1.2
	defaultDivisionWeight        = 1.0
	defaultDecayFactor           = 0.97
	minFleetSize                 = 2
)

// Report summarizes the work done by one engine call.
type Report struct {
	Events      int           `json:"events"`
	Divisions   int           `json:"divisions"`
	Skipped     int           `json:"skipped_divisions"`
	Comparisons int           `json:"comparisons"`
	Season      season.ID     `json:"season"`
	Duration    time.Duration `json:"duration"`
}

func (r *Report) add(o Report) {
	r.Events += o.Events
	r.Divisions += o.Divisions
	r.Skipped += o.Skipped
	r.Comparisons += o.Comparisons
}

// Engine computes and applies rating changes against a Store.
type Engine struct {
	store  Store
	clock  season.Clock
	logger logger.Logger

	initialRating         float64
	primaryDivisionWeight float64
	decayFactor           float64
}

// NewEngine constructs an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:                 store,
		clock:                 season.SystemClock{},
		logger:                logger.Nop(),
		initialRating:         model.InitialRating,
		primaryDivisionWeight: defaultPrimaryDivisionWeight,
		decayFactor:           defaultDecayFactor,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CurrentSeason returns the season of the engine clock.
func (e *Engine) CurrentSeason() season.ID {
	return season.CurrentFrom(e.clock)
}

func (e *Engine) reference(ref season.ID) season.ID {
	if ref.IsZero() {
		return e.CurrentSeason()
	}
	return ref
}

// DivisionWeight returns the importance of a division label.
func (e *Engine) DivisionWeight(division string) float64 {
	if division == PrimaryDivision {
		return e.primaryDivisionWeight
	}
	return defaultDivisionWeight
}

// ProcessEvent aggregates every division of one event. It is the hook run
// after an event's results are ingested. A zero ref means the clock's season.
func (e *Engine) ProcessEvent(ctx context.Context, eventID string, ref season.ID) (Report, error) {
	ref = e.reference(ref)
	rep := Report{Season: ref}

	ev, err := e.store.Event(ctx, eventID)
	if err != nil {
		return rep, fmt.Errorf("%w: %s: %w", ErrEventNotFound, eventID, err)
	}
	tl, err := e.loadTimeline(ctx)
	if err != nil {
		return rep, err
	}
	results, err := e.store.EventResults(ctx, ev.ID)
	if err != nil {
		return rep, fmt.Errorf("load results of %s: %w", ev.ID, err)
	}

	out, err := e.processEvent(ctx, ev, results, &storeExperience{store: e.store, timeline: tl}, ref)
	rep.add(out)
	if err != nil {
		return rep, err
	}
	e.logger.Debug(ctx, "event aggregated",
		logger.String("event", ev.ID),
		logger.String("season", ev.Season.String()),
		logger.Int("divisions", rep.Divisions),
		logger.Int("skipped", rep.Skipped),
	)
	metrics.RecordEventAggregated()
	return rep, nil
}

// AggregateDivision aggregates a single division of an event and returns the
// per-participant rating change that was applied. Divisions with fewer than
// two results are a no-op and return a nil map.
func (e *Engine) AggregateDivision(ctx context.Context, eventID, division string, ref season.ID) (map[string]float64, error) {
	ref = e.reference(ref)

	ev, err := e.store.Event(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrEventNotFound, eventID, err)
	}
	tl, err := e.loadTimeline(ctx)
	if err != nil {
		return nil, err
	}
	sw, err := season.Weight(ev.Season, ref)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	all, err := e.store.EventResults(ctx, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("load results of %s: %w", ev.ID, err)
	}

	var results []model.Result
	for _, r := range all {
		if r.Division == division {
			results = append(results, r)
		}
	}
	deltas, _, err := e.aggregate(ctx, ev, division, results, sw, &storeExperience{store: e.store, timeline: tl})
	return deltas, err
}

// RecalculateAll resets every rating to the initial value and replays the
// full event history in (date, sequence) order. Replays are path dependent;
// the same history always yields the same ratings.
func (e *Engine) RecalculateAll(ctx context.Context, ref season.ID) (Report, error) {
	start := time.Now()
	ref = e.reference(ref)
	rep := Report{Season: ref}

	tl, err := e.loadTimeline(ctx)
	if err != nil {
		return rep, err
	}
	for _, ev := range tl.events {
		if _, err := season.Weight(ev.Season, ref); err != nil {
			return rep, fmt.Errorf("event %s: %w", ev.ID, err)
		}
	}

	byEvent := make(map[string][]model.Result, len(tl.events))
	attended := make(map[string][]int)
	for i, ev := range tl.events {
		results, err := e.store.EventResults(ctx, ev.ID)
		if err != nil {
			return rep, fmt.Errorf("load results of %s: %w", ev.ID, err)
		}
		byEvent[ev.ID] = results
		seen := make(map[string]struct{}, len(results))
		for _, r := range results {
			if _, ok := seen[r.ParticipantID]; ok {
				continue
			}
			seen[r.ParticipantID] = struct{}{}
			attended[r.ParticipantID] = append(attended[r.ParticipantID], i)
		}
	}
	exp := &replayExperience{timeline: tl, attended: attended}

	if err := e.store.ResetRatings(ctx, e.initialRating); err != nil {
		return rep, fmt.Errorf("reset ratings: %w", err)
	}

	for _, ev := range tl.events {
		out, err := e.processEvent(ctx, ev, byEvent[ev.ID], exp, ref)
		rep.add(out)
		if err != nil {
			return rep, err
		}
	}

	rep.Duration = time.Since(start)
	metrics.RecordRecalculation(float64(rep.Duration.Milliseconds()))
	e.logger.Info(ctx, "ratings recalculated",
		logger.String("season", ref.String()),
		logger.Int("events", rep.Events),
		logger.Int("divisions", rep.Divisions),
		logger.Int("comparisons", rep.Comparisons),
		logger.Duration("took", rep.Duration),
	)
	return rep, nil
}

// ApplyInactiveDecay shrinks by the decay factor the rating of every
// participant without a result in season ref and returns how many were
// decayed.
//
// The engine does not remember having run: calling it twice in one season
// compounds the decay. Callers must invoke it at most once per season.
func (e *Engine) ApplyInactiveDecay(ctx context.Context, ref season.ID) (int, error) {
	ref = e.reference(ref)

	events, err := e.store.Events(ctx)
	if err != nil {
		return 0, fmt.Errorf("load events: %w", err)
	}
	active := make(map[string]struct{})
	for _, ev := range events {
		if ev.Season != ref {
			continue
		}
		results, err := e.store.EventResults(ctx, ev.ID)
		if err != nil {
			return 0, fmt.Errorf("load results of %s: %w", ev.ID, err)
		}
		for _, r := range results {
			active[r.ParticipantID] = struct{}{}
		}
	}

	participants, err := e.store.Participants(ctx)
	if err != nil {
		return 0, fmt.Errorf("load participants: %w", err)
	}
	var inactive []string
	for _, p := range participants {
		if _, ok := active[p.ID]; !ok {
			inactive = append(inactive, p.ID)
		}
	}
	if len(inactive) == 0 {
		return 0, nil
	}
	if err := e.store.ScaleRatings(ctx, inactive, e.decayFactor); err != nil {
		return 0, fmt.Errorf("apply decay: %w", err)
	}

	metrics.RecordDecayApplied(len(inactive))
	e.logger.Info(ctx, "inactive decay applied",
		logger.String("season", ref.String()),
		logger.Int("decayed", len(inactive)),
		logger.Int("active", len(active)),
	)
	return len(inactive), nil
}

// processEvent aggregates every division of ev in label order.
func (e *Engine) processEvent(ctx context.Context, ev model.Event, results []model.Result, exp experience, ref season.ID) (Report, error) {
	rep := Report{Events: 1}
	sw, err := season.Weight(ev.Season, ref)
	if err != nil {
		return rep, fmt.Errorf("event %s: %w", ev.ID, err)
	}

	byDivision := make(map[string][]model.Result, 2)
	for _, r := range results {
		byDivision[r.Division] = append(byDivision[r.Division], r)
	}
	for _, division := range model.Divisions(results) {
		deltas, comparisons, err := e.aggregate(ctx, ev, division, byDivision[division], sw, exp)
		if err != nil {
			return rep, err
		}
		if deltas == nil {
			rep.Skipped++
			continue
		}
		rep.Divisions++
		rep.Comparisons += comparisons
	}
	return rep, nil
}

// aggregate compares every result of a division against every result held by
// another participant. Ratings are read once before the first comparison and
// the summed deltas are written once at the end.
func (e *Engine) aggregate(ctx context.Context, ev model.Event, division string, results []model.Result, seasonWeight float64, exp experience) (map[string]float64, int, error) {
	fleet := len(results)
	if fleet < minFleetSize {
		metrics.RecordDivisionSkipped()
		return nil, 0, nil
	}

	ratings := make(map[string]float64, fleet)
	ks := make(map[string]int, fleet)
	for _, r := range results {
		if _, ok := ratings[r.ParticipantID]; ok {
			continue
		}
		p, err := e.store.Participant(ctx, r.ParticipantID)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s: %w", ErrParticipantNotFound, r.ParticipantID, err)
		}
		n, err := exp.eventCount(ctx, r.ParticipantID, ev.ID)
		if err != nil {
			return nil, 0, err
		}
		ratings[r.ParticipantID] = p.Rating
		ks[r.ParticipantID] = KFactor(n)
	}

	dw := e.DivisionWeight(division)
	deltas := make(map[string]float64, fleet)
	comparisons := 0
	for _, r := range results {
		sum := deltas[r.ParticipantID]
		for _, o := range results {
			if o.ParticipantID == r.ParticipantID {
				continue
			}
			sum += PairwiseDelta(Pairing{
				Rating:         ratings[r.ParticipantID],
				OpponentRating: ratings[o.ParticipantID],
				Place:          r.Place,
				OpponentPlace:  o.Place,
				K:              ks[r.ParticipantID],
				FleetSize:      fleet,
				EventWeight:    ev.Weight,
				DivisionWeight: dw,
				SeasonWeight:   seasonWeight,
			})
			comparisons++
		}
		deltas[r.ParticipantID] = sum
	}

	if err := e.store.ApplyDivision(ctx, DivisionUpdate{EventID: ev.ID, Division: division, Deltas: deltas}); err != nil {
		return nil, 0, fmt.Errorf("apply division %s of %s: %w", division, ev.ID, err)
	}
	metrics.RecordDivisionAggregated(comparisons, len(deltas))
	return deltas, comparisons, nil
}
