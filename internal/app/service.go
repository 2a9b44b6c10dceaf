// Package service wires the rating engine to storage, standings and the
// ingestion queue, and implements the dependencies of the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sailrank/internal/adapters/mq/queue"
	"github.com/okian/sailrank/internal/adapters/mq/worker"
	"github.com/okian/sailrank/internal/adapters/repository"
	"github.com/okian/sailrank/internal/adapters/standings"
	"github.com/okian/sailrank/internal/domain/dedupe"
	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/rating"
	"github.com/okian/sailrank/internal/domain/season"
	"github.com/okian/sailrank/internal/domain/types"
	"github.com/okian/sailrank/pkg/logger"
	"github.com/okian/sailrank/pkg/metrics"
)

const workerShutdownTimeout = 30 * time.Second

// Service owns the running system.
//
// Rating updates are path dependent, so every engine call runs under ratingMu
// and submissions are drained by a single worker.
type Service struct {
	mu       sync.RWMutex
	ratingMu sync.Mutex

	store   repository.Store
	engine  *rating.Engine
	table   *standings.Table
	deduper dedupe.Deduper
	queue   *queue.InMemoryQueue
	worker  *worker.InMemoryWorker

	queueSize             int
	dedupeSize            int
	boltPath              string
	initialRating         float64
	primaryDivisionWeight float64
	decayFactor           float64
	eventTypeWeights      map[string]float64
	defaultEventWeight    float64
	referenceSeason       season.ID
	clock                 season.Clock

	started bool
	lastRun atomic.Value // string

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:             1024,
		dedupeSize:            50000,
		initialRating:         model.InitialRating,
		primaryDivisionWeight: 1.2,
		decayFactor:           0.97,
		defaultEventWeight:    model.DefaultEventWeight,
		clock:                 season.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens storage, builds the standings and starts the ingestion worker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		if s.boltPath != "" {
			store, err := repository.OpenBolt(s.boltPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			s.store = store
			s.logger.Info(ctx, "using bolt store", logger.String("path", s.boltPath))
		} else {
			s.store = repository.NewMemoryStore()
			s.logger.Info(ctx, "using in-memory store")
		}
	}

	s.engine = rating.NewEngine(s.store,
		rating.WithClock(s.clock),
		rating.WithLogger(s.logger.Named("engine")),
		rating.WithInitialRating(s.initialRating),
		rating.WithPrimaryDivisionWeight(s.primaryDivisionWeight),
		rating.WithDecayFactor(s.decayFactor),
	)

	s.table = standings.New()
	if err := s.rebuildStandings(ctx); err != nil {
		return err
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.worker = worker.NewInMemoryWorker(s.queue, s,
		worker.WithName("ingest"),
		worker.WithLogger(s.logger.Named("worker")),
		worker.WithFailureHandler(func(ctx context.Context, sub model.Submission, _ error) {
			s.deduper.Unrecord(ctx, sub.ID)
		}),
	)
	go s.worker.Run(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Int("participants", s.table.Count()),
		logger.String("season", s.reference().String()),
	)
	return nil
}

// Stop drains the queue, stops the worker and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping rating service...")

	_ = s.queue.Close()
	select {
	case <-s.worker.Done():
	case <-time.After(workerShutdownTimeout):
		s.logger.Warn(ctx, "worker did not drain in time")
		sctx, cancel := context.WithTimeout(ctx, time.Second)
		_ = s.worker.Shutdown(sctx)
		cancel()
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "close store", logger.Error(err))
	}
	s.store = nil
	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

func (s *Service) running() error {
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// reference is the season rating calls are evaluated against.
func (s *Service) reference() season.ID {
	if !s.referenceSeason.IsZero() {
		return s.referenceSeason
	}
	return season.CurrentFrom(s.clock)
}

// Submit validates a submission and queues it for ingestion. It returns the
// submission ID and whether it was a duplicate of one already accepted.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return "", false, err
	}

	if strings.TrimSpace(sub.ID) == "" {
		sub.ID = uuid.NewString()
	}
	if _, err := s.prepareEvent(sub); err != nil {
		metrics.RecordSubmission("rejected")
		return sub.ID, false, err
	}

	if s.deduper.SeenAndRecord(ctx, sub.ID) {
		metrics.RecordSubmission("duplicate")
		return sub.ID, true, nil
	}
	if err := s.queue.Enqueue(ctx, sub); err != nil {
		s.deduper.Unrecord(ctx, sub.ID)
		if errors.Is(err, queue.ErrFull) {
			return sub.ID, false, ErrBackpressure
		}
		return sub.ID, false, fmt.Errorf("enqueue %s: %w", sub.ID, err)
	}
	metrics.RecordSubmission("accepted")
	return sub.ID, false, nil
}

// prepareEvent fills in the derived fields of a submission's event and
// validates the submission.
func (s *Service) prepareEvent(sub model.Submission) (model.Event, error) {
	ev := sub.Event
	ev.Name = strings.TrimSpace(ev.Name)
	ev.URL = strings.TrimSpace(ev.URL)
	if ev.Name == "" {
		return ev, fmt.Errorf("%w: missing event name", ErrInvalidSubmission)
	}
	if ev.Date.IsZero() {
		return ev, fmt.Errorf("%w: missing event date", ErrInvalidSubmission)
	}
	if ev.ID == "" {
		ev.ID = model.EventID(ev.URL, ev.Name, ev.Date)
	}
	if ev.Season.IsZero() {
		ev.Season = season.Current(ev.Date)
	}
	if _, err := season.Weight(ev.Season, s.reference()); err != nil {
		return ev, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	if ev.Type == "" {
		ev.Type = model.ClassifyEvent(ev.Name, sub.Description)
	}
	if ev.Type == model.JuniorVarsity {
		ev.JV = true
	}
	if ev.Weight == 0 {
		ev.Weight = s.defaultEventWeight
		if w, ok := s.eventTypeWeights[string(ev.Type)]; ok && w > 0 {
			ev.Weight = w
		}
	}
	if err := ev.Validate(); err != nil {
		return ev, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	if len(sub.Placements) == 0 {
		return ev, fmt.Errorf("%w: no placements", ErrInvalidSubmission)
	}
	for i, p := range sub.Placements {
		if err := p.Validate(); err != nil {
			return ev, fmt.Errorf("%w: placement %d: %w", ErrInvalidSubmission, i, err)
		}
	}
	return ev, nil
}

// Ingest writes a submission's event, participants and results, then runs
// the rating update for the event. Ingesting the same event twice applies its
// deltas twice; Recalculate rebuilds from scratch.
func (s *Service) Ingest(ctx context.Context, sub model.Submission) (model.IngestStats, error) {
	start := time.Now()
	stats := model.IngestStats{SubmissionID: sub.ID}

	ev, err := s.prepareEvent(sub)
	if err != nil {
		return stats, err
	}
	stats.EventID = ev.ID

	s.ratingMu.Lock()
	defer s.ratingMu.Unlock()

	stored, err := s.store.UpsertEvent(ctx, ev)
	if err != nil {
		return stats, fmt.Errorf("store event %s: %w", ev.ID, err)
	}
	ev = stored

	for _, pl := range sub.Placements {
		p := model.NewParticipant(pl.Name, pl.Affiliation)
		p.Rating = s.initialRating
		change, err := s.store.UpsertParticipant(ctx, p)
		if err != nil {
			return stats, fmt.Errorf("store participant %s: %w", p.Name, err)
		}
		if change == repository.Added {
			stats.ParticipantsAdded++
		}

		change, err = s.store.UpsertResult(ctx, model.Result{
			ParticipantID: p.ID,
			EventID:       ev.ID,
			Division:      strings.TrimSpace(pl.Division),
			Role:          model.NormalizeRole(pl.Role),
			Place:         model.Place(strings.TrimSpace(string(pl.Place))),
		})
		if err != nil {
			return stats, fmt.Errorf("store result of %s: %w", p.Name, err)
		}
		switch change {
		case repository.Added:
			stats.ResultsAdded++
		case repository.Updated:
			stats.ResultsUpdated++
		}
	}
	metrics.RecordResultsIngested(stats.ResultsAdded, stats.ResultsUpdated)

	rep, err := s.engine.ProcessEvent(ctx, ev.ID, s.reference())
	if err != nil {
		return stats, fmt.Errorf("rate event %s: %w", ev.ID, err)
	}
	if err := s.refreshEvent(ctx, ev.ID); err != nil {
		return stats, err
	}

	metrics.RecordIngestLatency(float64(time.Since(start).Microseconds()) / 1000)
	s.logger.Info(ctx, "event ingested",
		logger.String("event", ev.Name),
		logger.String("season", ev.Season.String()),
		logger.Float64("weight", ev.Weight),
		logger.Int("participants_added", stats.ParticipantsAdded),
		logger.Int("results_added", stats.ResultsAdded),
		logger.Int("results_updated", stats.ResultsUpdated),
		logger.Int("divisions", rep.Divisions),
	)
	return stats, nil
}

// refreshEvent moves every participant of an event to their new rating in
// the standings.
func (s *Service) refreshEvent(ctx context.Context, eventID string) error {
	results, err := s.store.EventResults(ctx, eventID)
	if err != nil {
		return fmt.Errorf("load results of %s: %w", eventID, err)
	}
	done := make(map[string]struct{}, len(results))
	for _, r := range results {
		if _, ok := done[r.ParticipantID]; ok {
			continue
		}
		done[r.ParticipantID] = struct{}{}
		p, err := s.store.Participant(ctx, r.ParticipantID)
		if err != nil {
			return fmt.Errorf("load participant %s: %w", r.ParticipantID, err)
		}
		s.table.Set(p)
	}
	return nil
}

func (s *Service) rebuildStandings(ctx context.Context) error {
	participants, err := s.store.Participants(ctx)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	s.table.Rebuild(participants)
	if c, err := s.store.Counts(ctx); err == nil {
		metrics.UpdateEventsTotal(c.Events)
	}
	return nil
}

// Recalculate resets every rating and replays the full history, optionally
// applying the inactivity decay afterwards.
func (s *Service) Recalculate(ctx context.Context, applyDecay bool) (types.RecalculationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return types.RecalculationReport{}, err
	}

	s.ratingMu.Lock()
	defer s.ratingMu.Unlock()

	ref := s.reference()
	out := types.RecalculationReport{RunID: uuid.NewString(), Season: ref.String()}
	log := s.logger.Named("recalculate")
	log.Info(ctx, "recalculation started",
		logger.String("run", out.RunID),
		logger.Bool("apply_decay", applyDecay),
	)

	rep, err := s.engine.RecalculateAll(ctx, ref)
	if err != nil {
		return out, fmt.Errorf("recalculate: %w", err)
	}
	out.Events, out.Divisions, out.Comparisons, out.Duration = rep.Events, rep.Divisions, rep.Comparisons, rep.Duration

	if applyDecay {
		if out.Decayed, err = s.engine.ApplyInactiveDecay(ctx, ref); err != nil {
			return out, fmt.Errorf("decay: %w", err)
		}
	}
	if err := s.rebuildStandings(ctx); err != nil {
		return out, err
	}

	s.lastRun.Store(out.RunID)
	log.Info(ctx, "recalculation finished",
		logger.String("run", out.RunID),
		logger.Int("events", out.Events),
		logger.Int("decayed", out.Decayed),
	)
	return out, nil
}

// ApplyDecay runs the seasonal inactivity decay once. Callers must not run it
// twice in one season.
func (s *Service) ApplyDecay(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return 0, err
	}

	s.ratingMu.Lock()
	defer s.ratingMu.Unlock()

	n, err := s.engine.ApplyInactiveDecay(ctx, s.reference())
	if err != nil {
		return 0, err
	}
	return n, s.rebuildStandings(ctx)
}

// TopN returns the leaderboard. A non-empty gradYear ("26" or "'26") keeps
// only participants whose name carries that graduation year.
func (s *Service) TopN(ctx context.Context, n int, gradYear string) ([]standings.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return nil, err
	}

	var filter standings.Filter
	if gradYear = strings.TrimSpace(gradYear); gradYear != "" {
		if !strings.HasPrefix(gradYear, "'") {
			gradYear = "'" + gradYear
		}
		filter = func(p model.Participant) bool { return strings.Contains(p.Name, gradYear) }
	}
	return s.table.TopN(ctx, n, filter)
}

// Rank returns one participant's leaderboard entry.
func (s *Service) Rank(ctx context.Context, id string) (standings.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return standings.Entry{}, err
	}
	e, err := s.table.Rank(ctx, id)
	if errors.Is(err, standings.ErrNotFound) {
		return e, fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	return e, err
}

// Profile assembles a participant's page with results newest first.
func (s *Service) Profile(ctx context.Context, id string) (types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.running(); err != nil {
		return types.Profile{}, err
	}

	p, err := s.store.Participant(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return types.Profile{}, fmt.Errorf("participant %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return types.Profile{}, err
	}
	results, err := s.store.ParticipantResults(ctx, id)
	if err != nil {
		return types.Profile{}, fmt.Errorf("load results of %s: %w", id, err)
	}

	events := make(map[string]model.Event)
	for _, r := range results {
		if _, ok := events[r.EventID]; ok {
			continue
		}
		ev, err := s.store.Event(ctx, r.EventID)
		if err != nil {
			return types.Profile{}, fmt.Errorf("load event %s: %w", r.EventID, err)
		}
		events[r.EventID] = ev
	}

	history := make([]types.HistoryItem, 0, len(results))
	for _, r := range results {
		ev := events[r.EventID]
		history = append(history, types.HistoryItem{
			EventID:      ev.ID,
			EventName:    ev.Name,
			Date:         ev.Date,
			Season:       ev.Season.String(),
			Division:     r.Division,
			Role:         r.Role,
			Place:        r.Place,
			RatingChange: r.RatingChange,
		})
	}
	sortHistory(history, events)

	grad, _ := model.GradYear(p.Name)
	out := types.Profile{
		ID:          p.ID,
		Name:        p.Name,
		CleanName:   model.CleanName(p.Name),
		GradYear:    grad,
		Affiliation: p.Affiliation,
		Rating:      p.Rating,
		PrimaryRole: types.PrimaryRole(results),
		History:     history,
	}
	if e, err := s.table.Rank(ctx, id); err == nil {
		out.Rank = e.Rank
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := types.Stats{Started: s.started, Season: s.reference().String()}
	if !s.started {
		return st
	}
	if c, err := s.store.Counts(ctx); err == nil {
		st.Participants, st.Events, st.Affiliations, st.Results = c.Participants, c.Events, c.Affiliations, c.Results
		metrics.UpdateEventsTotal(c.Events)
	}
	st.QueueLength = s.queue.Len(ctx)
	st.DedupeSize = s.deduper.Size()
	st.LastRecalculate, _ = s.lastRun.Load().(string)
	return st
}

// sortHistory orders results newest event first, then by division and role.
func sortHistory(history []types.HistoryItem, events map[string]model.Event) {
	slices.SortStableFunc(history, func(a, b types.HistoryItem) int {
		if c := model.CompareEvents(events[b.EventID], events[a.EventID]); c != 0 {
			return c
		}
		if c := strings.Compare(a.Division, b.Division); c != 0 {
			return c
		}
		return strings.Compare(string(a.Role), string(b.Role))
	})
}
