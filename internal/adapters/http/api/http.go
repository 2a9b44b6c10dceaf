// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/sailrank/internal/adapters/standings"
	service "github.com/okian/sailrank/internal/app"
	"github.com/okian/sailrank/internal/domain/model"
	"github.com/okian/sailrank/internal/domain/types"
)

const defaultMaxLimit = 500

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit queues a result sheet. It reports whether the submission was a
	// duplicate of one already accepted.
	Submit(ctx context.Context, sub model.Submission) (string, bool, error)

	// Read operations expose leaderboard data.
	TopN(ctx context.Context, n int, gradYear string) ([]Entry, error)
	Rank(ctx context.Context, participantID string) (Entry, error)
	Profile(ctx context.Context, participantID string) (types.Profile, error)

	// Maintenance operations.
	Recalculate(ctx context.Context, applyDecay bool) (types.RecalculationReport, error)
	ApplyDecay(ctx context.Context) (int, error)

	GetStats(ctx context.Context) types.Stats
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = standings.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	eventsHandler      *EventsHandler
	leaderboardHandler *LeaderboardHandler
	rankHandler        *RankHandler
	profileHandler     *ProfileHandler
	maintenanceHandler *MaintenanceHandler
}

// NewServer creates a new API server with all handlers. A non-positive
// maxLimit falls back to the default leaderboard cap.
func NewServer(deps Dependencies, maxLimit int) *Server {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		eventsHandler:      NewEventsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		profileHandler:     NewProfileHandler(deps),
		maintenanceHandler: NewMaintenanceHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/rank/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/participants/", MetricsMiddleware(s.profileHandler.HandleGetProfile, "participants"))
	mux.HandleFunc("/recalculate", MetricsMiddleware(s.maintenanceHandler.HandleRecalculate, "recalculate"))
	mux.HandleFunc("/decay", MetricsMiddleware(s.maintenanceHandler.HandleDecay, "decay"))
}

type ackResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	case errors.Is(err, service.ErrInvalidSubmission):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
