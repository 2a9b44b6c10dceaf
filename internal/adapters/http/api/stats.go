package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/sailrank/internal/domain/types"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) types.Stats
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats(r.Context()))
}

// MaintenanceDependencies defines the rating maintenance operations.
type MaintenanceDependencies interface {
	Recalculate(ctx context.Context, applyDecay bool) (types.RecalculationReport, error)
	ApplyDecay(ctx context.Context) (int, error)
}

// MaintenanceHandler handles recalculation and decay requests.
type MaintenanceHandler struct {
	deps MaintenanceDependencies
}

// NewMaintenanceHandler creates a new maintenance handler.
func NewMaintenanceHandler(deps MaintenanceDependencies) *MaintenanceHandler {
	return &MaintenanceHandler{deps: deps}
}

type decayResponse struct {
	Decayed int `json:"decayed"`
}

// HandleRecalculate handles POST /recalculate[?apply_decay=true] requests.
func (h *MaintenanceHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	const op = "api.recalculate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	applyDecay := false
	if v := r.URL.Query().Get("apply_decay"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		applyDecay = b
	}
	rep, err := h.deps.Recalculate(r.Context(), applyDecay)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleDecay handles POST /decay requests. Calling it more than once per
// season decays inactive participants again.
func (h *MaintenanceHandler) HandleDecay(w http.ResponseWriter, r *http.Request) {
	const op = "api.decay"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	n, err := h.deps.ApplyDecay(r.Context())
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, decayResponse{Decayed: n})
}
