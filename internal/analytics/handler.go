package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

const maxHistory = 100

// SnapshotLister reads persisted snapshots, newest first.
type SnapshotLister interface {
	List(ctx context.Context, limit int) ([]Snapshot, error)
}

type Handler struct {
	aggregator *Aggregator
	history    SnapshotLister
	logger     *slog.Logger
}

// NewHandler serves aggregator's stats. history may be nil when snapshots
// are not persisted.
func NewHandler(aggregator *Aggregator, history SnapshotLister) *Handler {
	return &Handler{
		aggregator: aggregator,
		history:    history,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

type statsResponse struct {
	Current Stats      `json:"current"`
	History []Snapshot `json:"history,omitempty"`
}

// Stats handles GET /api/v1/analytics[?history=N].
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Current: h.aggregator.Stats()}

	if raw := r.URL.Query().Get("history"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "history must be a positive integer"})
			return
		}
		if h.history == nil {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "snapshot history is disabled"})
			return
		}
		snapshots, err := h.history.List(r.Context(), min(n, maxHistory))
		if err != nil {
			h.logger.Error("listing snapshots failed", "error", err)
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load snapshot history"})
			return
		}
		resp.History = snapshots
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
