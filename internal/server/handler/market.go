package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/pitsim/pitsim/internal/domain"
)

// SnapshotProvider is the read surface the REST handlers need from the
// simulation engine. Queries go through the engine's command queue, so a
// response can never show a torn state.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}

// MarketHandler serves read-only projections of the current snapshot.
type MarketHandler struct {
	sim    SnapshotProvider
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler backed by the given provider.
func NewMarketHandler(sim SnapshotProvider, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{sim: sim, logger: logger}
}

// GetSnapshot returns the full current snapshot.
// GET /api/snapshot
func (h *MarketHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sim.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "simulation unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListAssets returns the current asset quotes.
// GET /api/assets
func (h *MarketHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sim.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "simulation unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tick":   snap.Tick,
		"assets": snap.Assets,
	})
}

// GetLeaderboard returns the current ranking.
// GET /api/leaderboard
func (h *MarketHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sim.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "simulation unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tick":        snap.Tick,
		"leaderboard": snap.Leaderboard,
	})
}
