package api

import (
	"context"
	"net/http"

	"github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/internal/domain/types"
)

// StatsProvider exposes the current snapshot.
type StatsProvider interface {
	Current(ctx context.Context) (*repository.Snapshot, error)
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
	snap, err := h.statsProvider.Current(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.Stats{
		RunID:       snap.RunID,
		PublishedAt: snap.PublishedAt,
		Rows:        snap.Table.Len(),
		Partitions:  snap.Stats,
	})
}
