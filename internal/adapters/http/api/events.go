package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/domain/types"
)

// EventDependencies defines the per-race lookup.
type EventDependencies interface {
	ByEvent(ctx context.Context, eventID int64) ([]features.Row, error)
}

// EventsHandler serves every row of one race.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleGetEvent handles GET /events/{event_id} requests.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	eventID, err := pathID(r.URL.Path, "/events/")
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, fmt.Errorf("%s: event id: %w", op, err))
		return
	}
	rows, err := h.deps.ByEvent(r.Context(), eventID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.EventFeatures{EventID: eventID, Rows: toFeatureRows(rows)})
}
