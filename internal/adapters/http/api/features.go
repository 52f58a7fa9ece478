package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/domain/types"
)

// FeatureDependencies defines the participant lookups.
type FeatureDependencies interface {
	ByParticipant(ctx context.Context, participantID int64) ([]features.Row, error)
	Row(ctx context.Context, participantID, eventID int64) (features.Row, error)
}

// FeaturesHandler serves the rows of one participant.
type FeaturesHandler struct {
	deps FeatureDependencies
}

// NewFeaturesHandler creates a new features handler.
func NewFeaturesHandler(deps FeatureDependencies) *FeaturesHandler {
	return &FeaturesHandler{deps: deps}
}

// HandleGetFeatures handles GET /features/{participant_id}[?event_id=N].
// With event_id the single row of that race is returned.
func (h *FeaturesHandler) HandleGetFeatures(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_features"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	participantID, err := pathID(r.URL.Path, "/features/")
	if err != nil {
		writeError(w, http.StatusBadRequest, errCodeBadRequest, fmt.Errorf("%s: participant id: %w", op, err))
		return
	}

	if raw := r.URL.Query().Get("event_id"); raw != "" {
		eventID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || eventID < 1 {
			writeError(w, http.StatusBadRequest, errCodeBadRequest, fmt.Errorf("%s: event_id: %w", op, ErrBadRequest))
			return
		}
		row, err := h.deps.Row(r.Context(), participantID, eventID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toFeatureRow(&row))
		return
	}

	rows, err := h.deps.ByParticipant(r.Context(), participantID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ParticipantFeatures{ParticipantID: participantID, Rows: toFeatureRows(rows)})
}
