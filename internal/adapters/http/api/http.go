// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/pitwall/internal/adapters/repository"
	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/domain/types"
)

// Dependencies required by HTTP handlers: read access to the published
// feature table.
type Dependencies interface {
	Current(ctx context.Context) (*repository.Snapshot, error)
	ByParticipant(ctx context.Context, participantID int64) ([]features.Row, error)
	Row(ctx context.Context, participantID, eventID int64) (features.Row, error)
	ByEvent(ctx context.Context, eventID int64) ([]features.Row, error)
}

// Server wires HTTP routes for the read API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	columnsHandler  *ColumnsHandler
	featuresHandler *FeaturesHandler
	eventsHandler   *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		columnsHandler:  NewColumnsHandler(),
		featuresHandler: NewFeaturesHandler(deps),
		eventsHandler:   NewEventsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/columns", MetricsMiddleware(s.columnsHandler.HandleColumns, "columns"))
	mux.HandleFunc("/features/", MetricsMiddleware(s.featuresHandler.HandleGetFeatures, "features"))
	mux.HandleFunc("/events/", MetricsMiddleware(s.eventsHandler.HandleGetEvent, "events"))
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

// writeStoreError maps repository errors to status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, errCodeNotFound, err)
	case errors.Is(err, repository.ErrNotPublished):
		writeError(w, http.StatusServiceUnavailable, errCodeNotReady, err)
	default:
		writeError(w, http.StatusInternalServerError, errCodeInternal, err)
	}
}

// pathID parses the single path segment after prefix as a positive id.
func pathID(path, prefix string) (int64, error) {
	seg := strings.TrimPrefix(path, prefix)
	if seg == "" || strings.Contains(seg, "/") {
		return 0, ErrBadRequest
	}
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil || id < 1 {
		return 0, ErrBadRequest
	}
	return id, nil
}

// toFeatureRow renders a row keyed by column name.
func toFeatureRow(r *features.Row) types.FeatureRow {
	cols := features.Columns()
	values := make(map[string]any, len(cols))
	for i, v := range r.Values() {
		values[cols[i].Name] = v
	}
	return types.FeatureRow{
		ResultID:      r.ResultID,
		EventID:       r.EventID,
		ParticipantID: r.ParticipantID,
		Season:        r.Season,
		Round:         r.Round,
		Split:         r.Split,
		Values:        values,
	}
}

func toFeatureRows(rows []features.Row) []types.FeatureRow {
	out := make([]types.FeatureRow, len(rows))
	for i := range rows {
		out[i] = toFeatureRow(&rows[i])
	}
	return out
}
