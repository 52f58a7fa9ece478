package api

import (
	"net/http"

	"github.com/okian/pitwall/internal/domain/features"
	"github.com/okian/pitwall/internal/domain/types"
)

// ColumnsHandler serves the column registry. The set is fixed at build time.
type ColumnsHandler struct {
	columns []types.Column
}

// NewColumnsHandler creates a new columns handler.
func NewColumnsHandler() *ColumnsHandler {
	cols := features.Columns()
	out := make([]types.Column, len(cols))
	for i, c := range cols {
		out[i] = types.Column{Name: c.Name, Type: c.Type.String(), Role: c.Role.String(), Nullable: c.Nullable, Doc: c.Doc}
	}
	return &ColumnsHandler{columns: out}
}

// HandleColumns handles GET /columns[?role=feature] requests.
func (h *ColumnsHandler) HandleColumns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	role := r.URL.Query().Get("role")
	if role == "" {
		writeJSON(w, http.StatusOK, h.columns)
		return
	}
	out := make([]types.Column, 0, len(h.columns))
	for _, c := range h.columns {
		if c.Role == role {
			out = append(out, c)
		}
	}
	writeJSON(w, http.StatusOK, out)
}
