// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
)

// ExportHandler handles summary export requests.
type ExportHandler struct {
	deps ExportDependencies
}

// NewExportHandler creates a new export handler.
func NewExportHandler(deps ExportDependencies) *ExportHandler {
	return &ExportHandler{deps: deps}
}

// HandleCSV handles GET /export.csv as a file download.
func (h *ExportHandler) HandleCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	name, err := h.deps.ExportCSV(r.Context(), &buf)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// HandleJSON handles GET /export.
func (h *ExportHandler) HandleJSON(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.ExportRows(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
