// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// GeneHandler handles gene overview and detail requests.
type GeneHandler struct {
	deps GeneDependencies
}

// NewGeneHandler creates a new gene handler.
func NewGeneHandler(deps GeneDependencies) *GeneHandler {
	return &GeneHandler{deps: deps}
}

// HandleList handles GET /genes.
func (h *GeneHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	genes, err := h.deps.Genes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, genes)
}

// HandleGet handles GET /genes/{gene}.
func (h *GeneHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	detail, err := h.deps.Gene(r.Context(), mux.Vars(r)["gene"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
