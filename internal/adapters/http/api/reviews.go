// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/HeikoBre/screening-dashboard-sandbox/internal/domain/types"
)

// reviewRequest mirrors the OpenAPI schema for PUT /reviews/{gene}.
type reviewRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

type reviewListResponse struct {
	Reviews  []types.Review `json:"reviews"`
	Progress types.Progress `json:"progress"`
	Label    string         `json:"label"`
}

// ReviewHandler handles review ledger requests.
type ReviewHandler struct {
	deps ReviewDependencies
}

// NewReviewHandler creates a new review handler.
func NewReviewHandler(deps ReviewDependencies) *ReviewHandler {
	return &ReviewHandler{deps: deps}
}

// HandlePut handles PUT /reviews/{gene}. An empty decision with blank
// notes clears the review.
func (h *ReviewHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	review, err := h.deps.SetReview(r.Context(), mux.Vars(r)["gene"], req.Decision, req.Notes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// HandleDelete handles DELETE /reviews/{gene}.
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ClearReview(r.Context(), mux.Vars(r)["gene"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /reviews.
func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Reviews(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewListResponse{
		Reviews:  list.Reviews,
		Progress: list.Progress,
		Label:    list.Progress.Label(),
	})
}
