// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// uploadField is the multipart form field carrying the survey export.
const uploadField = "file"

// DatasetHandler handles dataset upload and lifecycle requests.
type DatasetHandler struct {
	deps     DatasetDependencies
	maxBytes int64
}

// NewDatasetHandler creates a new dataset handler.
func NewDatasetHandler(deps DatasetDependencies, maxBytes int64) *DatasetHandler {
	return &DatasetHandler{deps: deps, maxBytes: maxBytes}
}

// HandleUpload handles POST /datasets. The body is either the raw CSV or a
// multipart form with a "file" field.
func (h *DatasetHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	data, source, err := h.readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", ErrPayloadTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ds, err := h.deps.LoadDataset(r.Context(), bytes.NewReader(data), source)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ds)
}

func (h *DatasetHandler) readUpload(r *http.Request) ([]byte, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", err
		}
		source := r.URL.Query().Get("name")
		if source == "" {
			source = "upload.csv"
		}
		return data, source, nil
	}

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return nil, "", err
	}
	f, hdr, err := r.FormFile(uploadField)
	if err != nil {
		return nil, "", fmt.Errorf("%w: form field %q", ErrMissingUpload, uploadField)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, strings.TrimSpace(hdr.Filename), nil
}

// HandleCurrent handles GET /datasets/current.
func (h *DatasetHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	ds, err := h.deps.Current(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

// HandleClear handles DELETE /datasets/current.
func (h *DatasetHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.ClearDataset(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
