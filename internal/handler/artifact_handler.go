package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

// ArtifactHandler serves stored artifacts back to the caller.
type ArtifactHandler struct {
	store  domain.ArtifactStore
	logger domain.Logger
}

// NewArtifactHandler creates a new artifact handler instance
func NewArtifactHandler(store domain.ArtifactStore, logger domain.Logger) *ArtifactHandler {
	return &ArtifactHandler{store: store, logger: logger}
}

// Download streams one stored artifact by name
func (h *ArtifactHandler) Download(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	data, contentType, err := h.store.Open(name)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

// CreateZip bundles previously produced artifacts into one download
func (h *ArtifactHandler) CreateZip(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Files []string `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, apperrors.NewInvalidRequest("body must be JSON with a files list"))
		return
	}
	name, err := h.store.Zip(body.Files)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output_file": name})
}

// Cleanup removes expired stored files immediately
func (h *ArtifactHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.store.Cleanup()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
