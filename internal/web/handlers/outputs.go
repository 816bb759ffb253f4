package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/backdrop/internal/compose"
	"github.com/kozaktomas/backdrop/internal/pipeline"
)

// OutputsHandler serves the two fixed result files.
type OutputsHandler struct {
	storage *pipeline.Storage
}

// NewOutputsHandler creates a new outputs handler.
func NewOutputsHandler(storage *pipeline.Storage) *OutputsHandler {
	return &OutputsHandler{storage: storage}
}

// Get handles GET /outputs/{name}. ?format=webp re-encodes the PNG.
func (h *OutputsHandler) Get(w http.ResponseWriter, r *http.Request) {
	path, err := h.storage.OutputPath(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, http.StatusNotFound, "output not found")
		return
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		respondError(w, http.StatusNotFound, "output not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read output")
		return
	}

	contentType := "image/png"
	if format := r.URL.Query().Get("format"); format != "" && format != "png" {
		img, err := compose.DecodeNRGBA(data)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to decode output")
			return
		}
		if data, contentType, err = compose.Encode(img, format); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	// outputs are overwritten in place on every run
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
