// Package handlers provides HTTP handlers for flip ingestion and
// aggregates.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/modules/flips"
)

// maxImportSize caps uploaded CSV bodies at 32 MB.
const maxImportSize = 32 << 20

// Handler handles flips HTTP requests
type Handler struct {
	service *flips.Service
	log     zerolog.Logger
}

// NewHandler creates a new flips handler
func NewHandler(service *flips.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "flips").Logger(),
	}
}

// RegisterRoutes registers flips routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/flips", func(r chi.Router) {
		r.Post("/import", h.HandleImport)
		r.Post("/rescan", h.HandleRescan)
		r.Get("/summary", h.HandleSummary)
		r.Get("/daily", h.HandleDaily)
		r.Get("/batches", h.HandleBatches)
	})
}

// HandleImport handles POST /api/flips/import
// Accepts a CSV export either as a multipart "file" field or as the raw
// request body. ?replace=true wipes existing data first.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	replace := r.URL.Query().Get("replace") == "true"
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)

	body := r.Body
	filename := r.URL.Query().Get("filename")

	if err := r.ParseMultipartForm(maxImportSize); err == nil {
		file, header, errFile := r.FormFile("file")
		if errFile == nil {
			defer file.Close()
			body = file
			filename = header.Filename
		}
	}

	report, err := h.service.Import(r.Context(), body, filename, replace)
	if err != nil {
		h.log.Error().Err(err).Str("file", filename).Msg("Import failed")
		http.Error(w, "Import failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(report))
}

// HandleRescan handles POST /api/flips/rescan
// Imports any new CSV files from the watch directory immediately.
func (h *Handler) HandleRescan(w http.ResponseWriter, r *http.Request) {
	imported, err := h.service.ScanImportDir(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Import scan failed")
		http.Error(w, "Import scan failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{"imported_files": imported}))
}

// HandleSummary handles GET /api/flips/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Summary query failed")
		http.Error(w, "Summary query failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(summary))
}

// HandleDaily handles GET /api/flips/daily?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) HandleDaily(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	if s := r.URL.Query().Get("from"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			http.Error(w, "invalid from date", http.StatusBadRequest)
			return
		}
		from = parsed
	}
	if s := r.URL.Query().Get("to"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			http.Error(w, "invalid to date", http.StatusBadRequest)
			return
		}
		to = parsed
	}

	stats, err := h.service.DailyStats(r.Context(), from, to)
	if err != nil {
		h.log.Error().Err(err).Msg("Daily stats query failed")
		http.Error(w, "Daily stats query failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(stats))
}

// HandleBatches handles GET /api/flips/batches
func (h *Handler) HandleBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.Batches(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Batches query failed")
		http.Error(w, "Batches query failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(batches))
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
