// Package handlers provides HTTP handlers for blocklist generation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/modules/blocklist"
)

// Handler handles blocklist HTTP requests
type Handler struct {
	service *blocklist.Service
	log     zerolog.Logger
}

// NewHandler creates a new blocklist handler
func NewHandler(service *blocklist.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "blocklist").Logger(),
	}
}

// RegisterRoutes registers blocklist routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/blocklist", func(r chi.Router) {
		r.Post("/preview", h.HandlePreview)
		r.Post("/generate", h.HandleGenerate)
		r.Post("/export", h.HandleExport)
	})
}

type previewRequest struct {
	Query string `json:"query"`
}

type generateRequest struct {
	Query     string                `json:"query"`
	Config    *blocklist.RuleConfig `json:"config,omitempty"`
	Timeframe int                   `json:"timeframe"`
}

// HandlePreview handles POST /api/blocklist/preview
// Parses the filter text and returns the interpreted rule config without
// evaluating it.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		http.Error(w, "Request body must include a query", http.StatusBadRequest)
		return
	}

	cfg, err := h.service.Preview(req.Query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(cfg))
}

// HandleGenerate handles POST /api/blocklist/generate
// Accepts either free text or an edited rule config.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	result, status, err := h.generate(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(result))
}

// HandleExport handles POST /api/blocklist/export
// Same input as generate, but responds with the bare profile document as a
// download. The profile shape is an external contract, so no envelope.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	result, status, err := h.generate(r)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="blocklist-profile.json"`)
	h.writeJSON(w, http.StatusOK, result.Profile)
}

func (h *Handler) generate(r *http.Request) (*blocklist.GenerateResult, int, error) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, errBadBody
	}

	var result *blocklist.GenerateResult
	var err error
	switch {
	case req.Config != nil:
		result, err = h.service.GenerateFromConfig(*req.Config, req.Timeframe)
	case req.Query != "":
		result, err = h.service.Generate(req.Query, req.Timeframe)
	default:
		return nil, http.StatusBadRequest, errBadBody
	}
	if err != nil {
		h.log.Warn().Err(err).Msg("Blocklist generation failed")
		if errors.Is(err, blocklist.ErrNotReady) {
			return nil, http.StatusServiceUnavailable, err
		}
		return nil, http.StatusBadRequest, err
	}
	return result, 0, nil
}

var errBadBody = jsonError("Request body must include a query or a config")

type jsonError string

func (e jsonError) Error() string { return string(e) }

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
