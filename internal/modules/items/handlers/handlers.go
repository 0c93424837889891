// Package handlers provides HTTP handlers for item catalog operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/modules/items"
)

// Handler handles item catalog HTTP requests
type Handler struct {
	service *items.Service
	log     zerolog.Logger
}

// NewHandler creates a new items handler
func NewHandler(service *items.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "items").Logger(),
	}
}

// RegisterRoutes registers item routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/search", h.HandleSearch)
		r.Post("/sync", h.HandleSync)
	})
}

// HandleSearch handles GET /api/items/search?q=...&limit=N
// Returns canonical item names matching the fragment, for autocomplete.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "q parameter is required", http.StatusBadRequest)
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	names := h.service.Matcher().Search(q, limit)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"query":   q,
			"matches": names,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleSync handles POST /api/items/sync
// Triggers an immediate catalog refresh.
func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Sync(); err != nil {
		h.log.Error().Err(err).Msg("Catalog sync failed")
		http.Error(w, "Catalog sync failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"synced": true},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
