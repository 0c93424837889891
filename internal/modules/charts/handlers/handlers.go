// Package handlers provides HTTP handlers for chart series.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/modules/charts"
)

// Handler handles charts HTTP requests
type Handler struct {
	service *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

// RegisterRoutes registers charts routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/charts", func(r chi.Router) {
		r.Get("/{series}", h.HandleSeries)
	})
}

// HandleSeries handles GET /api/charts/{series}?range=1M&smoothing=sma&window=7
func (h *Handler) HandleSeries(w http.ResponseWriter, r *http.Request) {
	series := chi.URLParam(r, "series")
	dateRange := r.URL.Query().Get("range")
	smoothing := r.URL.Query().Get("smoothing")

	window := 0
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "window must be a non-negative integer", http.StatusBadRequest)
			return
		}
		window = parsed
	}

	points, err := h.service.GetSeries(r.Context(), series, dateRange, smoothing, window)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": points,
		"metadata": map[string]interface{}{
			"series":    series,
			"range":     dateRange,
			"smoothing": smoothing,
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
