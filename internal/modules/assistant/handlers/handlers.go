// Package handlers provides HTTP handlers for the SQL assistant.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/modules/assistant"
	"github.com/flipsight/flipsight/internal/ratelimit"
)

// Handler handles assistant HTTP requests
type Handler struct {
	service *assistant.Service
	limiter ratelimit.Limiter
	log     zerolog.Logger
}

// NewHandler creates a new assistant handler. The limiter throttles
// generation per client key.
func NewHandler(service *assistant.Service, limiter ratelimit.Limiter, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		limiter: limiter,
		log:     log.With().Str("handler", "assistant").Logger(),
	}
}

// RegisterRoutes registers assistant routes. The routes are relative: the
// server mounts this handler under /query alongside the pipeline handler.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sql", h.HandleGenerate)
	r.Post("/sql/run", h.HandleRun)
}

// HandleGenerate handles POST /api/query/sql
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req assistant.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !h.limiter.Allow(clientKey(r, req.SessionID)) {
		http.Error(w, "Rate limit exceeded, try again shortly", http.StatusTooManyRequests)
		return
	}

	sql, err := h.service.Generate(req)
	if err != nil {
		h.writeGenerateError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"sql": sql})
}

type runRequest struct {
	SQL string `json:"sql"`
}

// HandleRun handles POST /api/query/sql/run
// Executes a vetted statement read-only against the local flips database.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SQL == "" {
		http.Error(w, "Request body must include sql", http.StatusBadRequest)
		return
	}

	rows, err := h.service.Run(r.Context(), req.SQL)
	if err != nil {
		var safety *assistant.SafetyError
		if errors.As(err, &safety) {
			http.Error(w, safety.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("SQL run failed")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": rows,
		"metadata": map[string]interface{}{
			"rows":      len(rows),
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// writeGenerateError maps service errors: boundary and safety problems are
// the client's to fix, everything else is an upstream failure.
func (h *Handler) writeGenerateError(w http.ResponseWriter, err error) {
	var safety *assistant.SafetyError
	switch {
	case errors.Is(err, assistant.ErrMissingQuery), errors.Is(err, assistant.ErrQueryTooLong):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &safety):
		http.Error(w, safety.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// clientKey identifies the caller for rate limiting: the session when the
// SPA sends one, the remote address otherwise.
func clientKey(r *http.Request, sessionID string) string {
	if sessionID != "" {
		return sessionID
	}
	return r.RemoteAddr
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
