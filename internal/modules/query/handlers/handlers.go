// Package handlers provides HTTP handlers for the natural-language query
// pipeline.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/modules/query"
)

// maxQueryLength bounds accepted query text.
const maxQueryLength = 500

// Handler handles query pipeline HTTP requests
type Handler struct {
	service *query.Service
	log     zerolog.Logger
}

// NewHandler creates a new query handler
func NewHandler(service *query.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "query").Logger(),
	}
}

// RegisterRoutes registers query routes. The routes are relative: the
// server mounts this handler together with the SQL assistant under /query.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/understand", h.HandleUnderstand)
	r.Post("/ask", h.HandleAsk)
	r.Post("/refine", h.HandleRefine)
}

type askRequest struct {
	Query     string `json:"query"`
	Confirmed bool   `json:"confirmed"`
}

type refineRequest struct {
	Query     string          `json:"query"`
	Previous  query.QuerySpec `json:"previous"`
	Confirmed bool            `json:"confirmed"`
}

// HandleUnderstand handles POST /api/query/understand
// Runs the pipeline without executing: the response carries the parsed
// components, intent, confidence, spec and preview.
func (h *Handler) HandleUnderstand(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAsk(w, r)
	if !ok {
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(h.service.Understand(req.Query)))
}

// HandleAsk handles POST /api/query/ask
// Understands and executes a query. Low-confidence queries come back with a
// clarification payload; specs needing confirmation come back pending until
// the client retries with confirmed set.
func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeAsk(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Ask(r.Context(), req.Query, req.Confirmed)
	if err != nil {
		h.log.Error().Err(err).Str("query", req.Query).Msg("Query execution failed")
		http.Error(w, "Query execution failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(resp))
}

// HandleRefine handles POST /api/query/refine
// Merges a follow-up query into a previously returned spec. Refinement is
// stateless: the client sends the previous spec back alongside the new text.
func (h *Handler) HandleRefine(w http.ResponseWriter, r *http.Request) {
	var req refineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if len(req.Query) > maxQueryLength {
		http.Error(w, "query too long", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Refine(r.Context(), req.Previous, req.Query, req.Confirmed)
	if err != nil {
		h.log.Error().Err(err).Str("query", req.Query).Msg("Query refinement failed")
		http.Error(w, "Query refinement failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(resp))
}

func (h *Handler) decodeAsk(w http.ResponseWriter, r *http.Request) (askRequest, bool) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return req, false
	}
	if len(req.Query) > maxQueryLength {
		http.Error(w, "query too long", http.StatusBadRequest)
		return req, false
	}
	return req, true
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
