package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/memovo/memovo/internal/semantic"
	"github.com/memovo/memovo/pkg/types"
)

// Default semantic search parameters when the request leaves them unset.
const (
	defaultSearchThreshold float32 = 0.7
	defaultSearchLimit             = 5
)

// SemanticHandlers contains HTTP handlers for long-term memory ingestion and search.
type SemanticHandlers struct {
	service *semantic.Service
}

// NewSemanticHandlers creates a new SemanticHandlers instance.
func NewSemanticHandlers(service *semantic.Service) *SemanticHandlers {
	return &SemanticHandlers{service: service}
}

// Ingest handles POST /api/semantic - runs the ingestion pipeline and streams
// its status events to the client as NDJSON.
func (h *SemanticHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var req types.SemanticIngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required", nil)
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required", nil)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported", nil)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	s := h.service.IngestStream(r.Context(), &req)
	for {
		event, ok := s.Next(r.Context())
		if !ok {
			return
		}
		if err := encoder.Encode(event); err != nil {
			log.Printf("semantic handler: failed to write event: %v", err)
			return
		}
		flusher.Flush()
	}
}

// SearchRequest represents the request body for a semantic search.
type SearchRequest struct {
	UserID    string  `json:"userId"`
	Query     string  `json:"query"`
	Threshold float32 `json:"threshold,omitempty"`
	Limit     int     `json:"limit,omitempty"`
}

// Search handles POST /api/semantic/search - returns long-term memory
// fragments similar to the query.
func (h *SemanticHandlers) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required", nil)
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required", nil)
		return
	}
	if req.Threshold <= 0 {
		req.Threshold = defaultSearchThreshold
	}
	if req.Limit <= 0 {
		req.Limit = defaultSearchLimit
	}

	fragments, err := h.service.Search(r.Context(), req.UserID, req.Query, req.Threshold, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to search semantic memory", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"fragments": fragments,
		"count":     len(fragments),
	})
}
