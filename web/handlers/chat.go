package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/memovo/memovo/internal/chat"
	"github.com/memovo/memovo/pkg/types"
)

// ChatHandler streams chat pipeline events to clients as NDJSON.
type ChatHandler struct {
	orchestrator *chat.Orchestrator
}

// NewChatHandler creates a chat handler backed by the given orchestrator.
func NewChatHandler(orchestrator *chat.Orchestrator) *ChatHandler {
	return &ChatHandler{orchestrator: orchestrator}
}

// Stream handles POST /api/chat. The response body is a sequence of
// newline-delimited JSON events, flushed as they are produced so clients
// see tokens as the model generates them.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid chat request", err)
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
	// The pipeline runs on a context detached from the request so a client
	// disconnect does not abort persistence of the conversation.
	s := h.orchestrator.ChatStream(context.WithoutCancel(r.Context()), &req)
	for {
		event, ok := s.Next(r.Context())
		if !ok {
			return
		}
		if err := encoder.Encode(event); err != nil {
			// Client went away; the pipeline keeps running so the
			// conversation is still persisted.
			log.Printf("chat handler: failed to write event: %v", err)
			return
		}
		flusher.Flush()
	}
}
