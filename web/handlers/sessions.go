package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/memovo/memovo/internal/storage"
)

// SessionHandlers contains HTTP handlers for chat session management.
type SessionHandlers struct {
	sessions storage.SessionRegistry
}

// NewSessionHandlers creates a new SessionHandlers instance.
func NewSessionHandlers(sessions storage.SessionRegistry) *SessionHandlers {
	return &SessionHandlers{sessions: sessions}
}

// ListSessions handles GET /api/users/{userId}/sessions - returns all sessions
// for a user ordered by most recent activity.
func (h *SessionHandlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user ID is required", nil)
		return
	}

	sessions, err := h.sessions.ListSessions(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list sessions", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// GetSession handles GET /api/users/{userId}/sessions/{sessionId}.
func (h *SessionHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	sessionID := extractID(r, "sessionId")
	if userID == "" || sessionID == "" {
		respondError(w, http.StatusBadRequest, "user ID and session ID are required", nil)
		return
	}

	session, err := h.sessions.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get session", err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// UpdateSessionRequest represents the request body for renaming a session.
type UpdateSessionRequest struct {
	Title string `json:"title"`
}

// UpdateSession handles PATCH /api/users/{userId}/sessions/{sessionId} -
// renames a session.
func (h *SessionHandlers) UpdateSession(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	sessionID := extractID(r, "sessionId")
	if userID == "" || sessionID == "" {
		respondError(w, http.StatusBadRequest, "user ID and session ID are required", nil)
		return
	}

	var req UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "title is required", nil)
		return
	}

	session, err := h.sessions.UpdateSession(r.Context(), userID, sessionID, storage.SessionUpdate{
		Title: &req.Title,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update session", err)
		return
	}

	respondJSON(w, http.StatusOK, session)
}

// DeleteSession handles DELETE /api/users/{userId}/sessions/{sessionId} -
// removes the session and its working memory.
func (h *SessionHandlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	sessionID := extractID(r, "sessionId")
	if userID == "" || sessionID == "" {
		respondError(w, http.StatusBadRequest, "user ID and session ID are required", nil)
		return
	}

	if err := h.sessions.DeleteSession(r.Context(), userID, sessionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete session", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "session deleted successfully",
	})
}
