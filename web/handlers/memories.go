package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/pkg/types"
)

// MemoryHandlers contains HTTP handlers for working and episodic memory.
type MemoryHandlers struct {
	working  storage.WorkingMemoryStore
	episodic storage.EpisodicMemoryStore
}

// NewMemoryHandlers creates a new MemoryHandlers instance.
func NewMemoryHandlers(working storage.WorkingMemoryStore, episodic storage.EpisodicMemoryStore) *MemoryHandlers {
	return &MemoryHandlers{working: working, episodic: episodic}
}

// ListSessionMemory handles GET /api/users/{userId}/sessions/{sessionId}/memory -
// returns a session's conversation history oldest first.
func (h *MemoryHandlers) ListSessionMemory(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	sessionID := extractID(r, "sessionId")
	if userID == "" || sessionID == "" {
		respondError(w, http.StatusBadRequest, "user ID and session ID are required", nil)
		return
	}

	entries, err := h.working.ListBySession(r.Context(), userID, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list working memory", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// ClearSessionMemory handles DELETE /api/users/{userId}/sessions/{sessionId}/memory -
// removes all of a session's conversation turns.
func (h *MemoryHandlers) ClearSessionMemory(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	sessionID := extractID(r, "sessionId")
	if userID == "" || sessionID == "" {
		respondError(w, http.StatusBadRequest, "user ID and session ID are required", nil)
		return
	}

	deleted, err := h.working.DeleteBySession(r.Context(), userID, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to clear working memory", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "working memory cleared",
		"deleted": deleted,
	})
}

// ListUserMemory handles GET /api/users/{userId}/memory - returns all of a
// user's conversation turns across sessions, newest first.
func (h *MemoryHandlers) ListUserMemory(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user ID is required", nil)
		return
	}

	entries, err := h.working.ListByUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list working memory", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// CreateMemoryRequest represents the request body for manually adding a
// working memory entry.
type CreateMemoryRequest struct {
	UserID    string     `json:"userId"`
	SessionID string     `json:"sessionId,omitempty"`
	Role      types.Role `json:"role"`
	Content   string     `json:"content"`
}

// CreateMemory handles POST /api/memory - stores a working memory entry
// outside the chat pipeline.
func (h *MemoryHandlers) CreateMemory(w http.ResponseWriter, r *http.Request) {
	var req CreateMemoryRequest
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
	if !types.IsValidRole(req.Role) {
		respondError(w, http.StatusBadRequest, "role must be 'user' or 'assistant'", nil)
		return
	}

	entry, err := h.working.Append(r.Context(), &types.WorkingMemoryEntry{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Role:      req.Role,
		Content:   req.Content,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store memory", err)
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// DeleteMemory handles DELETE /api/memory/{id} - removes a single working
// memory entry.
func (h *MemoryHandlers) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "memory ID is required", nil)
		return
	}

	if err := h.working.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "memory not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete memory", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "memory deleted successfully",
	})
}

// ListSnapshots handles GET /api/users/{userId}/snapshots - returns a user's
// episodic snapshots, newest first. The optional ?days=N query parameter
// restricts results to snapshots created within the last N days.
func (h *MemoryHandlers) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "user ID is required", nil)
		return
	}

	var since time.Time
	if days := parseInt(r.URL.Query().Get("days"), 0); days > 0 {
		since = time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	}

	snapshots, err := h.episodic.ListRecent(r.Context(), userID, since)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list snapshots", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// GetSnapshot handles GET /api/users/{userId}/snapshots/{id}.
func (h *MemoryHandlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	id := extractID(r, "id")
	if userID == "" || id == "" {
		respondError(w, http.StatusBadRequest, "user ID and snapshot ID are required", nil)
		return
	}

	snapshot, err := h.episodic.GetSnapshot(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "snapshot not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get snapshot", err)
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// CreateSnapshotRequest represents the request body for manually creating an
// episodic snapshot.
type CreateSnapshotRequest struct {
	UserID  string          `json:"userId"`
	Payload *types.Snapshot `json:"payload"`
}

// CreateSnapshot handles POST /api/snapshots - stores an episodic snapshot
// outside the consolidation pipeline.
func (h *MemoryHandlers) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req CreateSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse request body", err)
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "userId is required", nil)
		return
	}
	if req.Payload == nil {
		respondError(w, http.StatusBadRequest, "payload is required", nil)
		return
	}
	if err := req.Payload.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid snapshot payload", err)
		return
	}

	snapshot, err := h.episodic.Create(r.Context(), req.UserID, req.Payload)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create snapshot", err)
		return
	}

	respondJSON(w, http.StatusCreated, snapshot)
}

// DeleteSnapshot handles DELETE /api/users/{userId}/snapshots/{id}.
func (h *MemoryHandlers) DeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := extractID(r, "userId")
	id := extractID(r, "id")
	if userID == "" || id == "" {
		respondError(w, http.StatusBadRequest, "user ID and snapshot ID are required", nil)
		return
	}

	if err := h.episodic.DeleteSnapshot(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondError(w, http.StatusNotFound, "snapshot not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete snapshot", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "snapshot deleted successfully",
	})
}
