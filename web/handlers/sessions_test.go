package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/pkg/types"
	"github.com/memovo/memovo/web/handlers"
)

// memRegistry is an in-memory session registry for handler tests.
type memRegistry struct {
	sessions map[string]*types.ChatSession
}

func newMemRegistry(sessions ...*types.ChatSession) *memRegistry {
	r := &memRegistry{sessions: make(map[string]*types.ChatSession)}
	for _, s := range sessions {
		r.sessions[s.ID] = s
	}
	return r
}

func (r *memRegistry) Ensure(ctx context.Context, sessionID, userID, defaultTitle, lastMessage string) (*types.ChatSession, error) {
	if s, ok := r.sessions[sessionID]; ok && s.UserID == userID {
		return s, nil
	}
	s := &types.ChatSession{ID: sessionID, UserID: userID, Title: defaultTitle, LastMessage: lastMessage, UpdatedAt: time.Now().UTC()}
	r.sessions[sessionID] = s
	return s, nil
}

func (r *memRegistry) GetSession(ctx context.Context, userID, sessionID string) (*types.ChatSession, error) {
	if s, ok := r.sessions[sessionID]; ok && s.UserID == userID {
		return s, nil
	}
	return nil, storage.ErrNotFound
}

func (r *memRegistry) ListSessions(ctx context.Context, userID string) ([]*types.ChatSession, error) {
	var out []*types.ChatSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRegistry) UpdateSession(ctx context.Context, userID, sessionID string, update storage.SessionUpdate) (*types.ChatSession, error) {
	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, storage.ErrNotFound
	}
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.LastMessage != nil {
		s.LastMessage = *update.LastMessage
	}
	return s, nil
}

func (r *memRegistry) DeleteSession(ctx context.Context, userID, sessionID string) error {
	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return storage.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

// routedRequest runs the handler through a mux so r.PathValue resolves.
func routedRequest(handlerFn http.HandlerFunc, pattern, method, url string, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, handlerFn)

	req := httptest.NewRequest(method, url, strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestSessionHandlers_ListSessions(t *testing.T) {
	registry := newMemRegistry(
		&types.ChatSession{ID: "s1", UserID: "u1", Title: "Groceries"},
		&types.ChatSession{ID: "s2", UserID: "u2", Title: "Other user"},
	)
	h := handlers.NewSessionHandlers(registry)

	w := routedRequest(h.ListSessions, "/api/users/{userId}/sessions",
		"GET", "/api/users/u1/sessions", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sessions []*types.ChatSession `json:"sessions"`
		Count    int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Groceries", resp.Sessions[0].Title)
}

func TestSessionHandlers_GetSessionNotFound(t *testing.T) {
	h := handlers.NewSessionHandlers(newMemRegistry())

	w := routedRequest(h.GetSession, "/api/users/{userId}/sessions/{sessionId}",
		"GET", "/api/users/u1/sessions/missing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandlers_UpdateSessionTitle(t *testing.T) {
	registry := newMemRegistry(&types.ChatSession{ID: "s1", UserID: "u1", Title: "New Chat"})
	h := handlers.NewSessionHandlers(registry)

	w := routedRequest(h.UpdateSession, "/api/users/{userId}/sessions/{sessionId}",
		"PATCH", "/api/users/u1/sessions/s1", `{"title":"Trip planning"}`)

	require.Equal(t, http.StatusOK, w.Code)

	var session types.ChatSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, "Trip planning", session.Title)
	assert.Equal(t, "Trip planning", registry.sessions["s1"].Title)
}

func TestSessionHandlers_UpdateSessionRequiresTitle(t *testing.T) {
	registry := newMemRegistry(&types.ChatSession{ID: "s1", UserID: "u1"})
	h := handlers.NewSessionHandlers(registry)

	w := routedRequest(h.UpdateSession, "/api/users/{userId}/sessions/{sessionId}",
		"PATCH", "/api/users/u1/sessions/s1", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlers_DeleteSession(t *testing.T) {
	registry := newMemRegistry(&types.ChatSession{ID: "s1", UserID: "u1"})
	h := handlers.NewSessionHandlers(registry)

	w := routedRequest(h.DeleteSession, "/api/users/{userId}/sessions/{sessionId}",
		"DELETE", "/api/users/u1/sessions/s1", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, registry.sessions)
}

func TestSessionHandlers_DeleteScopedToUser(t *testing.T) {
	registry := newMemRegistry(&types.ChatSession{ID: "s1", UserID: "u1"})
	h := handlers.NewSessionHandlers(registry)

	w := routedRequest(h.DeleteSession, "/api/users/{userId}/sessions/{sessionId}",
		"DELETE", "/api/users/intruder/sessions/s1", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, registry.sessions, 1)
}
