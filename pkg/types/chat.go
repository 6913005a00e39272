// Package types defines the shared data model for the Memovo memory layers:
// chat sessions, working memory turns, episodic snapshots, and semantic
// fragments. Types here carry no behavior beyond validation and JSON shape.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the author of a working memory turn.
type Role string

const (
	// RoleUser marks a turn written by the user.
	RoleUser Role = "user"

	// RoleAssistant marks a turn generated by the assistant.
	RoleAssistant Role = "assistant"
)

// IsValidRole reports whether r is a known turn role.
func IsValidRole(r Role) bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatRequest is the immutable input to one chat orchestration run.
type ChatRequest struct {
	// UserID identifies the requesting user.
	UserID string `json:"userId"`

	// SessionID identifies the chat session. Optional: when empty the
	// request is session-less and no turns are persisted for it.
	SessionID string `json:"sessionId,omitempty"`

	// Prompt is the user's message. Must be non-empty.
	Prompt string `json:"prompt"`
}

// Validate checks the request invariants.
func (r ChatRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("userId is required")
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("prompt is required")
	}
	return nil
}

// WorkingMemoryEntry is one short-term conversation turn. Entries are created
// by the chat pipeline and never mutated afterwards; they are only removed
// when their session is deleted.
type WorkingMemoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is the per-conversation metadata record. It is a best-effort
// side channel: the chat pipeline updates it but never depends on it for
// response correctness.
type ChatSession struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	LastMessage string    `json:"lastMessage,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DefaultSessionTitle is the placeholder title given to sessions created
// before any message arrives. Ensure upgrades it on first contact.
const DefaultSessionTitle = "New Chat"
