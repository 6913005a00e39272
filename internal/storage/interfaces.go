package storage

import (
	"context"
	"time"

	"github.com/memovo/memovo/pkg/types"
)

// WorkingMemoryStore persists per-session conversation turns.
type WorkingMemoryStore interface {
	// Append stores a new conversation entry and returns it with its
	// assigned ID and timestamp.
	Append(ctx context.Context, entry *types.WorkingMemoryEntry) (*types.WorkingMemoryEntry, error)

	// Get retrieves a single entry by ID.
	Get(ctx context.Context, id string) (*types.WorkingMemoryEntry, error)

	// ListBySession returns a session's entries ordered oldest first.
	ListBySession(ctx context.Context, userID, sessionID string) ([]*types.WorkingMemoryEntry, error)

	// ListByUser returns all of a user's entries ordered newest first.
	ListByUser(ctx context.Context, userID string) ([]*types.WorkingMemoryEntry, error)

	// Delete removes a single entry.
	Delete(ctx context.Context, id string) error

	// DeleteBySession removes all entries for a session and returns the
	// number removed.
	DeleteBySession(ctx context.Context, userID, sessionID string) (int64, error)
}

// EpisodicMemoryStore persists conversation snapshots with LLM-synthesized
// payloads.
type EpisodicMemoryStore interface {
	// Create stores a new snapshot and returns it with its assigned ID.
	Create(ctx context.Context, userID string, payload *types.Snapshot) (*types.EpisodicSnapshot, error)

	// GetSnapshot retrieves a single snapshot by ID.
	GetSnapshot(ctx context.Context, userID, id string) (*types.EpisodicSnapshot, error)

	// ListRecent returns a user's snapshots created at or after since,
	// newest first. A zero since returns all snapshots.
	ListRecent(ctx context.Context, userID string, since time.Time) ([]*types.EpisodicSnapshot, error)

	// UpdateSnapshot applies a partial update to a snapshot.
	UpdateSnapshot(ctx context.Context, userID, id string, update SnapshotUpdate) (*types.EpisodicSnapshot, error)

	// DeleteSnapshot removes a single snapshot.
	DeleteSnapshot(ctx context.Context, userID, id string) error
}

// SessionRegistry tracks chat sessions and their display metadata.
type SessionRegistry interface {
	// Ensure creates the session if it does not exist, otherwise refreshes
	// its last message and timestamp. A placeholder title on an existing
	// session is replaced by defaultTitle.
	Ensure(ctx context.Context, sessionID, userID, defaultTitle, lastMessage string) (*types.ChatSession, error)

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, userID, sessionID string) (*types.ChatSession, error)

	// ListSessions returns a user's sessions ordered by most recent activity.
	ListSessions(ctx context.Context, userID string) ([]*types.ChatSession, error)

	// UpdateSession applies a partial update to a session.
	UpdateSession(ctx context.Context, userID, sessionID string, update SessionUpdate) (*types.ChatSession, error)

	// DeleteSession removes a session and its working memory entries.
	DeleteSession(ctx context.Context, userID, sessionID string) error
}

// SemanticIndex stores embedded document chunks and serves similarity
// queries over them.
type SemanticIndex interface {
	// Add indexes the given chunks under the user's collection.
	Add(ctx context.Context, userID string, chunks []*types.SemanticChunk) error

	// Search returns chunks whose similarity to the query embedding meets
	// threshold, best first, at most limit results.
	Search(ctx context.Context, userID string, embedding []float32, threshold float32, limit int) ([]*types.SemanticFragment, error)
}
