package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/memovo/memovo/internal/llm"
	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/pkg/types"
)

// fakeStreamer scripts model behavior per prompt kind. CompleteFn serves
// relevance/title/snapshot calls; fragments (or streamErr) serve generation.
type fakeStreamer struct {
	mu         sync.Mutex
	CompleteFn func(prompt string) (string, error)
	fragments  []string
	streamErr  error
	prompts    []string
}

func (f *fakeStreamer) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.CompleteFn != nil {
		return f.CompleteFn(prompt)
	}
	return "", nil
}

func (f *fakeStreamer) Stream(ctx context.Context, prompt string, fn llm.StreamFunc) error {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.streamErr != nil {
		return f.streamErr
	}
	for _, fragment := range f.fragments {
		if err := fn(fragment); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStreamer) GetModel() string { return "fake" }

// fakeWorking is an in-memory working memory store.
type fakeWorking struct {
	mu      sync.Mutex
	entries []*types.WorkingMemoryEntry
	nextID  int

	appendErr error
	listErr   error
	// hideLatest simulates read-after-write lag: reads omit the most
	// recently appended entry.
	hideLatest bool
}

func (f *fakeWorking) Append(ctx context.Context, entry *types.WorkingMemoryEntry) (*types.WorkingMemoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.nextID++
	stored := *entry
	stored.ID = fmt.Sprintf("wm-%d", f.nextID)
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}
	f.entries = append(f.entries, &stored)
	return &stored, nil
}

func (f *fakeWorking) Get(ctx context.Context, id string) (*types.WorkingMemoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, entry := range f.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeWorking) ListBySession(ctx context.Context, userID, sessionID string) ([]*types.WorkingMemoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*types.WorkingMemoryEntry
	for _, entry := range f.entries {
		if entry.UserID == userID && entry.SessionID == sessionID {
			out = append(out, entry)
		}
	}
	if f.hideLatest && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeWorking) ListByUser(ctx context.Context, userID string) ([]*types.WorkingMemoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*types.WorkingMemoryEntry
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].UserID == userID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeWorking) Delete(ctx context.Context, id string) error { return nil }

func (f *fakeWorking) DeleteBySession(ctx context.Context, userID, sessionID string) (int64, error) {
	return 0, nil
}

// fakeEpisodic is an in-memory episodic store.
type fakeEpisodic struct {
	mu        sync.Mutex
	snapshots []*types.EpisodicSnapshot
	nextID    int

	listErr   error
	updateErr error
	created   []*types.EpisodicSnapshot
}

func (f *fakeEpisodic) Create(ctx context.Context, userID string, payload *types.Snapshot) (*types.EpisodicSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	f.nextID++
	snapshot := &types.EpisodicSnapshot{
		ID:        fmt.Sprintf("ep-%d", f.nextID),
		UserID:    userID,
		Snapshot:  *payload,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	f.snapshots = append(f.snapshots, snapshot)
	f.created = append(f.created, snapshot)
	return snapshot, nil
}

func (f *fakeEpisodic) GetSnapshot(ctx context.Context, userID, id string) (*types.EpisodicSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, snapshot := range f.snapshots {
		if snapshot.UserID == userID && snapshot.ID == id {
			return snapshot, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeEpisodic) ListRecent(ctx context.Context, userID string, since time.Time) ([]*types.EpisodicSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*types.EpisodicSnapshot
	for _, snapshot := range f.snapshots {
		if snapshot.UserID == userID && !snapshot.CreatedAt.Before(since) {
			out = append(out, snapshot)
		}
	}
	return out, nil
}

func (f *fakeEpisodic) UpdateSnapshot(ctx context.Context, userID, id string, update storage.SnapshotUpdate) (*types.EpisodicSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for _, snapshot := range f.snapshots {
		if snapshot.UserID == userID && snapshot.ID == id {
			if update.Payload != nil {
				snapshot.Snapshot = *update.Payload
			}
			snapshot.UpdatedAt = time.Now().UTC()
			return snapshot, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeEpisodic) DeleteSnapshot(ctx context.Context, userID, id string) error { return nil }

// fakeSessions is an in-memory session registry.
type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]*types.ChatSession

	ensureErr error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]*types.ChatSession)}
}

func (f *fakeSessions) Ensure(ctx context.Context, sessionID, userID, defaultTitle, lastMessage string) (*types.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	if session, ok := f.sessions[sessionID]; ok {
		session.LastMessage = lastMessage
		session.UpdatedAt = time.Now().UTC()
		return session, nil
	}
	session := &types.ChatSession{
		ID:          sessionID,
		UserID:      userID,
		Title:       defaultTitle,
		LastMessage: lastMessage,
		UpdatedAt:   time.Now().UTC(),
	}
	f.sessions[sessionID] = session
	return session, nil
}

func (f *fakeSessions) GetSession(ctx context.Context, userID, sessionID string) (*types.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session, ok := f.sessions[sessionID]; ok {
		return session, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeSessions) ListSessions(ctx context.Context, userID string) ([]*types.ChatSession, error) {
	return nil, nil
}

func (f *fakeSessions) UpdateSession(ctx context.Context, userID, sessionID string, update storage.SessionUpdate) (*types.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if update.Title != nil {
		session.Title = *update.Title
	}
	if update.LastMessage != nil {
		session.LastMessage = *update.LastMessage
	}
	if update.UpdatedAt != nil {
		session.UpdatedAt = *update.UpdatedAt
	}
	return session, nil
}

func (f *fakeSessions) DeleteSession(ctx context.Context, userID, sessionID string) error {
	return nil
}

// fakeSemantic serves scripted fallback search results.
type fakeSemantic struct {
	fragments []*types.SemanticFragment
	err       error
	queries   []string
	mu        sync.Mutex
}

func (f *fakeSemantic) Search(ctx context.Context, userID, query string, threshold float32, limit int) ([]*types.SemanticFragment, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.fragments, nil
}
