package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/memovo/memovo/internal/llm"
	"github.com/memovo/memovo/internal/stream"
	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/pkg/types"
)

const (
	// episodicWindow bounds how far back snapshot retrieval looks.
	episodicWindow = 7 * 24 * time.Hour

	// semanticThreshold is the minimum similarity for fallback search hits.
	semanticThreshold = 0.7

	// semanticLimit caps fallback search results.
	semanticLimit = 5

	// lastMessagePreviewLen caps the session's last-message preview.
	lastMessagePreviewLen = 100

	// instantTitleLen caps the derived instant session title.
	instantTitleLen = 30
)

// SemanticSearcher serves the long-term memory fallback: it embeds the
// prompt and searches the vector index.
type SemanticSearcher interface {
	Search(ctx context.Context, userID, query string, threshold float32, limit int) ([]*types.SemanticFragment, error)
}

// Orchestrator runs the chat pipeline for one request at a time, emitting
// status, chunk, and data events over a stream it returns immediately.
type Orchestrator struct {
	llm          llm.TextStreamer
	working      storage.WorkingMemoryStore
	episodic     storage.EpisodicMemoryStore
	sessions     storage.SessionRegistry
	semantic     SemanticSearcher
	relevance    *RelevanceAnalyzer
	consolidator *Consolidator
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConsolidator attaches a background consolidator; without one, no
// title upgrade or episodic synthesis runs after completion.
func WithConsolidator(c *Consolidator) Option {
	return func(o *Orchestrator) {
		o.consolidator = c
	}
}

// NewOrchestrator wires the pipeline to its five collaborators.
func NewOrchestrator(
	generator llm.TextStreamer,
	working storage.WorkingMemoryStore,
	episodic storage.EpisodicMemoryStore,
	sessions storage.SessionRegistry,
	semantic SemanticSearcher,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		llm:       generator,
		working:   working,
		episodic:  episodic,
		sessions:  sessions,
		semantic:  semantic,
		relevance: NewRelevanceAnalyzer(generator),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ChatStream starts the pipeline for the request and returns its event
// stream immediately. The stream always terminates with exactly one
// completed or failed status and is closed on every exit path.
func (o *Orchestrator) ChatStream(ctx context.Context, req *types.ChatRequest) *stream.Stream {
	s := stream.New()
	go o.process(ctx, req, s)
	return s
}

func (o *Orchestrator) process(ctx context.Context, req *types.ChatRequest, s *stream.Stream) {
	defer s.Close()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("chat: pipeline panic: %v", r)
			s.Emit(stream.Status(StatusFailed, fmt.Sprintf("Error: %v", r)))
		}
	}()

	if err := o.run(ctx, req, s); err != nil {
		log.Printf("chat: pipeline failed for user %s: %v", req.UserID, err)
		s.Emit(stream.Status(StatusFailed, "Error: "+err.Error()))
	}
}

func (o *Orchestrator) run(ctx context.Context, req *types.ChatRequest, s *stream.Stream) error {
	if err := req.Validate(); err != nil {
		return err
	}

	// 1. Persist the user message before anything else; a crash mid-stream
	// must never lose it.
	var userEntry *types.WorkingMemoryEntry
	if req.SessionID != "" {
		if _, err := o.sessions.Ensure(ctx, req.SessionID, req.UserID, instantTitle(req.Prompt), req.Prompt); err != nil {
			return fmt.Errorf("failed to ensure session: %w", err)
		}
		entry, err := o.working.Append(ctx, &types.WorkingMemoryEntry{
			UserID:    req.UserID,
			SessionID: req.SessionID,
			Role:      types.RoleUser,
			Content:   req.Prompt,
		})
		if err != nil {
			return fmt.Errorf("failed to persist user message: %w", err)
		}
		userEntry = entry
	}

	// 2. Load conversation history, oldest first.
	s.Emit(stream.Status(StatusRetrievingWorking, "Loading conversation history..."))
	history, err := o.loadHistory(ctx, req, userEntry)
	if err != nil {
		return err
	}
	s.Emit(stream.Data("working_memory", history))

	// 3. Recent episodic snapshots.
	s.Emit(stream.Status(StatusRetrievingEpisodic, "Fetching memories from the last 7 days..."))
	snapshots, err := o.episodic.ListRecent(ctx, req.UserID, time.Now().UTC().Add(-episodicWindow))
	if err != nil {
		return fmt.Errorf("failed to retrieve episodic memories: %w", err)
	}

	// 4. Model-assisted relevance filter. Degrades to empty on error,
	// which routes the request to the semantic fallback.
	var relevant []*types.EpisodicSnapshot
	if len(snapshots) > 0 {
		s.Emit(stream.Status(StatusAnalyzingRelevance, fmt.Sprintf("Analyzing %d memories...", len(snapshots))))
		relevant, err = o.relevance.Analyze(ctx, req.Prompt, snapshots)
		if err != nil {
			log.Printf("chat: relevance analysis degraded for user %s: %v", req.UserID, err)
			relevant = nil
		}
	}

	// 5. Build context from exactly one memory tier.
	var contextDocs []string
	var usedSnapshot *types.EpisodicSnapshot
	if len(relevant) > 0 {
		s.Emit(stream.Status(StatusEnhancingContext, fmt.Sprintf("Found %d relevant episodic memories.", len(relevant))))
		usedSnapshot = relevant[0]
		for _, snapshot := range relevant {
			if err := o.boostImportance(ctx, snapshot); err != nil {
				log.Printf("chat: importance boost degraded for snapshot %s: %v", snapshot.ID, err)
			}
			contextDocs = append(contextDocs, snapshot.Snapshot.Summary)
		}
	} else {
		s.Emit(stream.Status(StatusSemanticFallback, "No recent episodic relevance. Searching long-term memory..."))
		fragments, err := o.semantic.Search(ctx, req.UserID, req.Prompt, semanticThreshold, semanticLimit)
		if err != nil {
			log.Printf("chat: semantic search degraded for user %s: %v", req.UserID, err)
			fragments = nil
		}
		if len(fragments) == 0 {
			s.Emit(stream.Status(StatusNoContext, "No relevant context found in memory layers."))
		}
		for _, fragment := range fragments {
			contextDocs = append(contextDocs, fragment.Content)
		}
	}

	// 6. Stream the response, forwarding every fragment verbatim.
	s.Emit(stream.Status(StatusGenerating, "Synthesizing response..."))
	var response strings.Builder
	err = o.llm.Stream(ctx, llm.ChatPrompt(contextDocs, history, req.Prompt), func(fragment string) error {
		s.Emit(stream.Chunk(fragment))
		response.WriteString(fragment)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to generate response: %w", err)
	}

	// 7. Persist the assistant turn and refresh the session preview.
	fullResponse := response.String()
	if fullResponse != "" && req.SessionID != "" {
		assistantEntry, err := o.working.Append(ctx, &types.WorkingMemoryEntry{
			UserID:    req.UserID,
			SessionID: req.SessionID,
			Role:      types.RoleAssistant,
			Content:   fullResponse,
		})
		if err != nil {
			return fmt.Errorf("failed to persist assistant message: %w", err)
		}

		preview := truncateRunes(fullResponse, lastMessagePreviewLen)
		now := time.Now().UTC()
		if _, err := o.sessions.UpdateSession(ctx, req.UserID, req.SessionID, storage.SessionUpdate{
			LastMessage: &preview,
			UpdatedAt:   &now,
		}); err != nil {
			log.Printf("chat: session preview update degraded for session %s: %v", req.SessionID, err)
		}

		s.Emit(stream.Data("working_memory", append(history, assistantEntry)))
	}

	// 8. Terminal status, then hand off to the detached consolidators.
	s.Emit(stream.Status(StatusCompleted, "Response finished."))
	if o.consolidator != nil {
		o.consolidator.Detach(req, fullResponse, usedSnapshot)
	}
	return nil
}

// loadHistory fetches prior turns oldest-first and guards against
// read-after-write lag: if the just-persisted user entry is missing from the
// read, it is appended locally so the model and the client both see it.
func (o *Orchestrator) loadHistory(ctx context.Context, req *types.ChatRequest, userEntry *types.WorkingMemoryEntry) ([]*types.WorkingMemoryEntry, error) {
	var history []*types.WorkingMemoryEntry
	var err error
	if req.SessionID != "" {
		history, err = o.working.ListBySession(ctx, req.UserID, req.SessionID)
	} else {
		history, err = o.working.ListByUser(ctx, req.UserID)
		reverseEntries(history) // newest-first store order -> oldest first
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	if userEntry != nil && !containsEntry(history, userEntry.ID) {
		history = append(history, userEntry)
	}
	return history, nil
}

// boostImportance bumps a used snapshot's importance score, capped at the
// maximum, and persists it. The in-memory snapshot is refreshed from the
// store so the consolidation merge sees the boosted payload, not the stale
// one it would otherwise write back.
func (o *Orchestrator) boostImportance(ctx context.Context, snapshot *types.EpisodicSnapshot) error {
	boosted := snapshot.Snapshot
	boosted.Boost()
	updated, err := o.episodic.UpdateSnapshot(ctx, snapshot.UserID, snapshot.ID, storage.SnapshotUpdate{Payload: &boosted})
	if err != nil {
		return err
	}
	snapshot.Snapshot = updated.Snapshot
	return nil
}

// instantTitle derives a provisional session title from the prompt: its
// first four words, truncated to a display-friendly length, with a trailing
// ellipsis marker.
func instantTitle(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) == 0 {
		return types.DefaultSessionTitle
	}
	if len(words) > 4 {
		words = words[:4]
	}
	return truncateRunes(strings.Join(words, " "), instantTitleLen) + "..."
}

// truncateRunes shortens s to at most n runes. Truncation counts characters,
// not bytes, so a multi-byte rune is never split.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func containsEntry(entries []*types.WorkingMemoryEntry, id string) bool {
	for _, entry := range entries {
		if entry.ID == id {
			return true
		}
	}
	return false
}

func reverseEntries(entries []*types.WorkingMemoryEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
