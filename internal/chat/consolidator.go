package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/memovo/memovo/internal/llm"
	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/pkg/types"
)

// Consolidation event types broadcast to observers.
const (
	ConsolidationTitleUpgraded   = "title_upgraded"
	ConsolidationSnapshotCreated = "snapshot_created"
	ConsolidationSnapshotMerged  = "snapshot_merged"
)

// ConsolidationEvent describes one completed background consolidation.
type ConsolidationEvent struct {
	Type       string `json:"type"`
	UserID     string `json:"userId"`
	SessionID  string `json:"sessionId,omitempty"`
	SnapshotID string `json:"snapshotId,omitempty"`
	Title      string `json:"title,omitempty"`
}

// Consolidator runs the fire-and-forget memory tasks after a chat turn
// completes: the session title upgrade and the episodic synthesis or merge.
// Tasks are detached from the request lifecycle, carry their own error
// boundary, and provide no delivery guarantee.
type Consolidator struct {
	llm      llm.TextGenerator
	episodic storage.EpisodicMemoryStore
	sessions storage.SessionRegistry
	onEvent  func(ConsolidationEvent)
	wg       sync.WaitGroup
}

// ConsolidatorOption configures a Consolidator.
type ConsolidatorOption func(*Consolidator)

// WithEventCallback registers an observer notified after each successful
// consolidation. Used to fan events out to websocket clients.
func WithEventCallback(fn func(ConsolidationEvent)) ConsolidatorOption {
	return func(c *Consolidator) {
		c.onEvent = fn
	}
}

// NewConsolidator creates a consolidator.
func NewConsolidator(generator llm.TextGenerator, episodic storage.EpisodicMemoryStore, sessions storage.SessionRegistry, opts ...ConsolidatorOption) *Consolidator {
	c := &Consolidator{
		llm:      generator,
		episodic: episodic,
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Detach starts the two background tasks for a completed turn and returns
// immediately. usedSnapshot is the episodic snapshot that served as context
// this turn, or nil if the turn ran without one.
func (c *Consolidator) Detach(req *types.ChatRequest, response string, usedSnapshot *types.EpisodicSnapshot) {
	c.spawn("title upgrade", func(ctx context.Context) error {
		return c.upgradeTitle(ctx, req)
	})
	c.spawn("episodic synthesis", func(ctx context.Context) error {
		return c.synthesize(ctx, req, response, usedSnapshot)
	})
}

// Wait blocks until all detached tasks spawned so far have finished. Used
// by tests and graceful shutdown; normal request handling never waits.
func (c *Consolidator) Wait() {
	c.wg.Wait()
}

func (c *Consolidator) spawn(name string, fn func(context.Context) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("chat: %s consolidator panic: %v", name, r)
			}
		}()
		// Detached from the request context on purpose: these tasks
		// outlive the HTTP-visible lifecycle.
		if err := fn(context.Background()); err != nil {
			log.Printf("chat: %s consolidator: %v", name, err)
		}
	}()
}

// upgradeTitle asks the model for a short session title and applies it.
func (c *Consolidator) upgradeTitle(ctx context.Context, req *types.ChatRequest) error {
	if req.SessionID == "" {
		return nil
	}

	response, err := c.llm.Complete(ctx, llm.TitlePrompt(req.Prompt))
	if err != nil {
		return fmt.Errorf("title generation failed: %w", err)
	}
	title := llm.ParseTitleResponse(response)
	if title == "" {
		return nil
	}

	if _, err := c.sessions.UpdateSession(ctx, req.UserID, req.SessionID, storage.SessionUpdate{Title: &title}); err != nil {
		return fmt.Errorf("title update failed: %w", err)
	}
	c.notify(ConsolidationEvent{
		Type:      ConsolidationTitleUpgraded,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Title:     title,
	})
	return nil
}

// synthesize creates a new episodic snapshot from the turn, or merges the
// turn into the snapshot that served as context. Malformed model output
// discards the result silently.
func (c *Consolidator) synthesize(ctx context.Context, req *types.ChatRequest, response string, usedSnapshot *types.EpisodicSnapshot) error {
	if response == "" {
		return nil
	}

	if usedSnapshot == nil {
		timestamp := time.Now().UTC().Format(time.RFC3339)
		raw, err := c.llm.Complete(ctx, llm.SnapshotSynthesisPrompt(req.Prompt, response, timestamp))
		if err != nil {
			return fmt.Errorf("snapshot synthesis failed: %w", err)
		}
		payload, err := llm.ParseSnapshotResponse(raw)
		if err != nil {
			return fmt.Errorf("snapshot synthesis discarded: %w", err)
		}

		created, err := c.episodic.Create(ctx, req.UserID, payload)
		if err != nil {
			return fmt.Errorf("snapshot create failed: %w", err)
		}
		c.notify(ConsolidationEvent{
			Type:       ConsolidationSnapshotCreated,
			UserID:     req.UserID,
			SessionID:  req.SessionID,
			SnapshotID: created.ID,
		})
		return nil
	}

	existingJSON, err := json.Marshal(&usedSnapshot.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal existing snapshot: %w", err)
	}
	raw, err := c.llm.Complete(ctx, llm.SnapshotMergePrompt(string(existingJSON), req.Prompt, response))
	if err != nil {
		return fmt.Errorf("snapshot merge failed: %w", err)
	}
	payload, err := llm.ParseSnapshotResponse(raw)
	if err != nil {
		return fmt.Errorf("snapshot merge discarded: %w", err)
	}

	if _, err := c.episodic.UpdateSnapshot(ctx, usedSnapshot.UserID, usedSnapshot.ID, storage.SnapshotUpdate{Payload: payload}); err != nil {
		return fmt.Errorf("snapshot update failed: %w", err)
	}
	c.notify(ConsolidationEvent{
		Type:       ConsolidationSnapshotMerged,
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		SnapshotID: usedSnapshot.ID,
	})
	return nil
}

func (c *Consolidator) notify(event ConsolidationEvent) {
	if c.onEvent != nil {
		c.onEvent(event)
	}
}
