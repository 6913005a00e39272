package chromem

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/pkg/types"
)

// SemanticIndex stores embedded chunks in chromem-go, an embedded pure-Go
// vector database. Each user gets their own collection for namespace
// isolation.
type SemanticIndex struct {
	db          *chromem.DB
	collections map[string]*chromem.Collection
	mu          sync.RWMutex
}

// New creates an in-memory semantic index.
func New() *SemanticIndex {
	return &SemanticIndex{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
}

func (s *SemanticIndex) collection(userID string) (*chromem.Collection, error) {
	s.mu.RLock()
	col, exists := s.collections[userID]
	s.mu.RUnlock()
	if exists {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, exists := s.collections[userID]; exists {
		return col, nil
	}

	name := "user_" + userID
	if userID == "" {
		name = "global"
	}

	// Embeddings are supplied by the caller; no embedding func needed.
	col, err := s.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

// Add indexes the given chunks under the user's collection.
func (s *SemanticIndex) Add(ctx context.Context, userID string, chunks []*types.SemanticChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	col, err := s.collection(userID)
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Content,
			Embedding: chunk.Embedding,
			Metadata:  chunk.Metadata,
		})
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Search returns chunks whose cosine similarity to the query embedding
// meets threshold, best first.
func (s *SemanticIndex) Search(ctx context.Context, userID string, embedding []float32, threshold float32, limit int) ([]*types.SemanticFragment, error) {
	col, err := s.collection(userID)
	if err != nil {
		return nil, err
	}

	// chromem rejects queries asking for more results than the collection
	// holds, so clamp the limit.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := col.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query embedding: %w", err)
	}

	var fragments []*types.SemanticFragment
	for _, result := range results {
		if result.Similarity < threshold {
			continue
		}
		fragments = append(fragments, &types.SemanticFragment{
			Content: result.Content,
			Score:   float64(result.Similarity),
		})
	}
	return fragments, nil
}

var _ storage.SemanticIndex = (*SemanticIndex)(nil)
