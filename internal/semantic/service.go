package semantic

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/memovo/memovo/internal/llm"
	"github.com/memovo/memovo/internal/stream"
	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/pkg/types"
)

// Ingestion status stages emitted over the event stream.
const (
	StatusSummarizing = "summarizing"
	StatusChunking    = "chunking"
	StatusStoring     = "storing"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

// Service runs the long-term memory pipeline: summarize raw content, chunk
// it, embed each chunk, and index the result. It also serves similarity
// search for the chat pipeline's semantic fallback.
type Service struct {
	llm      llm.TextGenerator
	embedder llm.EmbeddingGenerator
	index    storage.SemanticIndex
	chunker  *Chunker
}

// NewService wires the ingestion pipeline to its collaborators.
func NewService(generator llm.TextGenerator, embedder llm.EmbeddingGenerator, index storage.SemanticIndex) *Service {
	return &Service{
		llm:      generator,
		embedder: embedder,
		index:    index,
		chunker:  NewChunker(),
	}
}

// IngestStream starts ingestion for the request and returns its event
// stream immediately. The stream always terminates with completed or
// failed and is closed on every exit path.
func (s *Service) IngestStream(ctx context.Context, req *types.SemanticIngestRequest) *stream.Stream {
	events := stream.New()
	go s.process(ctx, req, events)
	return events
}

func (s *Service) process(ctx context.Context, req *types.SemanticIngestRequest, events *stream.Stream) {
	defer events.Close()

	if err := s.ingest(ctx, req, events); err != nil {
		log.Printf("semantic: ingestion failed for user %s: %v", req.UserID, err)
		events.Emit(stream.Status(StatusFailed, "Error occurred: "+err.Error()))
	}
}

func (s *Service) ingest(ctx context.Context, req *types.SemanticIngestRequest, events *stream.Stream) error {
	if req.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if req.Content == "" {
		return fmt.Errorf("content is required")
	}

	events.Emit(stream.Status(StatusSummarizing, "Summarizing content..."))
	summary, err := s.llm.Complete(ctx, llm.SummarizePrompt(req.Content))
	if err != nil {
		return fmt.Errorf("failed to summarize content: %w", err)
	}

	events.Emit(stream.Status(StatusChunking, "Chunking the summary for vector storage..."))
	pieces := s.chunker.Chunk(summary)
	if len(pieces) == 0 {
		return fmt.Errorf("summary produced no chunks")
	}

	events.Emit(stream.Status(StatusStoring, fmt.Sprintf("Embedding and storing %d chunks...", len(pieces))))
	chunks := make([]*types.SemanticChunk, 0, len(pieces))
	for _, piece := range pieces {
		embedding, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			return fmt.Errorf("failed to embed chunk: %w", err)
		}

		metadata := map[string]string{"userId": req.UserID}
		for k, v := range req.Metadata {
			metadata[k] = v
		}
		chunks = append(chunks, &types.SemanticChunk{
			ID:        uuid.NewString(),
			Content:   piece,
			Embedding: embedding,
			Metadata:  metadata,
		})
	}
	if err := s.index.Add(ctx, req.UserID, chunks); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}

	events.Emit(stream.Status(StatusCompleted, "Semantic memory stored successfully."))
	return nil
}

// Search embeds the query and returns indexed fragments whose similarity
// meets threshold, best first.
func (s *Service) Search(ctx context.Context, userID, query string, threshold float32, limit int) ([]*types.SemanticFragment, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.index.Search(ctx, userID, embedding, threshold, limit)
}
