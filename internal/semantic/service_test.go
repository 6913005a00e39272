package semantic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memovo/memovo/internal/stream"
	"github.com/memovo/memovo/pkg/types"
)

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, f.err
}

func (f *fakeGenerator) GetModel() string { return "fake" }

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) GetModel() string { return "fake-embed" }

type fakeIndex struct {
	mu     sync.Mutex
	chunks []*types.SemanticChunk
	hits   []*types.SemanticFragment
	addErr error
}

func (f *fakeIndex) Add(ctx context.Context, userID string, chunks []*types.SemanticChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, userID string, embedding []float32, threshold float32, limit int) ([]*types.SemanticFragment, error) {
	return f.hits, nil
}

func drainStatuses(t *testing.T, s *stream.Stream) []string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var statuses []string
	for {
		event, ok := s.Next(ctx)
		if !ok {
			return statuses
		}
		if event.Type == stream.EventStatus {
			statuses = append(statuses, event.Status)
		}
	}
}

func TestIngestHappyPath(t *testing.T) {
	index := &fakeIndex{}
	service := NewService(&fakeGenerator{response: "A tidy summary of the content."}, &fakeEmbedder{}, index)

	s := service.IngestStream(context.Background(), &types.SemanticIngestRequest{
		UserID:   "u1",
		Content:  "raw content to remember",
		Metadata: map[string]string{"source": "note"},
	})

	statuses := drainStatuses(t, s)
	assert.Equal(t, []string{StatusSummarizing, StatusChunking, StatusStoring, StatusCompleted}, statuses)

	require.Len(t, index.chunks, 1)
	chunk := index.chunks[0]
	assert.NotEmpty(t, chunk.ID)
	assert.Equal(t, "A tidy summary of the content.", chunk.Content)
	assert.NotEmpty(t, chunk.Embedding)
	assert.Equal(t, "u1", chunk.Metadata["userId"])
	assert.Equal(t, "note", chunk.Metadata["source"])
}

func TestIngestSummarizeFailure(t *testing.T) {
	service := NewService(&fakeGenerator{err: errors.New("llm down")}, &fakeEmbedder{}, &fakeIndex{})

	s := service.IngestStream(context.Background(), &types.SemanticIngestRequest{UserID: "u1", Content: "c"})
	statuses := drainStatuses(t, s)

	require.NotEmpty(t, statuses)
	assert.Equal(t, StatusFailed, statuses[len(statuses)-1])
}

func TestIngestEmbedFailure(t *testing.T) {
	index := &fakeIndex{}
	service := NewService(&fakeGenerator{response: "summary."}, &fakeEmbedder{err: errors.New("embed down")}, index)

	s := service.IngestStream(context.Background(), &types.SemanticIngestRequest{UserID: "u1", Content: "c"})
	statuses := drainStatuses(t, s)

	assert.Equal(t, StatusFailed, statuses[len(statuses)-1])
	assert.Empty(t, index.chunks)
}

func TestIngestRejectsMissingFields(t *testing.T) {
	service := NewService(&fakeGenerator{response: "s"}, &fakeEmbedder{}, &fakeIndex{})

	s := service.IngestStream(context.Background(), &types.SemanticIngestRequest{UserID: "", Content: "c"})
	statuses := drainStatuses(t, s)
	require.Len(t, statuses, 1)
	assert.Equal(t, StatusFailed, statuses[0])
}

func TestSearchEmbedsQuery(t *testing.T) {
	index := &fakeIndex{hits: []*types.SemanticFragment{{Content: "hit", Score: 0.92}}}
	service := NewService(&fakeGenerator{}, &fakeEmbedder{}, index)

	fragments, err := service.Search(context.Background(), "u1", "query", 0.7, 5)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "hit", fragments[0].Content)
}

func TestSearchEmbedFailure(t *testing.T) {
	service := NewService(&fakeGenerator{}, &fakeEmbedder{err: errors.New("down")}, &fakeIndex{})
	_, err := service.Search(context.Background(), "u1", "query", 0.7, 5)
	assert.Error(t, err)
}
