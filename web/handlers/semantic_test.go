package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memovo/memovo/internal/semantic"
	"github.com/memovo/memovo/internal/stream"
	"github.com/memovo/memovo/pkg/types"
	"github.com/memovo/memovo/web/handlers"
)

// stubEmbedder returns a fixed vector for every input.
type stubEmbedder struct{}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *stubEmbedder) GetModel() string { return "stub-embed" }

// stubIndex records added chunks and returns canned fragments.
type stubIndex struct {
	added     []*types.SemanticChunk
	fragments []*types.SemanticFragment
}

func (s *stubIndex) Add(ctx context.Context, userID string, chunks []*types.SemanticChunk) error {
	s.added = append(s.added, chunks...)
	return nil
}

func (s *stubIndex) Search(ctx context.Context, userID string, embedding []float32, threshold float32, limit int) ([]*types.SemanticFragment, error) {
	return s.fragments, nil
}

func TestSemanticHandlers_IngestStreamsStatuses(t *testing.T) {
	index := &stubIndex{}
	service := semantic.NewService(&stubStreamer{fragments: []string{"A short summary."}}, &stubEmbedder{}, index)
	h := handlers.NewSemanticHandlers(service)

	req := httptest.NewRequest("POST", "/api/semantic",
		strings.NewReader(`{"userId":"u1","content":"Long document text to remember."}`))
	w := httptest.NewRecorder()

	h.Ingest(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	events := decodeNDJSON(t, w.Body.String())
	require.NotEmpty(t, events)

	var statuses []string
	for _, event := range events {
		if event.Type == stream.EventStatus {
			statuses = append(statuses, event.Status)
		}
	}
	assert.Equal(t, []string{
		semantic.StatusSummarizing,
		semantic.StatusChunking,
		semantic.StatusStoring,
		semantic.StatusCompleted,
	}, statuses)
	assert.NotEmpty(t, index.added)
}

func TestSemanticHandlers_IngestRequiresContent(t *testing.T) {
	service := semantic.NewService(&stubStreamer{}, &stubEmbedder{}, &stubIndex{})
	h := handlers.NewSemanticHandlers(service)

	req := httptest.NewRequest("POST", "/api/semantic", strings.NewReader(`{"userId":"u1"}`))
	w := httptest.NewRecorder()

	h.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSemanticHandlers_Search(t *testing.T) {
	index := &stubIndex{fragments: []*types.SemanticFragment{
		{Content: "User enjoys hiking.", Score: 0.91},
	}}
	service := semantic.NewService(&stubStreamer{}, &stubEmbedder{}, index)
	h := handlers.NewSemanticHandlers(service)

	req := httptest.NewRequest("POST", "/api/semantic/search",
		strings.NewReader(`{"userId":"u1","query":"outdoor hobbies"}`))
	w := httptest.NewRecorder()

	h.Search(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hiking")
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestSemanticHandlers_SearchRequiresQuery(t *testing.T) {
	service := semantic.NewService(&stubStreamer{}, &stubEmbedder{}, &stubIndex{})
	h := handlers.NewSemanticHandlers(service)

	req := httptest.NewRequest("POST", "/api/semantic/search",
		strings.NewReader(`{"userId":"u1"}`))
	w := httptest.NewRecorder()

	h.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
