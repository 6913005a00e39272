package types

// SemanticFragment is one ranked piece of long-term knowledge returned by a
// semantic search. Fragments are ephemeral: the chat pipeline consumes them
// per request and never persists them.
type SemanticFragment struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"` // relevance in [0, 1]
}

// SemanticChunk is one embeddable unit produced by the ingestion pipeline.
type SemanticChunk struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"-"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SemanticIngestRequest asks the ingestion pipeline to turn raw content into
// vector-searchable knowledge for one user.
type SemanticIngestRequest struct {
	UserID   string            `json:"userId"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
