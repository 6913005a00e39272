// Package postgres provides a pgvector-backed semantic index for
// deployments that outgrow the embedded in-memory store.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/pkg/types"
)

// Schema contains the SQL statements to create the semantic chunk table.
// Requires the pgvector extension.
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS semantic_chunks (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    content TEXT NOT NULL,
    metadata JSONB,
    embedding vector,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_semantic_chunks_user ON semantic_chunks(user_id);
`

// SemanticIndex implements storage.SemanticIndex on PostgreSQL with the
// pgvector extension.
type SemanticIndex struct {
	db *sql.DB
}

// New connects to PostgreSQL and creates the schema.
func New(dsn string) (*SemanticIndex, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SemanticIndex{db: db}, nil
}

// Close closes the underlying database.
func (s *SemanticIndex) Close() error {
	return s.db.Close()
}

// Add indexes the given chunks for the user.
func (s *SemanticIndex) Add(ctx context.Context, userID string, chunks []*types.SemanticChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, chunk := range chunks {
		var metadataJSON []byte
		if chunk.Metadata != nil {
			metadataJSON, err = json.Marshal(chunk.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal chunk metadata: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO semantic_chunks (id, user_id, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT(id) DO UPDATE SET
				content = excluded.content,
				metadata = excluded.metadata,
				embedding = excluded.embedding`,
			chunk.ID, userID, chunk.Content, metadataJSON, pgvector.NewVector(chunk.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}
	return tx.Commit()
}

// Search returns chunks whose cosine similarity to the query embedding
// meets threshold, best first. Cosine similarity is derived from pgvector's
// cosine distance operator.
func (s *SemanticIndex) Search(ctx context.Context, userID string, embedding []float32, threshold float32, limit int) ([]*types.SemanticFragment, error) {
	if limit <= 0 {
		limit = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.db.QueryContext(ctx, `
		SELECT content, 1 - (embedding <=> $1::vector) AS similarity
		FROM semantic_chunks
		WHERE user_id = $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3`,
		vec, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query semantic chunks: %w", err)
	}
	defer rows.Close()

	var fragments []*types.SemanticFragment
	for rows.Next() {
		var fragment types.SemanticFragment
		if err := rows.Scan(&fragment.Content, &fragment.Score); err != nil {
			return nil, fmt.Errorf("failed to scan semantic chunk: %w", err)
		}
		if fragment.Score < float64(threshold) {
			continue
		}
		fragments = append(fragments, &fragment)
	}
	return fragments, rows.Err()
}

var _ storage.SemanticIndex = (*SemanticIndex)(nil)
