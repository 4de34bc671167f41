package port

import (
	"context"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
)

// VectorStore persists (embedding, text, metadata) records in one named
// collection and answers nearest-neighbor queries by cosine distance.
// Implementations own record ids and the on-disk format; records are never
// mutated in place (updates are delete + re-add).
type VectorStore interface {
	// Add stores texts with their embeddings and metadata. texts, embeddings
	// and metadatas must have equal lengths (ErrDimensionMismatch otherwise,
	// ErrEmptyInput when empty). When ids is nil they are generated
	// sequentially, continuing from the current collection size. Returns the
	// ids under which the records were stored.
	Add(ctx context.Context, texts []string, embeddings [][]float32, metadatas []map[string]any, ids []string) ([]string, error)

	// Query returns up to topK nearest neighbors of the query embedding,
	// ordered by ascending cosine distance. filter restricts candidates to
	// records whose metadata contains all given key/value pairs.
	Query(ctx context.Context, embedding []float32, topK int, filter map[string]any) (*domain.QueryResult, error)

	// Delete removes the records with the given ids.
	Delete(ctx context.Context, ids []string) error

	// DeleteCollection drops the whole collection.
	DeleteCollection(ctx context.Context) error

	// EnsureCollection creates the collection if it does not yet exist.
	EnsureCollection(ctx context.Context) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)
}
