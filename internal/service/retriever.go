package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
	"github.com/oneteam-ai/go-rag-chatbot/internal/port"
)

// NoDocumentsFound is returned by FormatForPrompt for an empty result set.
const NoDocumentsFound = "No relevant documents were found."

// DefaultTopK is used when no result count is configured or requested.
const DefaultTopK = 3

// Retriever turns a query string into a ranked, scored, threshold-filtered
// list of document snippets by composing the embedder and the vector store.
type Retriever struct {
	embedder       port.Embedder
	store          port.VectorStore
	topK           int
	scoreThreshold float64
}

// NewRetriever creates a retriever with the given defaults. scoreThreshold is
// compared against raw cosine distance; a value <= 0 disables filtering.
func NewRetriever(embedder port.Embedder, store port.VectorStore, topK int, scoreThreshold float64) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder:       embedder,
		store:          store,
		topK:           topK,
		scoreThreshold: scoreThreshold,
	}
}

// Search embeds the query, fetches nearest neighbors and converts them to
// scored results. topK <= 0 falls back to the configured default; filter
// restricts candidates by metadata.
func (r *Retriever) Search(ctx context.Context, query string, topK int, filter map[string]any) ([]domain.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search: %w", port.ErrEmptyQuery)
	}
	k := topK
	if k <= 0 {
		k = r.topK
	}

	queryEmbedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	raw, err := r.store.Query(ctx, queryEmbedding, k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	results := make([]domain.RetrievalResult, 0, len(raw.Documents))
	for i := range raw.Documents {
		distance := raw.Distances[i]
		// Cosine distance runs 0 (identical direction) to 2 (opposite).
		similarity := 1 - distance/2

		// The threshold intentionally compares against raw distance, and a
		// threshold <= 0 disables filtering entirely.
		if distance <= r.scoreThreshold || r.scoreThreshold <= 0 {
			results = append(results, domain.RetrievalResult{
				Content:  raw.Documents[i],
				Metadata: raw.Metadatas[i],
				Score:    round4(similarity),
				Distance: round4(distance),
				ID:       raw.IDs[i],
				Rank:     len(results) + 1,
			})
		}
	}

	slog.Info("search complete", "query", query, "candidates", len(raw.Documents), "kept", len(results))
	return results, nil
}

// FormatForPrompt renders results as the grounding context block inserted
// into the model prompt, entries joined by "\n\n---\n\n".
func (r *Retriever) FormatForPrompt(results []domain.RetrievalResult, includeMetadata bool) string {
	if len(results) == 0 {
		return NoDocumentsFound
	}

	parts := make([]string, len(results))
	for i, res := range results {
		var b strings.Builder
		fmt.Fprintf(&b, "[Document %d] (similarity: %.2f)\n", i+1, res.Score)
		if includeMetadata && res.Metadata != nil {
			fmt.Fprintf(&b, "Source: %s\n", res.Source())
		}
		b.WriteString(res.Content)
		parts[i] = b.String()
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
