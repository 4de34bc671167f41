package domain

// QueryResult holds the raw neighbor lists returned by the vector store for
// one query embedding. All four slices have the same length, ordered by
// ascending distance (nearest first).
type QueryResult struct {
	Documents []string
	Metadatas []map[string]any
	Distances []float64
	IDs       []string
}

// RetrievalResult is one scored, ranked snippet produced by the retriever.
// Score is the cosine similarity derived from the store's cosine distance
// (score = 1 - distance/2); Rank is 1-based over the kept result set.
type RetrievalResult struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Score    float64        `json:"score"`
	Distance float64        `json:"distance"`
	ID       string         `json:"id"`
	Rank     int            `json:"rank"`
}

// Source returns the result's "source" metadata entry, or "unknown".
func (r RetrievalResult) Source() string {
	if s, ok := r.Metadata["source"].(string); ok && s != "" {
		return s
	}
	return "unknown"
}
