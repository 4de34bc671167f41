package port

import (
	"context"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
)

// Embedder maps text to fixed-dimension, unit-normalized float vectors.
// The same instance must serve both indexing and querying so the distance
// semantics of stored and query vectors stay comparable.
type Embedder interface {
	// Dimension returns the fixed vector dimension of the model.
	Dimension() int

	// EmbedQuery embeds a single query text. Returns ErrEmptyInput when the
	// text is empty after trimming.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds multiple texts in one call, skipping empty entries.
	// Returns ErrEmptyInput only when every entry is empty.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM abstracts the chat completion backend.
// Implementations can target Ollama, OpenAI, or any compatible API.
type LLM interface {
	// ModelName returns the identifier of the model being used.
	ModelName() string

	// Chat sends the full message list and returns the complete response
	// plus the model's token accounting (nil when unavailable).
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, *domain.TokenUsage, error)

	// ChatStream sends the full message list and streams the response
	// fragment-by-fragment via channel, in model emission order. A failure
	// after streaming has started is delivered as a final fragment with Err
	// set. The channel is closed when the model finishes, after an Err
	// fragment, or when ctx is cancelled; cancelling ctx releases the
	// underlying response stream.
	ChatStream(ctx context.Context, messages []domain.ChatMessage) (<-chan domain.ChatFragment, error)
}
