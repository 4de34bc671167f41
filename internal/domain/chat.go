package domain

// Chat roles accepted in conversation history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation, supplied by the caller and never
// persisted by this backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatFragment is one element of a streamed completion. A failure mid-stream
// arrives as a final fragment carrying Err; the channel is closed right after.
type ChatFragment struct {
	Content string
	Err     error
}

// TokenUsage reports the model's token accounting for one completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Answer is the result of one non-streaming pipeline run. Usage is nil when
// the model call failed or was skipped (empty retrieval short-circuit).
type Answer struct {
	Answer  string            `json:"answer"`
	Sources []RetrievalResult `json:"sources"`
	Query   string            `json:"query"`
	Usage   *TokenUsage       `json:"usage,omitempty"`
}
