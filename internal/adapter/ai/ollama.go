package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
	"github.com/oneteam-ai/go-rag-chatbot/internal/port"
)

// OllamaEndpointConfig holds the configuration for a single Ollama endpoint.
type OllamaEndpointConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://api.ollama.com
	Model   string // e.g. bge-m3, qwen3
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// GenerationOptions bound the chat completion call.
type GenerationOptions struct {
	Temperature float64
	MaxTokens   int
}

// OllamaProvider implements port.Embedder and port.LLM using the Ollama REST
// API. Supports separate endpoints for embed vs chat (different URLs, models,
// and tokens). Embeddings are L2-normalized before being returned so stored
// and query vectors always live in the same cosine space.
type OllamaProvider struct {
	embed      OllamaEndpointConfig
	chat       OllamaEndpointConfig
	dimension  int
	gen        GenerationOptions
	httpClient *http.Client
}

// NewOllamaProvider creates a new Ollama-backed provider with separate
// embed/chat configs.
func NewOllamaProvider(embed, chat OllamaEndpointConfig, dimension int, gen GenerationOptions) *OllamaProvider {
	return &OllamaProvider{
		embed:      embed,
		chat:       chat,
		dimension:  dimension,
		gen:        gen,
		httpClient: &http.Client{},
	}
}

// ModelName returns the chat model identifier.
func (o *OllamaProvider) ModelName() string {
	return o.chat.Model
}

// Dimension returns the configured embedding dimension.
func (o *OllamaProvider) Dimension() int {
	return o.dimension
}

// EmbedQuery generates a unit-normalized vector embedding for one text.
func (o *OllamaProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed query: %w", port.ErrEmptyInput)
	}

	vectors, err := o.requestEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("ollama embed: empty response")
	}

	return normalize(vectors[0]), nil
}

// EmbedBatch generates embeddings for multiple texts in one call. Empty
// entries are skipped; the call fails only when every entry is empty.
func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	valid := make([]string, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("embed batch: %w", port.ErrEmptyInput)
	}

	vectors, err := o.requestEmbeddings(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("ollama embed batch: %w", err)
	}
	if len(vectors) != len(valid) {
		return nil, fmt.Errorf("ollama embed batch: got %d vectors for %d texts", len(vectors), len(valid))
	}

	for i, v := range vectors {
		vectors[i] = normalize(v)
	}
	return vectors, nil
}

// Chat sends the message list and returns the complete response with token
// usage parsed from the model's eval counts.
func (o *OllamaProvider) Chat(ctx context.Context, messages []domain.ChatMessage) (string, *domain.TokenUsage, error) {
	payload := o.chatPayload(messages, false)

	body, err := o.post(ctx, o.chat, "/api/chat", payload)
	if err != nil {
		return "", nil, fmt.Errorf("ollama chat: %w", err)
	}

	var resp struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		PromptEvalCount int `json:"prompt_eval_count"`
		EvalCount       int `json:"eval_count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, fmt.Errorf("ollama chat decode: %w", err)
	}

	usage := &domain.TokenUsage{
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}
	return resp.Message.Content, usage, nil
}

// ChatStream sends the message list and streams the response fragment by
// fragment. A transport or decode failure mid-stream, or a connection that
// closes before the model's done marker, is delivered as a final fragment
// with Err set. The returned channel is closed when the model finishes or
// ctx is cancelled; cancellation also closes the underlying response body.
func (o *OllamaProvider) ChatStream(ctx context.Context, messages []domain.ChatMessage) (<-chan domain.ChatFragment, error) {
	payload := o.chatPayload(messages, true)

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("ollama stream: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.chat.BaseURL+"/api/chat", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("ollama stream: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.chat.Token != "" {
		req.Header.Set("Authorization", "Bearer "+o.chat.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama stream: API error (%d): %s", resp.StatusCode, string(body))
	}

	ch := make(chan domain.ChatFragment, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		decoder := json.NewDecoder(resp.Body)
		for {
			var chunk struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
				Done bool `json:"done"`
			}
			if err := decoder.Decode(&chunk); err != nil {
				if ctx.Err() != nil {
					return
				}
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					err = fmt.Errorf("ollama stream: connection closed before completion")
				} else {
					err = fmt.Errorf("ollama stream decode: %w", err)
				}
				select {
				case ch <- domain.ChatFragment{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if chunk.Message.Content != "" {
				select {
				case ch <- domain.ChatFragment{Content: chunk.Message.Content}:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				return
			}
		}
	}()

	return ch, nil
}

func (o *OllamaProvider) chatPayload(messages []domain.ChatMessage, stream bool) map[string]any {
	msgs := make([]map[string]string, len(messages))
	for i, m := range messages {
		msgs[i] = map[string]string{"role": m.Role, "content": m.Content}
	}

	options := map[string]any{"temperature": o.gen.Temperature}
	if o.gen.MaxTokens > 0 {
		options["num_predict"] = o.gen.MaxTokens
	}

	return map[string]any{
		"model":    o.chat.Model,
		"messages": msgs,
		"stream":   stream,
		"options":  options,
	}
}

// requestEmbeddings posts input (one string or a slice) to the embed endpoint.
func (o *OllamaProvider) requestEmbeddings(ctx context.Context, input any) ([][]float32, error) {
	payload := map[string]any{
		"model": o.embed.Model,
		"input": input,
	}

	body, err := o.post(ctx, o.embed, "/api/embed", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return resp.Embeddings, nil
}

// post is a helper for POST requests to an Ollama endpoint (with optional bearer token).
func (o *OllamaProvider) post(ctx context.Context, cfg OllamaEndpointConfig, path string, payload any) ([]byte, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// normalize scales v to unit L2 norm. A zero vector is returned unchanged.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
