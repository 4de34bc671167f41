package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
	"github.com/oneteam-ai/go-rag-chatbot/internal/port"
)

const systemPrompt = `You are an expert in commercial district analysis and startup consulting.
Answer the user's question accurately and helpfully, based on the reference documents provided.

When answering:
1. Ground your answer in the reference documents, but explain naturally.
2. If the documents do not cover something, say clearly that the provided material does not contain that information. Never make facts up.
3. Give concrete, practical advice where possible.
4. Mention the source documents when it helps.`

// NoInformationAnswer is the fixed reply when retrieval finds nothing; the
// model is never called in that case.
const NoInformationAnswer = "Sorry, I could not find any relevant information. Could you try asking a different question?"

// Answerer drives one retrieval-augmented completion, either whole-response
// or incrementally streamed.
type Answerer struct {
	retriever *Retriever
	llm       port.LLM
	timeout   time.Duration
}

// NewAnswerer creates an answerer. timeout bounds each model call; <= 0
// falls back to two minutes.
func NewAnswerer(retriever *Retriever, llm port.LLM, timeout time.Duration) *Answerer {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Answerer{retriever: retriever, llm: llm, timeout: timeout}
}

// buildMessages assembles the model prompt: the grounding system instruction,
// the caller's history verbatim, then one user turn with the retrieved
// context ahead of the question.
func (a *Answerer) buildMessages(query string, results []domain.RetrievalResult, history []domain.ChatMessage) []domain.ChatMessage {
	grounding := a.retriever.FormatForPrompt(results, true)
	userPrompt := fmt.Sprintf(
		"[Reference documents]\n%s\n\n[User question]\n%s\n\nAnswer the user's question based on the reference documents above.",
		grounding, query)

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: userPrompt})
	return messages
}

// Run executes the pipeline non-incrementally. The caller always receives a
// well-formed Answer for operational failures: a retrieval failure degrades
// into a plain-language answer with no sources, a model failure into one
// that still carries the retrieved sources. Only invalid input (empty
// query) is returned as an error.
func (a *Answerer) Run(ctx context.Context, query string, history []domain.ChatMessage, topK int) (*domain.Answer, error) {
	results, err := a.retriever.Search(ctx, query, topK, nil)
	if err != nil {
		if errors.Is(err, port.ErrEmptyQuery) {
			return nil, err
		}
		slog.Error("retrieval failed", "query", query, "error", err)
		return &domain.Answer{
			Answer:  fmt.Sprintf("Sorry, an error occurred while searching for documents: %v", err),
			Sources: []domain.RetrievalResult{},
			Query:   query,
		}, nil
	}

	if len(results) == 0 {
		slog.Info("no relevant documents, skipping model call", "query", query)
		return &domain.Answer{
			Answer:  NoInformationAnswer,
			Sources: []domain.RetrievalResult{},
			Query:   query,
		}, nil
	}

	messages := a.buildMessages(query, results, history)

	chatCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	answer, usage, err := a.llm.Chat(chatCtx, messages)
	if err != nil {
		slog.Error("model call failed", "model", a.llm.ModelName(), "error", err)
		return &domain.Answer{
			Answer:  fmt.Sprintf("Sorry, an error occurred while generating the answer: %v", err),
			Sources: results,
			Query:   query,
		}, nil
	}

	return &domain.Answer{Answer: answer, Sources: results, Query: query, Usage: usage}, nil
}

// StreamRun executes the pipeline incrementally. The returned channel emits
// at most one sources event, then answer fragments in model order, then
// exactly one terminal done or error event, and is closed afterwards. No
// failure escapes the channel; cancelling ctx releases the model stream.
func (a *Answerer) StreamRun(ctx context.Context, query string, history []domain.ChatMessage, topK int) <-chan domain.StreamEvent {
	events := make(chan domain.StreamEvent, 16)

	go func() {
		defer close(events)

		emit := func(ev domain.StreamEvent) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		results, err := a.retriever.Search(ctx, query, topK, nil)
		if err != nil {
			slog.Error("retrieval failed", "query", query, "error", err)
			emit(domain.ErrorEvent(err.Error()))
			return
		}

		if len(results) == 0 {
			if emit(domain.AnswerEvent(NoInformationAnswer)) {
				emit(domain.DoneEvent())
			}
			return
		}

		if !emit(domain.SourcesEvent(results)) {
			return
		}

		messages := a.buildMessages(query, results, history)

		chatCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		stream, err := a.llm.ChatStream(chatCtx, messages)
		if err != nil {
			slog.Error("model stream failed", "model", a.llm.ModelName(), "error", err)
			emit(domain.ErrorEvent(err.Error()))
			return
		}

		for fragment := range stream {
			if fragment.Err != nil {
				slog.Error("model stream broke", "model", a.llm.ModelName(), "error", fragment.Err)
				emit(domain.ErrorEvent(fragment.Err.Error()))
				return
			}
			if !emit(domain.AnswerEvent(fragment.Content)) {
				return
			}
		}

		if chatCtx.Err() != nil {
			emit(domain.ErrorEvent(chatCtx.Err().Error()))
			return
		}
		emit(domain.DoneEvent())
	}()

	return events
}
