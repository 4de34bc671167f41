package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
	"github.com/oneteam-ai/go-rag-chatbot/internal/service"
)

// ChatRequest is the body accepted by both chat endpoints.
type ChatRequest struct {
	Message             string               `json:"message"`
	ConversationHistory []domain.ChatMessage `json:"conversation_history"`
}

// ChatHandler exposes the RAG pipeline over HTTP: a whole-response endpoint
// and a server-sent-events streaming endpoint.
type ChatHandler struct {
	answerer *service.Answerer
	topK     int
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(answerer *service.Answerer, topK int) *ChatHandler {
	return &ChatHandler{answerer: answerer, topK: topK}
}

// Register sets up chat routes.
func (h *ChatHandler) Register(router fiber.Router) {
	router.Post("/rag-chat", h.Chat)
	router.Post("/rag-chat-stream", h.ChatStream)
}

// Chat runs the pipeline non-incrementally and returns the full answer with
// its sources.
func (h *ChatHandler) Chat(c fiber.Ctx) error {
	var req ChatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	result, err := h.answerer.Run(c.Context(), req.Message, req.ConversationHistory, h.topK)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

// ChatStream runs the pipeline incrementally and frames each event as one
// server-sent-events message: "data: <json>\n\n".
func (h *ChatHandler) ChatStream(c fiber.Ctx) error {
	var req ChatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	query := req.Message
	history := req.ConversationHistory

	return c.SendStreamWriter(func(w *bufio.Writer) {
		// The stream outlives the handler's request context, so it gets its
		// own lifetime, cancelled when the client stops reading to release
		// the model stream.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		for ev := range h.answerer.StreamRun(ctx, query, history, h.topK) {
			if err := writeEvent(w, ev); err != nil {
				slog.Debug("stream client gone", "error", err)
				return
			}
		}
	})
}

// writeEvent frames one event as SSE and flushes it to the client.
func writeEvent(w *bufio.Writer, ev domain.StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
