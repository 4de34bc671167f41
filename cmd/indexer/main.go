package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/oneteam-ai/go-rag-chatbot/internal/adapter/ai"
	"github.com/oneteam-ai/go-rag-chatbot/internal/adapter/store"
	"github.com/oneteam-ai/go-rag-chatbot/internal/chunker"
	"github.com/oneteam-ai/go-rag-chatbot/internal/loader"
	"github.com/oneteam-ai/go-rag-chatbot/internal/service"
	"github.com/oneteam-ai/go-rag-chatbot/pkg/config"

	_ "github.com/lib/pq"
)

// barProgress renders ingestion stages as a terminal progress bar.
type barProgress struct {
	bar *progressbar.ProgressBar
}

func (p *barProgress) Start(label string, total int) {
	if total <= 0 {
		p.bar = nil
		return
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *barProgress) Increment() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *barProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("📚 Starting document ingestion",
		"documents_dir", cfg.DocumentsDir,
		"collection", cfg.Collection,
		"chunk_size", cfg.ChunkSize,
		"chunk_overlap", cfg.ChunkOverlap,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	collection, err := store.NewCollection(pgStore, cfg.Collection, cfg.EmbeddingDimension)
	if err != nil {
		slog.Error("invalid collection config", "error", err)
		os.Exit(1)
	}

	// ── Pipeline pieces ──────────────────────────────────────────────────
	ollamaAI := ai.NewOllamaProvider(
		ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaEmbedURL,
			Model:   cfg.OllamaEmbedModel,
			Token:   cfg.OllamaEmbedToken,
		},
		ai.OllamaEndpointConfig{
			BaseURL: cfg.OllamaChatURL,
			Model:   cfg.OllamaChatModel,
			Token:   cfg.OllamaChatToken,
		},
		cfg.EmbeddingDimension,
		ai.GenerationOptions{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	)

	splitter, err := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap, cfg.ChunkSeparator)
	if err != nil {
		slog.Error("invalid chunking config", "error", err)
		os.Exit(1)
	}

	docLoader := loader.New(cfg.DocumentsDir, cfg.SupportedExtensions)

	indexer := service.NewIndexer(docLoader, splitter, ollamaAI, collection, service.IndexerConfig{
		BatchSize:      cfg.IngestBatchSize,
		EmbedBatchSize: cfg.EmbedBatchSize,
	}, &barProgress{})

	// ── Run ──────────────────────────────────────────────────────────────
	report, err := indexer.Run(ctx)
	if err != nil {
		var stageErr *service.StageError
		if errors.As(err, &stageErr) {
			slog.Error("ingestion failed", "stage", stageErr.Stage, "error", stageErr.Err)
		} else {
			slog.Error("ingestion failed", "error", err)
		}
		os.Exit(1)
	}

	slog.Info("✅ Ingestion complete",
		"documents", report.Documents,
		"chunks", report.Chunks,
		"stored", report.Stored,
		"batches", report.BatchCalls,
	)
}
