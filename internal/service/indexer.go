package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oneteam-ai/go-rag-chatbot/internal/chunker"
	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
	"github.com/oneteam-ai/go-rag-chatbot/internal/port"
)

// Ingestion stage names carried by StageError.
const (
	StageLoad   = "load"
	StageChunk  = "chunk"
	StageEmbed  = "embed"
	StageReset  = "reset"
	StageStore  = "store"
	StageVerify = "verify"
	StageSmoke  = "smoke-test"
)

// StageError tags an ingestion failure with the stage that produced it. The
// run aborts on the first stage error; the collection stays in whatever
// partial state it reached and needs a manual rerun.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingestion stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// DocumentLoader yields the document set to be indexed.
type DocumentLoader interface {
	Load() ([]domain.Document, error)
}

// ProgressReporter receives per-item progress during the embed and store
// stages. Implementations render it however they like (bar, spinner, logs).
type ProgressReporter interface {
	Start(label string, total int)
	Increment()
	Finish()
}

type nopProgress struct{}

func (nopProgress) Start(string, int) {}
func (nopProgress) Increment()        {}
func (nopProgress) Finish()           {}

// IndexerConfig bounds the ingestion batches and the smoke-test query.
type IndexerConfig struct {
	// BatchSize caps records per store write call. The store may reject
	// oversized single calls, so ingestion always writes in batches.
	BatchSize int
	// EmbedBatchSize caps texts per embedding request.
	EmbedBatchSize int
	// SmokeQuery is run against the freshly built collection as a last check.
	SmokeQuery string
}

// IndexReport summarizes one completed ingestion run.
type IndexReport struct {
	Documents  int
	Chunks     int
	Stored     int
	BatchCalls int
}

// Indexer ingests a document corpus end to end: load, chunk, embed, reset
// the collection, store in bounded batches, verify, smoke-test. Each run
// replaces the collection, so reruns are idempotent from the caller's view.
// Runs must not overlap with live queries against the same collection.
type Indexer struct {
	loader   DocumentLoader
	splitter *chunker.Splitter
	embedder port.Embedder
	store    port.VectorStore
	cfg      IndexerConfig
	progress ProgressReporter
}

// NewIndexer assembles an ingestion pipeline. progress may be nil.
func NewIndexer(loader DocumentLoader, splitter *chunker.Splitter, embedder port.Embedder, store port.VectorStore, cfg IndexerConfig, progress ProgressReporter) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = 64
	}
	if cfg.SmokeQuery == "" {
		cfg.SmokeQuery = "sample question"
	}
	if progress == nil {
		progress = nopProgress{}
	}
	return &Indexer{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
		progress: progress,
	}
}

// Run executes the full ingestion. Any stage failure aborts the run with a
// StageError naming the stage; there is no rollback and no retry.
func (ix *Indexer) Run(ctx context.Context) (*IndexReport, error) {
	docs, err := ix.loader.Load()
	if err != nil {
		return nil, &StageError{StageLoad, err}
	}
	if len(docs) == 0 {
		return nil, &StageError{StageLoad, errors.New("no documents found")}
	}
	slog.Info("documents loaded", "count", len(docs))

	chunks := ix.splitter.Split(docs)
	if len(chunks) == 0 {
		return nil, &StageError{StageChunk, errors.New("no chunks produced")}
	}
	slog.Info("documents chunked", "chunks", len(chunks))

	texts := make([]string, len(chunks))
	metadatas := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
		metadatas[i] = c.Metadata
	}

	embeddings, err := ix.embedAll(ctx, texts)
	if err != nil {
		return nil, &StageError{StageEmbed, err}
	}

	if err := ix.resetCollection(ctx); err != nil {
		return nil, &StageError{StageReset, err}
	}

	batchCalls, err := ix.storeAll(ctx, texts, embeddings, metadatas)
	if err != nil {
		return nil, &StageError{StageStore, err}
	}

	count, err := ix.store.Count(ctx)
	if err != nil {
		return nil, &StageError{StageVerify, err}
	}
	if count != len(chunks) {
		return nil, &StageError{StageVerify, fmt.Errorf("stored %d of %d chunks", count, len(chunks))}
	}

	if err := ix.smokeTest(ctx); err != nil {
		return nil, &StageError{StageSmoke, err}
	}

	return &IndexReport{
		Documents:  len(docs),
		Chunks:     len(chunks),
		Stored:     count,
		BatchCalls: batchCalls,
	}, nil
}

// embedAll embeds texts in bounded requests, preserving order.
func (ix *Indexer) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	ix.progress.Start("embedding", len(texts))
	defer ix.progress.Finish()

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += ix.cfg.EmbedBatchSize {
		end := min(start+ix.cfg.EmbedBatchSize, len(texts))
		vectors, err := ix.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed texts %d..%d: %w", start, end, err)
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embed texts %d..%d: got %d vectors", start, end, len(vectors))
		}
		embeddings = append(embeddings, vectors...)
		for range vectors {
			ix.progress.Increment()
		}
	}
	return embeddings, nil
}

// resetCollection drops any existing records so a run never appends to stale
// chunks, then recreates the collection.
func (ix *Indexer) resetCollection(ctx context.Context) error {
	if err := ix.store.EnsureCollection(ctx); err != nil {
		return err
	}
	existing, err := ix.store.Count(ctx)
	if err != nil {
		return err
	}
	if existing > 0 {
		slog.Info("resetting collection", "existing", existing)
		if err := ix.store.DeleteCollection(ctx); err != nil {
			return err
		}
		if err := ix.store.EnsureCollection(ctx); err != nil {
			return err
		}
	}
	return nil
}

// storeAll writes records in batches of at most BatchSize. Batches only
// bound call size; ids remain sequential across batches within the run.
func (ix *Indexer) storeAll(ctx context.Context, texts []string, embeddings [][]float32, metadatas []map[string]any) (int, error) {
	ix.progress.Start("storing", len(texts))
	defer ix.progress.Finish()

	calls := 0
	for start := 0; start < len(texts); start += ix.cfg.BatchSize {
		end := min(start+ix.cfg.BatchSize, len(texts))
		if _, err := ix.store.Add(ctx, texts[start:end], embeddings[start:end], metadatas[start:end], nil); err != nil {
			return calls, fmt.Errorf("store batch %d..%d: %w", start, end, err)
		}
		calls++
		for i := start; i < end; i++ {
			ix.progress.Increment()
		}
	}
	return calls, nil
}

// smokeTest runs one query against the fresh collection.
func (ix *Indexer) smokeTest(ctx context.Context) error {
	embedding, err := ix.embedder.EmbedQuery(ctx, ix.cfg.SmokeQuery)
	if err != nil {
		return fmt.Errorf("embed smoke query: %w", err)
	}
	result, err := ix.store.Query(ctx, embedding, DefaultTopK, nil)
	if err != nil {
		return fmt.Errorf("smoke query: %w", err)
	}
	slog.Info("smoke-test query ok", "query", ix.cfg.SmokeQuery, "results", len(result.Documents))
	return nil
}
