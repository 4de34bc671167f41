package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
	"github.com/oneteam-ai/go-rag-chatbot/internal/port"
)

// stubEmbedder maps text deterministically to a unit vector, so identical
// texts always land at distance ~0 from each other.
type stubEmbedder struct {
	err error
}

func (e *stubEmbedder) Dimension() int { return 4 }

func (e *stubEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if strings.TrimSpace(text) == "" {
		return nil, port.ErrEmptyInput
	}
	return embedText(text), nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			continue
		}
		out = append(out, embedText(t))
	}
	if len(out) == 0 {
		return nil, port.ErrEmptyInput
	}
	return out, nil
}

func embedText(text string) []float32 {
	v := make([]float64, 4)
	for i := range v {
		h := fnv.New32a()
		_, _ = h.Write([]byte(text))
		_, _ = h.Write([]byte{byte(i)})
		v[i] = float64(h.Sum32()%2000)/1000 - 1
	}
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float32, 4)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}

type memoryRecord struct {
	id        string
	text      string
	embedding []float32
	metadata  map[string]any
}

// memoryStore is an in-memory port.VectorStore with real cosine distance and
// call accounting for batch assertions.
type memoryStore struct {
	records     []memoryRecord
	addCalls    []int // batch sizes per Add call
	queryErr    error
	addErr      error
	resetCalls  int
	ensureCalls int
}

func (m *memoryStore) Add(_ context.Context, texts []string, embeddings [][]float32, metadatas []map[string]any, ids []string) ([]string, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	if len(texts) == 0 || len(embeddings) == 0 {
		return nil, port.ErrEmptyInput
	}
	if len(texts) != len(embeddings) || (metadatas != nil && len(metadatas) != len(texts)) {
		return nil, port.ErrDimensionMismatch
	}
	if ids == nil {
		ids = make([]string, len(texts))
		for i := range texts {
			ids[i] = fmt.Sprintf("doc_%d", len(m.records)+i)
		}
	}
	for i := range texts {
		var meta map[string]any
		if metadatas != nil {
			meta = metadatas[i]
		}
		m.records = append(m.records, memoryRecord{
			id:        ids[i],
			text:      texts[i],
			embedding: embeddings[i],
			metadata:  meta,
		})
	}
	m.addCalls = append(m.addCalls, len(texts))
	return ids, nil
}

func (m *memoryStore) Query(_ context.Context, embedding []float32, topK int, filter map[string]any) (*domain.QueryResult, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	type scored struct {
		rec      memoryRecord
		distance float64
	}
	var candidates []scored
	for _, rec := range m.records {
		if !matchesFilter(rec.metadata, filter) {
			continue
		}
		candidates = append(candidates, scored{rec, cosineDistance(embedding, rec.embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	result := &domain.QueryResult{}
	for _, c := range candidates {
		result.Documents = append(result.Documents, c.rec.text)
		result.Metadatas = append(result.Metadatas, c.rec.metadata)
		result.Distances = append(result.Distances, c.distance)
		result.IDs = append(result.IDs, c.rec.id)
	}
	return result, nil
}

func (m *memoryStore) Delete(_ context.Context, ids []string) error {
	keep := m.records[:0]
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	for _, rec := range m.records {
		if !drop[rec.id] {
			keep = append(keep, rec)
		}
	}
	m.records = keep
	return nil
}

func (m *memoryStore) DeleteCollection(context.Context) error {
	m.records = nil
	m.resetCalls++
	return nil
}

func (m *memoryStore) EnsureCollection(context.Context) error {
	m.ensureCalls++
	return nil
}

func (m *memoryStore) Count(context.Context) (int, error) {
	return len(m.records), nil
}

func matchesFilter(metadata, filter map[string]any) bool {
	for k, want := range filter {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

func cosineDistance(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	// Unit vectors assumed; clamp for float noise.
	d := 1 - dot
	if d < 0 {
		return 0
	}
	return d
}

// scriptedLLM returns canned completions and records whether it was called.
// streamErr fails the stream before the first fragment; midStreamErr breaks
// it after all scripted fragments, as a connection drop would.
type scriptedLLM struct {
	answer       string
	usage        *domain.TokenUsage
	fragments    []string
	chatErr      error
	streamErr    error
	midStreamErr error
	chatCalls    int
}

func (l *scriptedLLM) ModelName() string { return "scripted" }

func (l *scriptedLLM) Chat(_ context.Context, _ []domain.ChatMessage) (string, *domain.TokenUsage, error) {
	l.chatCalls++
	if l.chatErr != nil {
		return "", nil, l.chatErr
	}
	return l.answer, l.usage, nil
}

func (l *scriptedLLM) ChatStream(_ context.Context, _ []domain.ChatMessage) (<-chan domain.ChatFragment, error) {
	l.chatCalls++
	if l.streamErr != nil {
		return nil, l.streamErr
	}
	ch := make(chan domain.ChatFragment, len(l.fragments)+1)
	for _, f := range l.fragments {
		ch <- domain.ChatFragment{Content: f}
	}
	if l.midStreamErr != nil {
		ch <- domain.ChatFragment{Err: l.midStreamErr}
	}
	close(ch)
	return ch, nil
}

// hangingLLM streams nothing until its context ends, then signals released.
type hangingLLM struct {
	released chan struct{}
}

func (l *hangingLLM) ModelName() string { return "hanging" }

func (l *hangingLLM) Chat(context.Context, []domain.ChatMessage) (string, *domain.TokenUsage, error) {
	return "", nil, nil
}

func (l *hangingLLM) ChatStream(ctx context.Context, _ []domain.ChatMessage) (<-chan domain.ChatFragment, error) {
	ch := make(chan domain.ChatFragment)
	go func() {
		defer close(ch)
		<-ctx.Done()
		close(l.released)
	}()
	return ch, nil
}

var errStoreDown = errors.New("store unavailable")
