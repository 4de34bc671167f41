package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
	"github.com/oneteam-ai/go-rag-chatbot/internal/port"
)

func TestNew_RejectsBadParameters(t *testing.T) {
	_, err := New(0, 0, "\n\n")
	require.ErrorIs(t, err, port.ErrInvalidChunking)

	_, err = New(100, 100, "\n\n")
	require.ErrorIs(t, err, port.ErrInvalidChunking)

	_, err = New(100, 150, "\n\n")
	require.ErrorIs(t, err, port.ErrInvalidChunking)

	_, err = New(100, -1, "\n\n")
	require.ErrorIs(t, err, port.ErrInvalidChunking)
}

func TestSplit_EmptyDocumentYieldsNoChunks(t *testing.T) {
	s, err := New(300, 100, "\n\n")
	require.NoError(t, err)

	chunks := s.Split([]domain.Document{
		{Content: ""},
		{Content: "   \n\n  \t"},
	})
	assert.Empty(t, chunks)
}

func TestSplit_ShortDocumentStaysWhole(t *testing.T) {
	s, err := New(300, 100, "\n\n")
	require.NoError(t, err)

	meta := map[string]any{"source": "guide.txt", "category": "startup"}
	doc := domain.Document{Content: strings.Repeat("a", 50), Metadata: meta}

	chunks := s.Split([]domain.Document{doc})
	require.Len(t, chunks, 1)
	assert.Equal(t, doc.Content, chunks[0].Content)
	assert.Equal(t, meta, chunks[0].Metadata)

	// Metadata is copied, not shared.
	chunks[0].Metadata["category"] = "changed"
	assert.Equal(t, "startup", meta["category"])
}

func TestSplit_SeparatorSegmentsBecomeChunks(t *testing.T) {
	s, err := New(100, 20, "\n\n")
	require.NoError(t, err)

	first := strings.Repeat("a", 80)
	second := strings.Repeat("b", 90)
	doc := domain.Document{Content: first + "\n\n" + second, Metadata: map[string]any{"source": "x"}}

	chunks := s.Split([]domain.Document{doc})
	require.Len(t, chunks, 2)
	assert.Equal(t, first, chunks[0].Content)
	assert.Equal(t, second, chunks[1].Content)
}

func TestSplit_WindowRule(t *testing.T) {
	s, err := New(300, 100, "\n\n")
	require.NoError(t, err)

	doc := domain.Document{Content: strings.Repeat("x", 1000), Metadata: map[string]any{"source": "long.txt"}}
	chunks := s.Split([]domain.Document{doc})

	// Window of 300 advancing by 200; the 100-rune tail folds into the last chunk.
	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0].Content, 300)
	assert.Len(t, chunks[1].Content, 300)
	assert.Len(t, chunks[2].Content, 300)
	assert.Len(t, chunks[3].Content, 400)
}

func TestSplit_WindowOverlapIsExact(t *testing.T) {
	s, err := New(300, 100, "\n\n")
	require.NoError(t, err)

	var b strings.Builder
	for i := 0; i < 1000; i++ {
		b.WriteRune(rune('0' + i%10))
	}
	chunks := s.Split([]domain.Document{{Content: b.String()}})
	require.Len(t, chunks, 4)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Content)
		cur := []rune(chunks[i].Content)
		tail := string(prev[len(prev)-100:])
		head := string(cur[:100])
		assert.Equal(t, tail, head, "chunks %d and %d must share exactly 100 runes", i-1, i)
	}
}

func TestSplit_ReassemblesSourceText(t *testing.T) {
	s, err := New(300, 100, "\n\n")
	require.NoError(t, err)

	text := strings.Repeat("한글과 English가 섞인 문장. ", 60)
	chunks := s.Split([]domain.Document{{Content: text}})
	require.NotEmpty(t, chunks)

	// Dropping each chunk's 100-rune overlap head reassembles the source.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Content)
	for _, c := range chunks[1:] {
		rebuilt.WriteString(string([]rune(c.Content)[100:]))
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplit_MixedDocumentSet(t *testing.T) {
	s, err := New(300, 100, "\n\n")
	require.NoError(t, err)

	docs := []domain.Document{
		{Content: strings.Repeat("a", 50), Metadata: map[string]any{"source": "a.txt"}},
		{Content: strings.Repeat("b", 400), Metadata: map[string]any{"source": "b.txt"}},
		{Content: strings.Repeat("c", 1000), Metadata: map[string]any{"source": "c.txt"}},
	}
	chunks := s.Split(docs)
	require.Len(t, chunks, 6)
	assert.Equal(t, "a.txt", chunks[0].Metadata["source"])
	assert.Equal(t, "b.txt", chunks[1].Metadata["source"])
	for _, c := range chunks[2:] {
		assert.Equal(t, "c.txt", c.Metadata["source"])
	}
}
