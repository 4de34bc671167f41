package chunker

import (
	"fmt"
	"strings"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
	"github.com/oneteam-ai/go-rag-chatbot/internal/port"
)

// DefaultSeparator is the paragraph break used when none is configured.
const DefaultSeparator = "\n\n"

// Splitter splits documents into bounded, overlapping chunks. Separator
// segments that fit within ChunkSize become chunks as-is; longer segments are
// split by a sliding window of ChunkSize runes advancing by
// ChunkSize - ChunkOverlap, so consecutive window chunks share exactly
// ChunkOverlap runes. The window's final remainder is absorbed into the last
// chunk rather than emitted undersized, so that chunk may exceed ChunkSize by
// up to one step.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separator    string
}

// New validates the chunking parameters and returns a Splitter.
func New(chunkSize, chunkOverlap int, separator string) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size %d: %w", chunkSize, port.ErrInvalidChunking)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d with chunk size %d: %w", chunkOverlap, chunkSize, port.ErrInvalidChunking)
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap, separator: separator}, nil
}

// Split chunks every document, carrying each source document's metadata onto
// its chunks. Empty and whitespace-only pieces are dropped.
func (s *Splitter) Split(docs []domain.Document) []domain.Document {
	var chunks []domain.Document
	for _, doc := range docs {
		for _, piece := range s.splitText(doc.Content) {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			chunks = append(chunks, domain.Document{
				Content:  piece,
				Metadata: doc.CloneMetadata(),
			})
		}
	}
	return chunks
}

// splitText splits one document's text. A document that already fits within
// ChunkSize stays whole regardless of separators.
func (s *Splitter) splitText(text string) []string {
	if len([]rune(text)) <= s.chunkSize {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	var pieces []string
	for _, segment := range strings.Split(text, s.separator) {
		segRunes := []rune(segment)
		if len(segRunes) <= s.chunkSize {
			pieces = append(pieces, segment)
			continue
		}
		pieces = append(pieces, s.window(segRunes)...)
	}
	return pieces
}

// window slides a fixed-size window over an oversized segment. The remainder
// after the last full step is folded into the final chunk.
func (s *Splitter) window(runes []rune) []string {
	step := s.chunkSize - s.chunkOverlap
	var out []string
	for start := 0; ; start += step {
		if start+s.chunkSize+step > len(runes) {
			out = append(out, string(runes[start:]))
			return out
		}
		out = append(out, string(runes[start:start+s.chunkSize]))
	}
}
