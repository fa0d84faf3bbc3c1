// Package chunker splits extracted document text into fixed-size,
// overlapping windows for indexing. There is no sentence or paragraph
// awareness: chunk boundaries are purely positional, so the chunk ids and
// counts derived from them are stable across runs.
package chunker

import (
	"fmt"

	"github.com/klarifai/queen-rag/internal/domain"
)

// Validate checks the chunking parameters. Overlap must be strictly
// smaller than size, otherwise the split loop cannot advance.
func Validate(size, overlap int) error {
	if size <= 0 {
		return &domain.ConfigurationError{Reason: fmt.Sprintf("chunk size must be positive, got %d", size)}
	}
	if overlap < 0 {
		return &domain.ConfigurationError{Reason: fmt.Sprintf("chunk overlap must be non-negative, got %d", overlap)}
	}
	if overlap >= size {
		return &domain.ConfigurationError{Reason: fmt.Sprintf("chunk overlap %d must be smaller than chunk size %d", overlap, size)}
	}
	return nil
}

// Split cuts text into windows of size bytes, each starting overlap bytes
// before the previous one ended. The final chunk is clipped to the text
// length. Empty text yields no chunks; any non-empty text yields at least
// one.
func Split(text string, size, overlap int) ([]string, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks, nil
}
