// Package chunker splits document text into overlapping, boundary-aware passages.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/karakuri/shirabe/internal/models"
)

// Default limits applied when no option overrides them.
const (
	DefaultMaxTextLen = 1_000_000
	DefaultMaxChunks  = 10_000
)

// ErrTextTooLarge is returned when the input text exceeds the configured
// maximum length.
var ErrTextTooLarge = errors.New("text exceeds maximum length")

// ErrTooManyChunks is returned when chunking would produce more passages than
// the configured ceiling (guards against near-zero step sizes).
var ErrTooManyChunks = errors.New("too many chunks")

// Chunker splits text into overlapping rune-window passages, snapping window
// ends to sentence or line boundaries where possible.
type Chunker struct {
	chunkSize  int
	overlap    int
	maxTextLen int
	maxChunks  int
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxTextLen sets the maximum input length in runes.
func WithMaxTextLen(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTextLen = n
		}
	}
}

// WithMaxChunks sets the maximum number of passages per input.
func WithMaxChunks(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxChunks = n
		}
	}
}

// NewChunker creates a chunker with the given window size and overlap (in runes).
// chunkSize is floored at 1 and overlap at 0; overlap >= chunkSize is allowed
// and degrades to single-rune forward steps.
func NewChunker(chunkSize, overlap int, opts ...Option) *Chunker {
	if chunkSize < 1 {
		chunkSize = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	c := &Chunker{
		chunkSize:  chunkSize,
		overlap:    overlap,
		maxTextLen: DefaultMaxTextLen,
		maxChunks:  DefaultMaxChunks,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chunk splits text into passages owned by documentID. Passages are returned
// in traversal order with SequenceIndex 0, 1, 2, ... and rune offsets into
// text. The algorithm is deterministic: identical input and parameters yield
// identical content, offsets, and sequence indexes (only passage IDs are
// generated fresh each call).
func (c *Chunker) Chunk(documentID, text string) ([]models.Passage, error) {
	runes := []rune(text)
	if len(runes) > c.maxTextLen {
		return nil, fmt.Errorf("chunk: input length %d exceeds %d: %w", len(runes), c.maxTextLen, ErrTextTooLarge)
	}
	if len(runes) == 0 {
		return nil, nil
	}
	return c.window(documentID, runes, 0, 0)
}

// ChunkByParagraph splits text on blank lines and emits one passage per
// paragraph, sub-chunking any paragraph longer than the window size with the
// same windowed algorithm. SequenceIndex is renumbered globally and offsets
// are shifted by each paragraph's rune position in the original text.
func (c *Chunker) ChunkByParagraph(documentID, text string) ([]models.Passage, error) {
	runes := []rune(text)
	if len(runes) > c.maxTextLen {
		return nil, fmt.Errorf("chunk: input length %d exceeds %d: %w", len(runes), c.maxTextLen, ErrTextTooLarge)
	}
	var passages []models.Passage
	n := len(runes)
	i := 0
	for i < n {
		j := i
		for j < n {
			if runes[j] == '\n' && j+1 < n && runes[j+1] == '\n' {
				break
			}
			j++
		}
		para := runes[i:j]
		if content := strings.TrimSpace(string(para)); content != "" {
			if len(para) <= c.chunkSize {
				if len(passages) >= c.maxChunks {
					return nil, fmt.Errorf("chunk: passage count exceeds %d: %w", c.maxChunks, ErrTooManyChunks)
				}
				passages = append(passages, models.Passage{
					ID:            uuid.New().String(),
					DocumentID:    documentID,
					Content:       content,
					SequenceIndex: len(passages),
					StartOffset:   i,
					EndOffset:     j,
				})
			} else {
				sub, err := c.window(documentID, para, i, len(passages))
				if err != nil {
					return nil, err
				}
				passages = append(passages, sub...)
			}
		}
		i = j
		for i < n && runes[i] == '\n' {
			i++
		}
	}
	return passages, nil
}

// window chunks runes into overlapping passages. baseOffset shifts the stored
// offsets (for paragraph sub-chunking) and seqStart is the first global
// SequenceIndex to assign.
func (c *Chunker) window(documentID string, runes []rune, baseOffset, seqStart int) ([]models.Passage, error) {
	var passages []models.Passage
	n := len(runes)
	seq := seqStart
	start := 0
	for start < n {
		if seq >= c.maxChunks {
			return nil, fmt.Errorf("chunk: passage count exceeds %d: %w", c.maxChunks, ErrTooManyChunks)
		}
		end := start + c.chunkSize
		if end >= n {
			end = n
		} else if brk := lastBreak(runes[start:end]); brk > (end-start)/2 {
			// End the passage on a natural boundary rather than mid-word.
			end = start + brk + 1
		}
		passages = append(passages, models.Passage{
			ID:            uuid.New().String(),
			DocumentID:    documentID,
			Content:       strings.TrimSpace(string(runes[start:end])),
			SequenceIndex: seq,
			StartOffset:   baseOffset + start,
			EndOffset:     baseOffset + end,
		})
		seq++
		if end == n {
			break
		}
		advance := end - start - c.overlap
		if advance < 1 {
			advance = 1
		}
		start += advance
	}
	return passages, nil
}

// lastBreak returns the index of the last sentence-ending period or newline
// in window, or -1 when there is none.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '\n' {
			return i
		}
	}
	return -1
}
