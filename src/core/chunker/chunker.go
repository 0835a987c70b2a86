package chunker

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidInput = errors.New("invalid chunker input")

// Piece is one span of the source text. Start and End are rune offsets;
// Text is the exact slice [Start, End) of the input.
type Piece struct {
	Start int
	End   int
	Text  string
}

// Splitter turns extracted document text into ordered pieces.
type Splitter interface {
	Split(text string) ([]Piece, error)
}

// Boundary splits text into pieces of at most maxSize runes, preferring
// paragraph and sentence boundaries over hard cuts. Consecutive pieces
// overlap by exactly overlap runes, so concatenating pieces minus the
// leading overlap reconstructs the input. Splitting is deterministic.
type Boundary struct {
	maxSize int
	overlap int
}

func NewBoundary(maxSize, overlap int) (*Boundary, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidInput, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidInput, overlap, maxSize)
	}
	return &Boundary{maxSize: maxSize, overlap: overlap}, nil
}

func (b *Boundary) Split(text string) ([]Piece, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}

	runes := []rune(text)
	n := len(runes)

	var pieces []Piece
	start := 0
	for {
		if n-start <= b.maxSize {
			pieces = append(pieces, makePiece(runes, start, n))
			return pieces, nil
		}

		limit := start + b.maxSize
		// A cut must land past the overlap carried into the next piece,
		// otherwise the split would not make progress.
		floor := start + b.overlap + 1
		cut := findBoundary(runes, floor, limit)
		if cut < 0 {
			cut = limit
		}
		pieces = append(pieces, makePiece(runes, start, cut))
		start = cut - b.overlap
	}
}

func makePiece(runes []rune, start, end int) Piece {
	return Piece{Start: start, End: end, Text: string(runes[start:end])}
}

// findBoundary returns the latest cut position in [floor, limit] that falls
// just after a paragraph break or a sentence end, or -1 when none exists.
// Paragraph breaks win over sentence ends.
func findBoundary(runes []rune, floor, limit int) int {
	if cut := findParagraphBreak(runes, floor, limit); cut >= 0 {
		return cut
	}
	return findSentenceEnd(runes, floor, limit)
}

func findParagraphBreak(runes []rune, floor, limit int) int {
	for cut := limit; cut >= floor; cut-- {
		if cut >= 2 && runes[cut-1] == '\n' && runes[cut-2] == '\n' {
			return cut
		}
	}
	return -1
}

func findSentenceEnd(runes []rune, floor, limit int) int {
	for cut := limit; cut >= floor; cut-- {
		// Cut just after the whitespace that follows sentence punctuation.
		if cut >= 2 && isSentencePunct(runes[cut-2]) && isSpace(runes[cut-1]) {
			return cut
		}
	}
	return -1
}

func isSentencePunct(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t'
}
