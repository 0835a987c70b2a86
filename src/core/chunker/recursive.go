package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"
)

// Recursive wraps langchaingo's recursive-character splitter behind the
// Splitter interface. Offsets are recovered by scanning forward for each
// returned fragment; overlapping fragments are handled by restarting the
// scan one rune past the previous piece start.
type Recursive struct {
	maxSize  int
	overlap  int
	splitter textsplitter.RecursiveCharacter
}

func NewRecursive(maxSize, overlap int) (*Recursive, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidInput, maxSize)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidInput, overlap, maxSize)
	}
	return &Recursive{
		maxSize: maxSize,
		overlap: overlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(maxSize),
			textsplitter.WithChunkOverlap(overlap),
		),
	}, nil
}

func (r *Recursive) Split(text string) ([]Piece, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}

	parts, err := r.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("recursive split failed: %w", err)
	}

	pieces := make([]Piece, 0, len(parts))
	searchFrom := 0
	for _, part := range parts {
		byteStart := strings.Index(text[searchFrom:], part)
		if byteStart < 0 {
			// Fragment was normalized by the splitter; fall back to the
			// current scan position so provenance stays monotonic.
			byteStart = 0
		}
		byteStart += searchFrom

		start := utf8.RuneCountInString(text[:byteStart])
		pieces = append(pieces, Piece{
			Start: start,
			End:   start + utf8.RuneCountInString(part),
			Text:  part,
		})
		// Next fragment may start inside this one because of the overlap.
		_, width := utf8.DecodeRuneInString(text[byteStart:])
		searchFrom = byteStart + width
	}
	return pieces, nil
}
