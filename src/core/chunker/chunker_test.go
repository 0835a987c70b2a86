package chunker_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"docqa/src/core/chunker"
)

func TestNewBoundaryValidation(t *testing.T) {
	tests := []struct {
		name    string
		maxSize int
		overlap int
		wantErr bool
	}{
		{name: "valid", maxSize: 40, overlap: 10, wantErr: false},
		{name: "zero overlap", maxSize: 40, overlap: 0, wantErr: false},
		{name: "zero max size", maxSize: 0, overlap: 0, wantErr: true},
		{name: "negative max size", maxSize: -1, overlap: 0, wantErr: true},
		{name: "negative overlap", maxSize: 40, overlap: -1, wantErr: true},
		{name: "overlap equals max size", maxSize: 40, overlap: 40, wantErr: true},
		{name: "overlap exceeds max size", maxSize: 40, overlap: 50, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chunker.NewBoundary(tt.maxSize, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewBoundary(%d, %d) error = %v, wantErr %v", tt.maxSize, tt.overlap, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, chunker.ErrInvalidInput) {
				t.Errorf("NewBoundary() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestBoundarySplitRejectsEmptyText(t *testing.T) {
	b, err := chunker.NewBoundary(40, 10)
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}

	for _, text := range []string{"", "   ", "\n\t\n"} {
		if _, err := b.Split(text); !errors.Is(err, chunker.ErrInvalidInput) {
			t.Errorf("Split(%q) error = %v, want ErrInvalidInput", text, err)
		}
	}
}

func TestBoundarySplitShortText(t *testing.T) {
	b, err := chunker.NewBoundary(40, 10)
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}

	text := "A short sentence."
	pieces, err := b.Split(text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	want := []chunker.Piece{{Start: 0, End: 17, Text: text}}
	if !reflect.DeepEqual(pieces, want) {
		t.Errorf("Split() = %+v, want %+v", pieces, want)
	}
}

func TestBoundarySplitPrefersSentenceEnds(t *testing.T) {
	text := "Paris is the capital of France. It has a population of about 2.1 million."

	b, err := chunker.NewBoundary(40, 10)
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}
	pieces, err := b.Split(text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	// The first cut lands right after the first sentence; the follow-up
	// piece carries the 10-rune overlap backwards from that cut.
	if pieces[0].Start != 0 || pieces[0].End != 32 {
		t.Errorf("first piece spans [%d, %d), want [0, 32)", pieces[0].Start, pieces[0].End)
	}
	if !strings.HasPrefix(pieces[0].Text, "Paris is the capital") {
		t.Errorf("first piece text = %q, want capital sentence", pieces[0].Text)
	}

	secondSentence := strings.Index(text, "It has")
	if pieces[1].Start > secondSentence || secondSentence-pieces[1].Start > 10 {
		t.Errorf("second piece starts at %d, want within 10 runes before %d", pieces[1].Start, secondSentence)
	}
}

func TestBoundarySplitParagraphBreaksWin(t *testing.T) {
	text := "First paragraph ends here.\n\nSecond paragraph starts here and keeps going on."

	b, err := chunker.NewBoundary(40, 5)
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}
	pieces, err := b.Split(text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	// The cut should land on the paragraph break (offset 28), not on the
	// sentence end just before it.
	if pieces[0].End != 28 {
		t.Errorf("first piece ends at %d, want paragraph break at 28", pieces[0].End)
	}
}

func TestBoundarySplitInvariants(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		maxSize int
		overlap int
	}{
		{
			name:    "sentences",
			text:    "Paris is the capital of France. It has a population of about 2.1 million.",
			maxSize: 40,
			overlap: 10,
		},
		{
			name:    "no boundaries",
			text:    strings.Repeat("x", 200),
			maxSize: 50,
			overlap: 8,
		},
		{
			name:    "unicode",
			text:    strings.Repeat("héllo wörld. ", 30),
			maxSize: 64,
			overlap: 16,
		},
		{
			name:    "zero overlap",
			text:    strings.Repeat("one two three. ", 20),
			maxSize: 32,
			overlap: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := chunker.NewBoundary(tt.maxSize, tt.overlap)
			if err != nil {
				t.Fatalf("NewBoundary() error = %v", err)
			}
			pieces, err := b.Split(tt.text)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}

			runes := []rune(tt.text)
			for i, p := range pieces {
				if p.End-p.Start > tt.maxSize {
					t.Errorf("piece %d has %d runes, exceeds max %d", i, p.End-p.Start, tt.maxSize)
				}
				if p.Text != string(runes[p.Start:p.End]) {
					t.Errorf("piece %d text does not match its offsets", i)
				}
				if i > 0 && p.Start != pieces[i-1].End-tt.overlap {
					t.Errorf("piece %d starts at %d, want %d for exact overlap", i, p.Start, pieces[i-1].End-tt.overlap)
				}
			}

			// Dropping each piece's leading overlap reconstructs the input.
			var rebuilt strings.Builder
			for i, p := range pieces {
				text := []rune(p.Text)
				if i > 0 {
					text = text[tt.overlap:]
				}
				rebuilt.WriteString(string(text))
			}
			if rebuilt.String() != tt.text {
				t.Errorf("reconstructed text does not match input")
			}
		})
	}
}

func TestBoundarySplitDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 25)

	b, err := chunker.NewBoundary(100, 20)
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}

	first, err := b.Split(text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	second, err := b.Split(text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated splits of the same text differ")
	}
}
