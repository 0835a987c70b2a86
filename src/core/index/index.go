package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
)

var (
	ErrNotBuilt          = errors.New("vector index not built")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Encoder turns chunk or query text into fixed-dimension vectors. The
// returned slice preserves input order.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Entry pairs a chunk identifier with its embedding.
type Entry struct {
	ChunkID int64
	Vector  []float32
}

// Hit is a single similarity search result.
type Hit struct {
	ChunkID int64
	Score   float64
}

// Memory is a brute-force cosine-similarity index over an immutable
// snapshot. Rebuild replaces the snapshot atomically: a concurrent Search
// runs entirely against the old snapshot or the new one, never a mix.
type Memory struct {
	dimension int

	mu   sync.RWMutex
	snap *snapshot
}

type snapshot struct {
	entries []Entry // vectors L2-normalized, sorted by ascending chunk ID
}

func NewMemory(dimension int) (*Memory, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid index dimension: %d", dimension)
	}
	return &Memory{dimension: dimension}, nil
}

// Rebuild replaces the whole index with the given entries. There is no
// incremental delete; a changed chunk set always rebuilds wholesale.
func (m *Memory) Rebuild(ctx context.Context, entries []Entry) error {
	next := &snapshot{entries: make([]Entry, len(entries))}
	for i, e := range entries {
		if len(e.Vector) != m.dimension {
			return fmt.Errorf("%w: chunk %d has dimension %d, index expects %d",
				ErrDimensionMismatch, e.ChunkID, len(e.Vector), m.dimension)
		}
		next.entries[i] = Entry{ChunkID: e.ChunkID, Vector: normalize(e.Vector)}
	}
	sort.Slice(next.entries, func(i, j int) bool {
		return next.entries[i].ChunkID < next.entries[j].ChunkID
	})

	m.mu.Lock()
	m.snap = next
	m.mu.Unlock()
	return nil
}

// Search returns the k nearest entries by cosine similarity, ordered by
// descending score with ties broken by ascending chunk ID. k is capped to
// the snapshot size. Searching before the first Rebuild fails with
// ErrNotBuilt; an empty built index returns an empty result.
func (m *Memory) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	m.mu.RLock()
	snap := m.snap
	m.mu.RUnlock()

	if snap == nil {
		return nil, ErrNotBuilt
	}
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			ErrDimensionMismatch, len(vector), m.dimension)
	}
	if len(snap.entries) == 0 || k <= 0 {
		return []Hit{}, nil
	}

	query := normalize(vector)
	hits := make([]Hit, len(snap.entries))
	for i, e := range snap.entries {
		hits[i] = Hit{ChunkID: e.ChunkID, Score: dot(e.Vector, query)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Size reports the number of indexed entries, zero before the first build.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.snap == nil {
		return 0
	}
	return len(m.snap.entries)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
