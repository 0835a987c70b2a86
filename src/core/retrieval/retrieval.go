package retrieval

import (
	"context"
	"fmt"

	"docqa/src/core/docstore"
	"docqa/src/core/index"
	"docqa/src/infrastructure/log"
)

// VectorIndex is the similarity-search backend. The in-memory index and the
// Weaviate adapter both satisfy it; rebuilds are wholesale and atomic.
type VectorIndex interface {
	Rebuild(ctx context.Context, entries []index.Entry) error
	Search(ctx context.Context, vector []float32, k int) ([]index.Hit, error)
	Size() int
}

// ContextChunk is a retrieval result joined back to chunk text and document
// provenance, shaped for the retrieve_context tool.
type ContextChunk struct {
	ChunkID        int64   `json:"chunk_id"`
	Text           string  `json:"text"`
	Score          float64 `json:"score"`
	SourceDocument string  `json:"source_document"`
}

// Service wraps the embedding index behind a query interface and joins hits
// back to the chunk and document stores.
type Service struct {
	encoder   index.Encoder
	vectors   VectorIndex
	chunks    docstore.ChunkStore
	documents docstore.DocumentStore
}

func NewService(encoder index.Encoder, vectors VectorIndex, chunks docstore.ChunkStore, documents docstore.DocumentStore) *Service {
	return &Service{
		encoder:   encoder,
		vectors:   vectors,
		chunks:    chunks,
		documents: documents,
	}
}

// BuildIndex encodes every stored chunk and rebuilds the vector index,
// returning the new index size. An empty chunk set builds an empty index,
// which is a valid, queryable state.
func (s *Service) BuildIndex(ctx context.Context) (int, error) {
	chunks, err := s.chunks.ListChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list chunks: %w", err)
	}

	if len(chunks) == 0 {
		if err := s.vectors.Rebuild(ctx, nil); err != nil {
			return 0, fmt.Errorf("failed to rebuild index: %w", err)
		}
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.encoder.Encode(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to encode chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("encoder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]index.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = index.Entry{ChunkID: c.ID, Vector: vectors[i]}
	}
	if err := s.vectors.Rebuild(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to rebuild index: %w", err)
	}

	log.Info("vector index rebuilt", "chunks", len(entries))
	return len(entries), nil
}

// Retrieve returns the k chunks most similar to the query. An empty built
// index yields an empty slice, not an error: callers treat "no context" as
// an answerable state.
func (s *Service) Retrieve(ctx context.Context, query string, k int) ([]ContextChunk, error) {
	vectors, err := s.encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("encoder returned %d vectors for one query", len(vectors))
	}

	hits, err := s.vectors.Search(ctx, vectors[0], k)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []ContextChunk{}, nil
	}

	ids := make([]int64, len(hits))
	scores := make(map[int64]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
		scores[h.ChunkID] = h.Score
	}
	chunks, err := s.chunks.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	filenames := make(map[int64]string)
	results := make([]ContextChunk, 0, len(chunks))
	for _, c := range chunks {
		name, ok := filenames[c.DocumentID]
		if !ok {
			doc, err := s.documents.GetDocument(ctx, c.DocumentID)
			if err != nil {
				return nil, fmt.Errorf("failed to load document %d: %w", c.DocumentID, err)
			}
			name = doc.Filename
			filenames[c.DocumentID] = name
		}
		results = append(results, ContextChunk{
			ChunkID:        c.ID,
			Text:           c.Text,
			Score:          scores[c.ID],
			SourceDocument: name,
		})
	}
	return results, nil
}

// IndexSize reports the current number of indexed chunks.
func (s *Service) IndexSize() int {
	return s.vectors.Size()
}
