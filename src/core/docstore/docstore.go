package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

var ErrDocumentNotFound = errors.New("document not found")

// Document is an uploaded file. The raw payload is owned by the store
// until text extraction; documents are immutable once ingested.
type Document struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	Payload   []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is a bounded span of a document's text, the retrieval unit.
// Start and End are rune offsets into the extracted document text.
type Chunk struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	Seq        int       `json:"seq"`
	Text       string    `json:"text"`
	Start      int       `json:"start"`
	End        int       `json:"end"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocumentStore persists document records.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, id int64) (*Document, error)
	ListDocuments(ctx context.Context) ([]Document, error)
}

// ChunkStore persists chunk records. ListChunks returns chunks ordered by
// document and sequence so that index builds are reproducible.
type ChunkStore interface {
	SaveChunks(ctx context.Context, chunks []Chunk) error
	ListChunks(ctx context.Context) ([]Chunk, error)
	GetChunks(ctx context.Context, ids []int64) ([]Chunk, error)
}

// IDGenerator hands out monotonically increasing identifiers. Snowflake IDs
// are time-ordered, so ascending chunk ID equals ingestion order.
type IDGenerator struct {
	node *snowflake.Node
}

func NewIDGenerator(nodeNumber int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &IDGenerator{node: node}, nil
}

func (g *IDGenerator) Next() int64 {
	return g.node.Generate().Int64()
}

// MemoryStore is an in-memory DocumentStore and ChunkStore, append-only
// within a working session.
type MemoryStore struct {
	mu        sync.RWMutex
	documents map[int64]Document
	docOrder  []int64
	chunks    map[int64]Chunk
	chunkIDs  []int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[int64]Document),
		chunks:    make(map[int64]Chunk),
	}
}

func (s *MemoryStore) SaveDocument(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if _, ok := s.documents[doc.ID]; !ok {
		s.docOrder = append(s.docOrder, doc.ID)
	}
	s.documents[doc.ID] = *doc
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id int64) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &doc, nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]Document, 0, len(s.docOrder))
	for _, id := range s.docOrder {
		docs = append(docs, s.documents[id])
	}
	return docs, nil
}

func (s *MemoryStore) SaveChunks(ctx context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		if _, ok := s.chunks[c.ID]; !ok {
			s.chunkIDs = append(s.chunkIDs, c.ID)
		}
		s.chunks[c.ID] = c
	}
	return nil
}

func (s *MemoryStore) ListChunks(ctx context.Context) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make([]Chunk, 0, len(s.chunkIDs))
	for _, id := range s.chunkIDs {
		chunks = append(chunks, s.chunks[id])
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].Seq < chunks[j].Seq
	})
	return chunks, nil
}

func (s *MemoryStore) GetChunks(ctx context.Context, ids []int64) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := make([]Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}
