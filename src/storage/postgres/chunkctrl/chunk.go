package chunkctrl

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docqa/src/core/docstore"
)

// Chunk is the persisted form of a document chunk. StartPos and EndPos are
// rune offsets into the extracted document text.
type Chunk struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	DocumentID int64     `gorm:"not null;index" json:"document_id"`
	Seq        int       `gorm:"not null;column:chunk_seq" json:"seq"`
	Text       string    `gorm:"not null;type:text" json:"text"`
	StartPos   int       `gorm:"not null;column:start_pos" json:"start"`
	EndPos     int       `gorm:"not null;column:end_pos" json:"end"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkService is the postgres-backed chunk store.
type ChunkService struct {
	db *gorm.DB
}

func NewChunkService(db *gorm.DB) (*ChunkService, error) {
	if err := db.AutoMigrate(&Chunk{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chunks table: %w", err)
	}
	return &ChunkService{db: db}, nil
}

func (s *ChunkService) SaveChunks(ctx context.Context, chunks []docstore.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	records := make([]Chunk, len(chunks))
	for i, c := range chunks {
		records[i] = Chunk{
			ID:         c.ID,
			DocumentID: c.DocumentID,
			Seq:        c.Seq,
			Text:       c.Text,
			StartPos:   c.Start,
			EndPos:     c.End,
			CreatedAt:  c.CreatedAt,
		}
	}

	result := s.db.WithContext(ctx).Create(&records)
	if result.Error != nil {
		return fmt.Errorf("failed to create chunks: %w", result.Error)
	}
	return nil
}

func (s *ChunkService) ListChunks(ctx context.Context) ([]docstore.Chunk, error) {
	var records []Chunk
	result := s.db.WithContext(ctx).Order("document_id, chunk_seq").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", result.Error)
	}
	return toDomain(records), nil
}

// GetChunks fetches the chunks with the given IDs, preserving the order of
// the ID list.
func (s *ChunkService) GetChunks(ctx context.Context, ids []int64) ([]docstore.Chunk, error) {
	if len(ids) == 0 {
		return []docstore.Chunk{}, nil
	}

	var records []Chunk
	result := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", result.Error)
	}

	byID := make(map[int64]Chunk, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	chunks := make([]docstore.Chunk, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			chunks = append(chunks, toDomainOne(r))
		}
	}
	return chunks, nil
}

func toDomain(records []Chunk) []docstore.Chunk {
	chunks := make([]docstore.Chunk, len(records))
	for i, r := range records {
		chunks[i] = toDomainOne(r)
	}
	return chunks
}

func toDomainOne(r Chunk) docstore.Chunk {
	return docstore.Chunk{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		Seq:        r.Seq,
		Text:       r.Text,
		Start:      r.StartPos,
		End:        r.EndPos,
		CreatedAt:  r.CreatedAt,
	}
}
