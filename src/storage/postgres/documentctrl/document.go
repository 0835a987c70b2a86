package documentctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docqa/src/core/docstore"
)

// Document is the persisted form of an uploaded document. The raw payload
// lives in object storage; MinioURL records its location when archived.
type Document struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Filename  string    `gorm:"not null" json:"filename"`
	Format    string    `gorm:"not null" json:"format"`
	MinioURL  string    `gorm:"column:minio_url" json:"minio_url"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentService is the postgres-backed document store.
type DocumentService struct {
	db *gorm.DB
}

func NewDocumentService(db *gorm.DB) (*DocumentService, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return &DocumentService{db: db}, nil
}

func (s *DocumentService) SaveDocument(ctx context.Context, doc *docstore.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	record := Document{
		ID:        doc.ID,
		Filename:  doc.Filename,
		Format:    doc.Format,
		CreatedAt: doc.CreatedAt,
	}
	result := s.db.WithContext(ctx).Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to create document: %w", result.Error)
	}
	return nil
}

func (s *DocumentService) GetDocument(ctx context.Context, id int64) (*docstore.Document, error) {
	var record Document
	result := s.db.WithContext(ctx).First(&record, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, docstore.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", result.Error)
	}
	doc := toDomain(record)
	return &doc, nil
}

func (s *DocumentService) ListDocuments(ctx context.Context) ([]docstore.Document, error) {
	var records []Document
	result := s.db.WithContext(ctx).Order("id").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list documents: %w", result.Error)
	}

	docs := make([]docstore.Document, len(records))
	for i, r := range records {
		docs[i] = toDomain(r)
	}
	return docs, nil
}

func toDomain(r Document) docstore.Document {
	return docstore.Document{
		ID:        r.ID,
		Filename:  r.Filename,
		Format:    r.Format,
		CreatedAt: r.CreatedAt,
	}
}
