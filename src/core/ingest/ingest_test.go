package ingest_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"docqa/src/core/chunker"
	"docqa/src/core/docstore"
	"docqa/src/core/ingest"
	"docqa/src/infrastructure/integrations/unstructured"
)

type memFileStore struct {
	files map[string][]byte
}

func (m *memFileStore) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (m *memFileStore) ReadFileAsStream(path string) (io.ReadCloser, error) {
	return nil, os.ErrNotExist
}

func (m *memFileStore) ListFiles(path string) ([]string, error) {
	return nil, os.ErrNotExist
}

func (m *memFileStore) GetFileStats(path string) (int, int64, error) {
	return 0, 0, os.ErrNotExist
}

func newTestService(t *testing.T, files map[string][]byte) (*ingest.Service, *docstore.MemoryStore) {
	t.Helper()

	store := docstore.NewMemoryStore()
	ids, err := docstore.NewIDGenerator(1)
	if err != nil {
		t.Fatalf("NewIDGenerator() error = %v", err)
	}
	splitter, err := chunker.NewBoundary(40, 10)
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}

	svc := ingest.NewService(
		&memFileStore{files: files},
		unstructured.NewExtractor(nil),
		splitter,
		store, store, ids,
	)
	return svc, store
}

func TestIngestFilesEmptyList(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.IngestFiles(context.Background(), nil)
	if !errors.Is(err, ingest.ErrNoFiles) {
		t.Errorf("IngestFiles(nil) error = %v, want ErrNoFiles", err)
	}
}

func TestIngestFilesSkipsFailedDocuments(t *testing.T) {
	svc, store := newTestService(t, map[string][]byte{
		"paris.txt":  []byte("Paris is the capital of France. It has a population of about 2.1 million."),
		"berlin.txt": []byte("Berlin is the capital of Germany."),
		"report.pdf": {0x25, 0x50, 0x44, 0x46}, // binary format, no partition service
	})

	result, err := svc.IngestFiles(context.Background(), []string{
		"paris.txt",
		"berlin.txt",
		"report.pdf",
		"missing.txt",
	})
	if err != nil {
		t.Fatalf("IngestFiles() error = %v", err)
	}

	if result.DocumentsIngested != 2 {
		t.Errorf("DocumentsIngested = %d, want 2", result.DocumentsIngested)
	}
	if len(result.Skipped) != 2 {
		t.Errorf("Skipped = %v, want report.pdf and missing.txt", result.Skipped)
	}
	skipped := map[string]bool{}
	for _, path := range result.Skipped {
		skipped[path] = true
	}
	if !skipped["report.pdf"] || !skipped["missing.txt"] {
		t.Errorf("Skipped = %v, want report.pdf and missing.txt", result.Skipped)
	}

	docs, err := store.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("persisted %d documents, want 2", len(docs))
	}

	chunks, err := store.ListChunks(context.Background())
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}
	if len(chunks) != result.ChunksCreated {
		t.Errorf("persisted %d chunks, result reports %d", len(chunks), result.ChunksCreated)
	}
}

func TestIngestPayloadProvenance(t *testing.T) {
	svc, store := newTestService(t, nil)
	text := "Paris is the capital of France. It has a population of about 2.1 million."

	created, err := svc.IngestPayload(context.Background(), "paris.txt", []byte(text))
	if err != nil {
		t.Fatalf("IngestPayload() error = %v", err)
	}
	if created == 0 {
		t.Fatal("IngestPayload() created no chunks")
	}

	docs, err := store.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("persisted %d documents, want 1", len(docs))
	}
	if docs[0].Filename != "paris.txt" || docs[0].Format != "txt" {
		t.Errorf("document = %+v, want paris.txt/txt", docs[0])
	}

	chunks, err := store.ListChunks(context.Background())
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}
	if len(chunks) != created {
		t.Fatalf("persisted %d chunks, want %d", len(chunks), created)
	}

	runes := []rune(text)
	for i, c := range chunks {
		if c.DocumentID != docs[0].ID {
			t.Errorf("chunk %d belongs to document %d, want %d", i, c.DocumentID, docs[0].ID)
		}
		if c.Seq != i {
			t.Errorf("chunk %d has seq %d", i, c.Seq)
		}
		if c.Text != string(runes[c.Start:c.End]) {
			t.Errorf("chunk %d text does not match its offsets", i)
		}
	}
}

func TestIngestPayloadRejectsInvalidText(t *testing.T) {
	svc, store := newTestService(t, nil)

	tests := []struct {
		name     string
		filename string
		payload  []byte
	}{
		{name: "empty text", filename: "empty.txt", payload: []byte("   ")},
		{name: "invalid utf8", filename: "bad.txt", payload: []byte{0xff, 0xfe}},
		{name: "unsupported format", filename: "doc.docx", payload: []byte("x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.IngestPayload(context.Background(), tt.filename, tt.payload); err == nil {
				t.Errorf("IngestPayload(%s) succeeded, want error", tt.filename)
			}
		})
	}

	// Failed ingestion must not leave partial records behind.
	docs, err := store.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("persisted %d documents after failed ingests, want 0", len(docs))
	}
}
