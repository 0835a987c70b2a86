package docstore_test

import (
	"context"
	"errors"
	"testing"

	"docqa/src/core/docstore"
)

func TestMemoryStoreDocumentRoundTrip(t *testing.T) {
	store := docstore.NewMemoryStore()
	ctx := context.Background()

	doc := &docstore.Document{ID: 42, Filename: "a.txt", Format: "txt"}
	if err := store.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}
	if doc.CreatedAt.IsZero() {
		t.Error("SaveDocument() did not stamp CreatedAt")
	}

	got, err := store.GetDocument(ctx, 42)
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got.Filename != "a.txt" {
		t.Errorf("GetDocument() filename = %q, want a.txt", got.Filename)
	}

	if _, err := store.GetDocument(ctx, 999); !errors.Is(err, docstore.ErrDocumentNotFound) {
		t.Errorf("GetDocument(999) error = %v, want ErrDocumentNotFound", err)
	}
}

func TestMemoryStoreListChunksOrdered(t *testing.T) {
	store := docstore.NewMemoryStore()
	ctx := context.Background()

	// Saved out of order across two documents.
	if err := store.SaveChunks(ctx, []docstore.Chunk{
		{ID: 201, DocumentID: 2, Seq: 1},
		{ID: 102, DocumentID: 1, Seq: 2},
		{ID: 200, DocumentID: 2, Seq: 0},
		{ID: 101, DocumentID: 1, Seq: 1},
		{ID: 100, DocumentID: 1, Seq: 0},
	}); err != nil {
		t.Fatalf("SaveChunks() error = %v", err)
	}

	chunks, err := store.ListChunks(ctx)
	if err != nil {
		t.Fatalf("ListChunks() error = %v", err)
	}

	wantOrder := []int64{100, 101, 102, 200, 201}
	if len(chunks) != len(wantOrder) {
		t.Fatalf("ListChunks() returned %d chunks, want %d", len(chunks), len(wantOrder))
	}
	for i, want := range wantOrder {
		if chunks[i].ID != want {
			t.Errorf("chunk %d = %d, want %d", i, chunks[i].ID, want)
		}
	}
}

func TestMemoryStoreGetChunksPreservesRequestOrder(t *testing.T) {
	store := docstore.NewMemoryStore()
	ctx := context.Background()

	if err := store.SaveChunks(ctx, []docstore.Chunk{
		{ID: 1, DocumentID: 1, Seq: 0},
		{ID: 2, DocumentID: 1, Seq: 1},
		{ID: 3, DocumentID: 1, Seq: 2},
	}); err != nil {
		t.Fatalf("SaveChunks() error = %v", err)
	}

	chunks, err := store.GetChunks(ctx, []int64{3, 1, 99})
	if err != nil {
		t.Fatalf("GetChunks() error = %v", err)
	}
	// Unknown IDs are dropped, known ones keep the requested order.
	if len(chunks) != 2 || chunks[0].ID != 3 || chunks[1].ID != 1 {
		t.Errorf("GetChunks() = %+v, want chunks 3 then 1", chunks)
	}
}

func TestIDGeneratorMonotonic(t *testing.T) {
	ids, err := docstore.NewIDGenerator(1)
	if err != nil {
		t.Fatalf("NewIDGenerator() error = %v", err)
	}

	prev := ids.Next()
	for i := 0; i < 1000; i++ {
		next := ids.Next()
		if next <= prev {
			t.Fatalf("ID %d not greater than previous %d", next, prev)
		}
		prev = next
	}
}
