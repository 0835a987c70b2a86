package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"docqa/src/core/chunker"
	"docqa/src/core/docstore"
	"docqa/src/fsutil"
	"docqa/src/infrastructure/log"
)

var ErrNoFiles = errors.New("no files to ingest")

// Extractor turns a raw file payload into plain text. Format decoding is an
// external collaborator concern; the unstructured API client implements it
// for binary formats and PlainText covers text-like ones.
type Extractor interface {
	Extract(ctx context.Context, filename string, payload []byte) (string, error)
}

// ObjectStore receives raw document payloads for archival, MinIO in
// production. Optional: a nil store skips archival.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, data []byte) error
}

// Result summarizes one ingestion run. Failed documents are skipped, not
// fatal: ingestion continues with the remaining files.
type Result struct {
	DocumentsIngested int      `json:"documents_ingested"`
	ChunksCreated     int      `json:"chunks_created"`
	Skipped           []string `json:"skipped,omitempty"`
}

// Service parses uploaded files, splits their text into chunks with
// provenance and persists both. Documents are independent until index
// build, so files are processed concurrently.
type Service struct {
	fs        fsutil.FileStore
	extractor Extractor
	splitter  chunker.Splitter
	documents docstore.DocumentStore
	chunks    docstore.ChunkStore
	ids       *docstore.IDGenerator

	objects ObjectStore
	bucket  string
}

func NewService(fs fsutil.FileStore, extractor Extractor, splitter chunker.Splitter, documents docstore.DocumentStore, chunks docstore.ChunkStore, ids *docstore.IDGenerator) *Service {
	return &Service{
		fs:        fs,
		extractor: extractor,
		splitter:  splitter,
		documents: documents,
		chunks:    chunks,
		ids:       ids,
	}
}

// WithObjectStore enables raw payload archival to the given bucket.
func (s *Service) WithObjectStore(objects ObjectStore, bucket string) *Service {
	s.objects = objects
	s.bucket = bucket
	return s
}

// IngestFiles reads, parses and chunks the given files concurrently. A file
// that cannot be read, parsed or chunked is skipped and reported in the
// result; only an empty file list is an error.
func (s *Service) IngestFiles(ctx context.Context, paths []string) (*Result, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result Result
	)
	for _, path := range paths {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()

			payload, err := s.fs.ReadFile(path)
			if err == nil {
				var created int
				created, err = s.IngestPayload(ctx, filepath.Base(path), payload)
				if err == nil {
					mu.Lock()
					result.DocumentsIngested++
					result.ChunksCreated += created
					mu.Unlock()
					return
				}
			}

			log.Error(err, "skipping document", "path", path)
			mu.Lock()
			result.Skipped = append(result.Skipped, path)
			mu.Unlock()
		}(path)
	}
	wg.Wait()

	log.Info("ingestion finished",
		"documents", result.DocumentsIngested,
		"chunks", result.ChunksCreated,
		"skipped", len(result.Skipped))
	return &result, nil
}

// IngestPayload ingests a single in-memory file, returning the number of
// chunks created. Nothing is persisted unless extraction and chunking both
// succeed.
func (s *Service) IngestPayload(ctx context.Context, filename string, payload []byte) (int, error) {
	text, err := s.extractor.Extract(ctx, filename, payload)
	if err != nil {
		return 0, fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}

	pieces, err := s.splitter.Split(text)
	if err != nil {
		return 0, fmt.Errorf("failed to chunk %s: %w", filename, err)
	}

	doc := &docstore.Document{
		ID:       s.ids.Next(),
		Filename: filename,
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."),
		Payload:  payload,
	}
	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to save document %s: %w", filename, err)
	}

	chunks := make([]docstore.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = docstore.Chunk{
			ID:         s.ids.Next(),
			DocumentID: doc.ID,
			Seq:        i,
			Text:       p.Text,
			Start:      p.Start,
			End:        p.End,
		}
	}
	if err := s.chunks.SaveChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to save chunks for %s: %w", filename, err)
	}

	if s.objects != nil {
		objectName := fmt.Sprintf("%d/%s", doc.ID, filename)
		if err := s.objects.PutObject(ctx, s.bucket, objectName, payload); err != nil {
			// Archival is best effort; the chunks are already usable.
			log.Error(err, "failed to archive document payload", "object", objectName)
		}
	}

	log.Debug("document ingested", "filename", filename, "chunks", len(chunks))
	return len(chunks), nil
}
