package weaviate

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/weaviate/weaviate/entities/models"

	"docqa/src/core/index"
	"docqa/src/infrastructure/log"
)

// Index is a Weaviate-backed vector index over chunk embeddings. A rebuild
// replaces the whole class, mirroring the snapshot semantics of the
// in-memory index.
type Index struct {
	sdk       *SDK
	className string

	mu    sync.RWMutex
	built bool
	size  int
}

func NewIndex(sdk *SDK, className string) *Index {
	return &Index{sdk: sdk, className: className}
}

// Rebuild drops the class and re-adds every entry. Searches against the old
// class keep working until the drop; a failed rebuild leaves the index
// unbuilt rather than partially filled.
func (i *Index) Rebuild(ctx context.Context, entries []index.Entry) error {
	exists, err := i.sdk.ClassExists(ctx, i.className)
	if err != nil {
		return fmt.Errorf("failed to check index class: %w", err)
	}
	if exists {
		if err := i.sdk.DeleteSchema(ctx, i.className); err != nil {
			return fmt.Errorf("failed to drop index class: %w", err)
		}
	}

	i.mu.Lock()
	i.built = false
	i.size = 0
	i.mu.Unlock()

	properties := []*models.Property{
		{Name: "chunk_id", DataType: []string{"text"}},
	}
	if err := i.sdk.CreateSchema(ctx, i.className, properties, "none"); err != nil {
		return fmt.Errorf("failed to create index class: %w", err)
	}

	if len(entries) > 0 {
		objects := make([]VectorObject, len(entries))
		for j, e := range entries {
			objects[j] = VectorObject{
				Vector: e.Vector,
				Properties: map[string]interface{}{
					"chunk_id": strconv.FormatInt(e.ChunkID, 10),
				},
			}
		}
		if err := i.sdk.BatchAddVectors(ctx, i.className, objects); err != nil {
			return fmt.Errorf("failed to add index entries: %w", err)
		}
	}

	i.mu.Lock()
	i.built = true
	i.size = len(entries)
	i.mu.Unlock()

	log.Info("vector index rebuilt", "class", i.className, "entries", len(entries))
	return nil
}

// Search returns the k nearest chunks by cosine similarity. Weaviate
// reports cosine distance; the score is converted back to similarity so
// callers see the same scale as the in-memory index.
func (i *Index) Search(ctx context.Context, query []float32, k int) ([]index.Hit, error) {
	i.mu.RLock()
	built, size := i.built, i.size
	i.mu.RUnlock()
	if !built {
		return nil, index.ErrNotBuilt
	}
	if size == 0 {
		return []index.Hit{}, nil
	}

	results, err := i.sdk.QueryVectors(ctx, i.className, query, QueryConfig{
		Fields: []string{"chunk_id"},
		Limit:  k,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]index.Hit, 0, len(results))
	for _, r := range results {
		raw, _ := r.Properties["chunk_id"].(string)
		chunkID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Error(err, "skipping index entry with malformed chunk id", "chunk_id", raw)
			continue
		}
		hits = append(hits, index.Hit{
			ChunkID: chunkID,
			Score:   1 - r.Distance,
		})
	}

	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return hits[a].ChunkID < hits[b].ChunkID
	})
	return hits, nil
}

func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.size
}
