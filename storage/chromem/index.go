// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package chromem provides a chromem-go backed storage.VectorIndex.
// Chunk vectors live in a single cosine-distance collection; document id
// and sequence are kept as entry metadata so search results need no
// metadata-store join.
package chromem

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/poiesic/ragserve/core"
	"github.com/poiesic/ragserve/storage"
)

const collectionName = "document_chunks"

// Index is a chromem-go backed vector index.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *slog.Logger
}

var _ storage.VectorIndex = (*Index)(nil)

// NewIndex opens a persistent vector index at the given path.
//
// Returns storage.VectorIndex interface to enforce abstraction.
func NewIndex(path string) (storage.VectorIndex, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}
	return newIndex(db)
}

// NewMemoryIndex creates an in-memory vector index, useful for tests.
func NewMemoryIndex() (storage.VectorIndex, error) {
	return newIndex(chromem.NewDB())
}

func newIndex(db *chromem.DB) (*Index, error) {
	collection, err := db.GetOrCreateCollection(collectionName,
		map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", collectionName, err)
	}

	return &Index{
		db:         db,
		collection: collection,
		logger:     slog.Default().With("component", "chromem-index"),
	}, nil
}

// Add stores one vector per chunk. The vector entry id doubles as the
// chunk's embedding id.
func (x *Index) Add(ctx context.Context, chunks []core.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return storage.ErrVectorCountMismatch
	}
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	contents := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID.String()
		metadatas[i] = map[string]string{
			"document_id": chunk.DocumentID.String(),
			"sequence":    strconv.Itoa(chunk.Sequence),
		}
		contents[i] = chunk.Content
	}

	if err := x.collection.Add(ctx, ids, embeddings, metadatas, contents); err != nil {
		return fmt.Errorf("adding %d vectors: %w", len(chunks), err)
	}
	return nil
}

// Search returns the top limit chunks ranked by cosine similarity.
// limit is clamped to the collection size; an empty index yields an empty
// result rather than an error.
func (x *Index) Search(ctx context.Context, vector []float32, limit int) ([]core.RetrievedChunk, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("search limit must be positive, got %d", limit)
	}

	count := x.collection.Count()
	if count == 0 {
		return []core.RetrievedChunk{}, nil
	}
	if limit > count {
		limit = count
	}

	results, err := x.collection.QueryEmbedding(ctx, vector, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying vector index: %w", err)
	}

	chunks := make([]core.RetrievedChunk, 0, len(results))
	for _, result := range results {
		chunk := core.RetrievedChunk{
			Content:     result.Content,
			EmbeddingID: result.ID,
			Score:       result.Similarity,
		}
		if raw, ok := result.Metadata["document_id"]; ok {
			docID, err := uuid.Parse(raw)
			if err != nil {
				x.logger.Warn("skipping result with bad document id", "id", result.ID, "document_id", raw)
				continue
			}
			chunk.DocumentID = docID
		}
		if raw, ok := result.Metadata["sequence"]; ok {
			seq, err := strconv.Atoi(raw)
			if err != nil {
				x.logger.Warn("skipping result with bad sequence", "id", result.ID, "sequence", raw)
				continue
			}
			chunk.Sequence = seq
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// DeleteByDocument removes all vectors belonging to a document.
func (x *Index) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	err := x.collection.Delete(ctx, map[string]string{"document_id": documentID.String()}, nil)
	if err != nil {
		return fmt.Errorf("deleting vectors for %s: %w", documentID, err)
	}
	return nil
}

// Close releases the index. chromem persists on write, so this is a no-op
// besides dropping references.
func (x *Index) Close() error {
	return nil
}
