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


package storage

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/ragserve/core"
)

// Coordinator presents ingestion and retrieval as atomic-looking
// operations over the three storage backends. It holds each backend by
// capability, never by concrete type.
//
// There is no cross-backend transaction. Multi-backend writes are sagas:
// compensations accumulate per completed step and run in reverse order on
// failure. Compensation failures are logged, never returned, so a
// secondary failure cannot mask the primary cause.
type Coordinator struct {
	blobs    BlobStore
	metadata MetadataStore
	vectors  VectorIndex
	logger   *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCoordinator creates a coordinator over the three backends.
func NewCoordinator(blobs BlobStore, metadata MetadataStore, vectors VectorIndex, opts ...CoordinatorOption) (*Coordinator, error) {
	if blobs == nil {
		return nil, ErrBlobStoreRequired
	}
	if metadata == nil {
		return nil, ErrMetadataStoreRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}

	c := &Coordinator{
		blobs:    blobs,
		metadata: metadata,
		vectors:  vectors,
		logger:   slog.Default().With("component", "storage-coordinator"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// compensation undoes one completed saga step.
type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

// compensate runs accumulated compensations in reverse order.
// Failures are logged and swallowed.
func (c *Coordinator) compensate(ctx context.Context, comps []compensation) {
	for i := len(comps) - 1; i >= 0; i-- {
		if err := comps[i].fn(ctx); err != nil {
			c.logger.Error("compensation failed", "step", comps[i].name, "err", err)
		}
	}
}

// SaveDocument stores the raw upload: a new document row with
// status=pending, then the blob. The MIME type is sniffed from the
// content. The metadata row goes first because it is cheap to roll back;
// if the blob write fails the row is compensated away and the partial
// failure is reported as a total failure.
func (c *Coordinator) SaveDocument(ctx context.Context, content []byte, filename string) (uuid.UUID, error) {
	docID := uuid.New()
	now := time.Now().UTC()
	mimeType := sniffMimeType(content)

	doc := &core.Document{
		ID:        docID,
		Filename:  filename,
		MimeType:  mimeType,
		SizeBytes: int64(len(content)),
		Status:    core.StatusPending,
		CreatedAt: now,
	}

	var comps []compensation

	if err := c.metadata.SaveDocument(ctx, doc); err != nil {
		return uuid.Nil, core.StorageError(err)
	}
	comps = append(comps, compensation{
		name: "delete document row",
		fn: func(ctx context.Context) error {
			return c.metadata.DeleteDocument(ctx, docID)
		},
	})

	info := BlobInfo{Filename: filename, MimeType: mimeType, SizeBytes: int64(len(content)), CreatedAt: now}
	if err := c.blobs.Put(ctx, docID, content, info); err != nil {
		c.compensate(ctx, comps)
		return uuid.Nil, core.StorageError(err)
	}

	c.logger.Debug("saved document", "doc_id", docID, "filename", filename, "mime_type", mimeType, "bytes", len(content))
	return docID, nil
}

// SaveProcessedChunks persists chunk rows and their vectors, then marks
// the document completed. On failure the completed steps are compensated
// and the document is left at status storing; the caller is responsible
// for transitioning it to failed.
func (c *Coordinator) SaveProcessedChunks(ctx context.Context, docID uuid.UUID, chunks []core.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return core.StorageError(ErrVectorCountMismatch)
	}

	if err := c.metadata.UpdateDocumentStatus(ctx, docID, core.StatusStoring); err != nil {
		return core.StorageError(err)
	}

	// The vector index stores each chunk under its chunk id, so that id is
	// recorded as the embedding id on the metadata row.
	stamped := make([]core.Chunk, len(chunks))
	copy(stamped, chunks)
	for i := range stamped {
		stamped[i].EmbeddingID = stamped[i].ID.String()
	}
	chunks = stamped

	var comps []compensation

	if err := c.metadata.SaveChunks(ctx, chunks); err != nil {
		return core.StorageError(err)
	}
	comps = append(comps, compensation{
		name: "delete chunk rows",
		fn: func(ctx context.Context) error {
			return c.metadata.DeleteChunks(ctx, docID)
		},
	})

	if err := c.vectors.Add(ctx, chunks, embeddings); err != nil {
		c.compensate(ctx, comps)
		return core.StorageError(err)
	}
	comps = append(comps, compensation{
		name: "delete vectors",
		fn: func(ctx context.Context) error {
			return c.vectors.DeleteByDocument(ctx, docID)
		},
	})

	if err := c.metadata.UpdateDocumentStatus(ctx, docID, core.StatusCompleted); err != nil {
		c.compensate(ctx, comps)
		return core.StorageError(err)
	}

	c.logger.Debug("stored processed chunks", "doc_id", docID, "chunks", len(chunks))
	return nil
}

// DeleteDocument removes the document and all associated data across the
// three backends. The policy is best-effort-all: every backend is
// attempted even if an earlier one fails, and failures are aggregated.
// The bool reports whether the blob delete succeeded.
func (c *Coordinator) DeleteDocument(ctx context.Context, docID uuid.UUID) (bool, error) {
	var errs []error

	blobDeleted, err := c.blobs.Delete(ctx, docID)
	if err != nil {
		errs = append(errs, err)
	}

	// Chunk rows go before the document row so the delete also works on
	// backends without FK cascade.
	if err := c.metadata.DeleteChunks(ctx, docID); err != nil {
		errs = append(errs, err)
	}
	if err := c.metadata.DeleteDocument(ctx, docID); err != nil && !errors.Is(err, ErrNotFound) {
		errs = append(errs, err)
	}
	if err := c.vectors.DeleteByDocument(ctx, docID); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return blobDeleted, core.StorageError(errors.Join(errs...))
	}
	return blobDeleted, nil
}

// CleanupFailed removes a failed document's blob, chunk rows, and vectors
// but keeps the document row, so the terminal failed status remains
// observable through status polling.
func (c *Coordinator) CleanupFailed(ctx context.Context, docID uuid.UUID) error {
	var errs []error

	if _, err := c.blobs.Delete(ctx, docID); err != nil {
		errs = append(errs, err)
	}
	if err := c.metadata.DeleteChunks(ctx, docID); err != nil {
		errs = append(errs, err)
	}
	if err := c.vectors.DeleteByDocument(ctx, docID); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return core.StorageError(errors.Join(errs...))
	}
	return nil
}

// UpdateDocumentStatus sets the document's pipeline status.
func (c *Coordinator) UpdateDocumentStatus(ctx context.Context, docID uuid.UUID, status core.DocumentStatus) error {
	if err := c.metadata.UpdateDocumentStatus(ctx, docID, status); err != nil {
		return core.StorageError(err)
	}
	return nil
}

// GetDocument retrieves the document row for docID.
func (c *Coordinator) GetDocument(ctx context.Context, docID uuid.UUID) (*core.Document, error) {
	return c.metadata.GetDocument(ctx, docID)
}

// DocumentStatus returns the document's current status.
// Returns ErrNotFound for unknown ids.
func (c *Coordinator) DocumentStatus(ctx context.Context, docID uuid.UUID) (core.DocumentStatus, error) {
	doc, err := c.metadata.GetDocument(ctx, docID)
	if err != nil {
		return "", err
	}
	return doc.Status, nil
}

// GetChunks retrieves a document's chunk rows ordered by sequence.
func (c *Coordinator) GetChunks(ctx context.Context, docID uuid.UUID) ([]core.Chunk, error) {
	return c.metadata.GetChunks(ctx, docID)
}

// GetBlob retrieves the raw uploaded bytes for a document.
func (c *Coordinator) GetBlob(ctx context.Context, docID uuid.UUID) ([]byte, BlobInfo, error) {
	return c.blobs.Get(ctx, docID)
}

// Search returns the top limit chunks ranked by similarity to the query
// embedding.
func (c *Coordinator) Search(ctx context.Context, embedding []float32, limit int) ([]core.RetrievedChunk, error) {
	return c.vectors.Search(ctx, embedding, limit)
}

// Close closes all three backends, reporting the first error encountered.
func (c *Coordinator) Close() error {
	var errs []error
	if err := c.vectors.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.metadata.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.blobs.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// sniffMimeType detects a MIME type from content, stripping parameters.
func sniffMimeType(content []byte) string {
	detected := http.DetectContentType(content)
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return detected
	}
	return mediaType
}
