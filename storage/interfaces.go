package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/ragserve/core"
)

// BlobInfo describes a stored blob. It is persisted beside the raw bytes
// so a document's original upload can be reconstructed.
type BlobInfo struct {
	Filename  string
	MimeType  string
	SizeBytes int64
	CreatedAt time.Time
}

// BlobStore persists raw document bytes keyed by document id.
// Implementations must be thread-safe and support concurrent access.
type BlobStore interface {
	// Put stores the blob and its info under id, overwriting any
	// previous value.
	Put(ctx context.Context, id uuid.UUID, content []byte, info BlobInfo) error

	// Get retrieves the blob bytes and info for id.
	// Returns ErrNotFound if no blob is stored under id.
	Get(ctx context.Context, id uuid.UUID) ([]byte, BlobInfo, error)

	// Delete removes the blob. The bool reports whether a blob existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// Close closes the store and releases resources.
	Close() error
}

// MetadataStore persists document and chunk rows. Each call runs in its
// own transaction, committed or rolled back atomically, but calls do not
// compose into larger transactions.
type MetadataStore interface {
	// SaveDocument inserts a document row. The document is validated first.
	SaveDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document row by id.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id uuid.UUID) (*core.Document, error)

	// UpdateDocumentStatus sets the document's status.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status core.DocumentStatus) error

	// DeleteDocument removes a document row. Chunk rows referencing it are
	// removed in the same transaction (cascade).
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	// SaveChunks inserts chunk rows in a single transaction.
	// Each chunk is validated first.
	SaveChunks(ctx context.Context, chunks []core.Chunk) error

	// GetChunks retrieves a document's chunk rows ordered by sequence.
	GetChunks(ctx context.Context, documentID uuid.UUID) ([]core.Chunk, error)

	// DeleteChunks removes all chunk rows for a document. Deleting zero
	// rows is not an error; a valid document may have no chunks yet.
	DeleteChunks(ctx context.Context, documentID uuid.UUID) error

	// Close closes the store and releases resources.
	Close() error
}

// VectorIndex stores chunk embeddings and answers similarity queries.
// Entries are created and deleted in lockstep with chunk metadata rows by
// the Coordinator; they are not independently addressable.
type VectorIndex interface {
	// Add stores one vector per chunk. len(embeddings) must equal
	// len(chunks); chunk content, document id, and sequence are stored
	// beside the vector so search results need no metadata join.
	Add(ctx context.Context, chunks []core.Chunk, embeddings [][]float32) error

	// Search returns the top limit chunks ranked by cosine similarity to
	// the query vector. An empty index yields an empty result, not an error.
	Search(ctx context.Context, vector []float32, limit int) ([]core.RetrievedChunk, error)

	// DeleteByDocument removes all vectors belonging to a document.
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error

	// Close closes the index and releases resources.
	Close() error
}
