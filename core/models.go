package core

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus tracks a document's progress through the ingestion pipeline.
type DocumentStatus string

const (
	// StatusPending means the raw document is stored but processing has not started.
	StatusPending DocumentStatus = "pending"
	// StatusExtracting means text extraction is in progress.
	StatusExtracting DocumentStatus = "extracting"
	// StatusChunking means the extracted text is being split into chunks.
	StatusChunking DocumentStatus = "chunking"
	// StatusEmbedding means chunk embeddings are being generated.
	StatusEmbedding DocumentStatus = "embedding"
	// StatusStoring means chunk metadata and vectors are being persisted.
	StatusStoring DocumentStatus = "storing"
	// StatusCompleted means the document is fully ingested and retrievable.
	StatusCompleted DocumentStatus = "completed"
	// StatusFailed means ingestion failed; the document must be re-uploaded.
	StatusFailed DocumentStatus = "failed"
)

// IsTerminal reports whether the status is one of the two terminal states.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document represents an uploaded document and its ingestion state.
// The ID is assigned on upload and never changes; all of the document's
// chunks reference it.
type Document struct {
	ID        uuid.UUID
	Filename  string
	MimeType  string
	SizeBytes int64
	Status    DocumentStatus
	CreatedAt time.Time
}

// Chunk is a contiguous slice of a document's extracted text, stored and
// embedded independently for retrieval. Sequence is a dense 0-based index
// per document reflecting original order. A chunk never outlives its
// document.
type Chunk struct {
	ID          uuid.UUID
	DocumentID  uuid.UUID
	Content     string
	Sequence    int
	EmbeddingID string // id of the vector-index entry, empty until stored
	CreatedAt   time.Time
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RetrievedChunk is a chunk returned from a vector similarity search,
// ranked by score (higher is more similar).
type RetrievedChunk struct {
	Content     string
	DocumentID  uuid.UUID
	Sequence    int
	EmbeddingID string
	Score       float32
}

// QueryResult holds the outcome of retrieval for a single query: the
// ranked chunks plus the formatted context block handed to generation.
type QueryResult struct {
	Query   string
	Chunks  []RetrievedChunk
	Context string
}
