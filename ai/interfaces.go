package ai

import (
	"context"

	"github.com/poiesic/ragserve/core"
)

// TextExtractor extracts plain text from raw document bytes.
// Implementations must be thread-safe for concurrent use.
type TextExtractor interface {
	// ExtractText converts document content into plain text.
	// Returns an error if the content cannot be parsed.
	ExtractText(ctx context.Context, content []byte) (string, error)
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces a chat completion from an ordered message sequence.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Complete sends the message sequence to the model and returns the
	// assistant's answer text.
	Complete(ctx context.Context, messages []core.Message) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle
// management. A provider creates and manages Embedder and Generator instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Generator returns the chat completion service.
	Generator() Generator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
