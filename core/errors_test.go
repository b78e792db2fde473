package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessingErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := EmbeddingError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "embedding generation failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestErrorStage(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		stage Stage
	}{
		{"extraction", ExtractionError(errors.New("bad bytes")), StageExtraction},
		{"chunking", ChunkingError(errors.New("splitter")), StageChunking},
		{"embedding", EmbeddingError(errors.New("timeout")), StageEmbedding},
		{"storage", StorageError(errors.New("disk full")), StageStorage},
		{"generic", NewProcessingError("no valid chunks created", nil), StageProcessing},
		{"not a processing error", errors.New("plain"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.stage, ErrorStage(tt.err))
		})
	}
}

func TestIsProcessingErrorThroughWrapping(t *testing.T) {
	inner := StorageError(errors.New("row missing"))
	outer := NewProcessingError("document processing failed", inner)

	require.True(t, IsProcessingError(outer))

	// Outermost classification wins; the root cause stays reachable.
	assert.Equal(t, StageProcessing, ErrorStage(outer))
	var pe *ProcessingError
	require.True(t, errors.As(errors.Unwrap(outer), &pe))
	assert.Equal(t, StageStorage, pe.Stage)
}
