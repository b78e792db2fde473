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


package core

import (
	"errors"
	"fmt"
)

// Stage classifies which pipeline stage a ProcessingError originated from.
type Stage string

const (
	StageExtraction Stage = "extraction"
	StageChunking   Stage = "chunking"
	StageEmbedding  Stage = "embedding"
	StageStorage    Stage = "storage"
	// StageProcessing is the generic classification for failures that
	// cannot be attributed to a more specific stage.
	StageProcessing Stage = "processing"
)

// ProcessingError is the base failure type for the ingestion and query
// pipelines. Each stage catches only the errors it can attribute and
// re-wraps unknown failures with the original cause preserved.
type ProcessingError struct {
	Stage Stage
	Msg   string
	Err   error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Msg)
}

// Unwrap returns the root cause for diagnostics.
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError wraps cause as a generic processing failure.
func NewProcessingError(msg string, cause error) *ProcessingError {
	return &ProcessingError{Stage: StageProcessing, Msg: msg, Err: cause}
}

// ExtractionError wraps a text extraction failure.
func ExtractionError(cause error) *ProcessingError {
	return &ProcessingError{Stage: StageExtraction, Msg: "text extraction failed", Err: cause}
}

// ChunkingError wraps a text splitting failure.
func ChunkingError(cause error) *ProcessingError {
	return &ProcessingError{Stage: StageChunking, Msg: "text chunking failed", Err: cause}
}

// EmbeddingError wraps an embedding generation failure.
func EmbeddingError(cause error) *ProcessingError {
	return &ProcessingError{Stage: StageEmbedding, Msg: "embedding generation failed", Err: cause}
}

// StorageError wraps a storage operation failure.
func StorageError(cause error) *ProcessingError {
	return &ProcessingError{Stage: StageStorage, Msg: "storage operation failed", Err: cause}
}

// IsProcessingError reports whether err is (or wraps) a ProcessingError.
func IsProcessingError(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe)
}

// ErrorStage returns the stage of the outermost ProcessingError in err's
// chain, or the empty Stage if err is not a processing error.
func ErrorStage(err error) Stage {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return ""
}
