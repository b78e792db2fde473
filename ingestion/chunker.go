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


package ingestion

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/ragserve/core"
	"github.com/tmc/langchaingo/textsplitter"
)

// chunkSeparators are tried in order, from strongest structural boundary
// to character-level fallback.
var chunkSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// whitespaceAllowance bounds how much surrounding whitespace a document
// may carry and still qualify as a single-chunk document.
const whitespaceAllowance = 2

// Chunker splits extracted text into sized, overlapping chunks.
type Chunker struct {
	config   ChunkConfig
	splitter textsplitter.RecursiveCharacter
}

// NewChunker creates a chunker with the given configuration.
func NewChunker(config ChunkConfig) (*Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(config.ChunkSize),
		textsplitter.WithChunkOverlap(config.ChunkOverlap),
		textsplitter.WithSeparators(chunkSeparators),
	)

	return &Chunker{config: config, splitter: splitter}, nil
}

// Chunk splits text into chunks for the given document, assigning dense
// sequence numbers starting at zero.
//
// Documents no longer than the minimum chunk size become a single trimmed
// chunk instead of being split. After splitting, chunks whose trimmed
// content is shorter than the minimum are dropped; if nothing survives
// the whole operation fails.
func (c *Chunker) Chunk(docID uuid.UUID, text string) ([]core.Chunk, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, core.ChunkingError(ErrNoText)
	}

	if len(trimmed) <= c.config.MinChunkSize && len(text) <= whitespaceAllowance*c.config.MinChunkSize {
		return []core.Chunk{c.newChunk(docID, trimmed, 0)}, nil
	}

	pieces, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, core.ChunkingError(err)
	}

	chunks := make([]core.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if len(strings.TrimSpace(piece)) < c.config.MinChunkSize {
			continue
		}
		chunks = append(chunks, c.newChunk(docID, piece, len(chunks)))
	}

	if len(chunks) == 0 {
		return nil, core.ChunkingError(ErrNoValidChunks)
	}
	return chunks, nil
}

func (c *Chunker) newChunk(docID uuid.UUID, content string, sequence int) core.Chunk {
	return core.Chunk{
		ID:         uuid.New(),
		DocumentID: docID,
		Content:    content,
		Sequence:   sequence,
		CreatedAt:  time.Now().UTC(),
	}
}
