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


package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/ragserve/ai"
	"github.com/poiesic/ragserve/core"
	"github.com/poiesic/ragserve/storage"
)

// Retriever answers queries with the most similar stored chunks.
type Retriever struct {
	coordinator *storage.Coordinator
	embedder    ai.Embedder
	logger      *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewRetriever creates a retriever over the coordinator and embedder.
func NewRetriever(coordinator *storage.Coordinator, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if coordinator == nil {
		return nil, ErrCoordinatorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		coordinator: coordinator,
		embedder:    embedder,
		logger:      slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ProcessQuery embeds the query and retrieves up to limit similar chunks.
// A query that matches nothing returns an empty result, not an error.
func (r *Retriever) ProcessQuery(ctx context.Context, query string, limit int) (*core.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return nil, fmt.Errorf("retrieval limit must be positive, got %d", limit)
	}

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, core.EmbeddingError(err)
	}

	chunks, err := r.coordinator.Search(ctx, vector, limit)
	if err != nil {
		return nil, core.NewProcessingError("similarity search failed", err)
	}

	r.logger.Debug("query processed", "hits", len(chunks), "limit", limit)

	return &core.QueryResult{
		Query:   query,
		Chunks:  chunks,
		Context: buildContext(chunks),
	}, nil
}

// buildContext renders retrieved chunks as a numbered block, one entry
// per chunk separated by blank lines. Numbering starts at 1.
func buildContext(chunks []core.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}
