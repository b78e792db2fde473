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
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragserve/ai"
	"github.com/poiesic/ragserve/core"
	"github.com/poiesic/ragserve/storage"
)

// Pipeline orchestrates document processing: extraction, chunking,
// embedding, and storage. Each stage records its status on the document
// row so callers can poll progress while processing runs on a worker
// pool.
type Pipeline struct {
	coordinator  *storage.Coordinator
	extractor    ai.TextExtractor
	embedder     ai.Embedder
	chunker      *Chunker
	pool         *ants.Pool
	stageTimeout time.Duration
	maxRetries   int
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithChunkConfig overrides the chunking parameters.
// Default is DefaultChunkConfig().
func WithChunkConfig(config ChunkConfig) Option {
	return func(p *Pipeline) error {
		chunker, err := NewChunker(config)
		if err != nil {
			return err
		}
		p.chunker = chunker
		return nil
	}
}

// WithStageTimeout bounds each external call (extraction, embedding,
// storage) with a per-stage deadline. Default is 2 minutes.
func WithStageTimeout(timeout time.Duration) Option {
	return func(p *Pipeline) error {
		if timeout > 0 {
			p.stageTimeout = timeout
		}
		return nil
	}
}

// WithMaxRetries records the retry budget for transient stage failures.
// The budget is configuration only; stages currently run once.
func WithMaxRetries(retries int) Option {
	return func(p *Pipeline) error {
		if retries >= 0 {
			p.maxRetries = retries
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new document processing pipeline.
func NewPipeline(
	coordinator *storage.Coordinator,
	extractor ai.TextExtractor,
	embedder ai.Embedder,
	opts ...Option,
) (*Pipeline, error) {
	if coordinator == nil {
		return nil, ErrCoordinatorRequired
	}
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	chunker, err := NewChunker(DefaultChunkConfig())
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		coordinator:  coordinator,
		extractor:    extractor,
		embedder:     embedder,
		chunker:      chunker,
		pool:         pool,
		stageTimeout: 2 * time.Minute,
		maxRetries:   3,
		logger:       slog.Default().With("component", "ingestion-pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Process ingests a document synchronously, running every stage before
// returning. On any failure after the initial save the document is
// marked failed and partial data is cleaned up; the returned error
// carries the failing stage.
func (p *Pipeline) Process(ctx context.Context, content []byte, filename string) (uuid.UUID, error) {
	docID, err := p.save(ctx, content, filename)
	if err != nil {
		return uuid.Nil, err
	}

	if err := p.run(ctx, docID, content); err != nil {
		return docID, err
	}
	return docID, nil
}

// ProcessAsync persists the document and returns its id immediately,
// running the remaining stages on the worker pool. Processing errors are
// logged and surface only through the document's failed status.
func (p *Pipeline) ProcessAsync(ctx context.Context, content []byte, filename string) (uuid.UUID, error) {
	docID, err := p.save(ctx, content, filename)
	if err != nil {
		return uuid.Nil, err
	}

	submitErr := p.pool.Submit(func() {
		if err := p.run(context.Background(), docID, content); err != nil {
			p.logger.Error("document processing failed", "doc_id", docID, "stage", core.ErrorStage(err), "err", err)
		}
	})
	if submitErr != nil {
		p.fail(context.Background(), docID)
		return docID, core.NewProcessingError("submitting document for processing", submitErr)
	}

	return docID, nil
}

// save validates the upload and stores the raw document with status
// pending.
func (p *Pipeline) save(ctx context.Context, content []byte, filename string) (uuid.UUID, error) {
	if strings.TrimSpace(filename) == "" {
		return uuid.Nil, ErrEmptyFilename
	}
	if len(content) == 0 {
		return uuid.Nil, ErrEmptyContent
	}
	return p.coordinator.SaveDocument(ctx, content, filename)
}

// run executes extraction through storage for an already saved document.
func (p *Pipeline) run(ctx context.Context, docID uuid.UUID, content []byte) error {
	text, err := p.extract(ctx, docID, content)
	if err != nil {
		p.fail(ctx, docID)
		return err
	}

	chunks, err := p.chunk(ctx, docID, text)
	if err != nil {
		p.fail(ctx, docID)
		return err
	}

	embeddings, err := p.embed(ctx, docID, chunks)
	if err != nil {
		p.fail(ctx, docID)
		return err
	}

	if err := p.coordinator.SaveProcessedChunks(ctx, docID, chunks, embeddings); err != nil {
		p.fail(ctx, docID)
		return err
	}

	p.logger.Info("document processed", "doc_id", docID, "chunks", len(chunks))
	return nil
}

func (p *Pipeline) extract(ctx context.Context, docID uuid.UUID, content []byte) (string, error) {
	if err := p.coordinator.UpdateDocumentStatus(ctx, docID, core.StatusExtracting); err != nil {
		return "", err
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	text, err := p.extractor.ExtractText(stageCtx, content)
	if err != nil {
		return "", core.ExtractionError(err)
	}
	return text, nil
}

func (p *Pipeline) chunk(ctx context.Context, docID uuid.UUID, text string) ([]core.Chunk, error) {
	if err := p.coordinator.UpdateDocumentStatus(ctx, docID, core.StatusChunking); err != nil {
		return nil, err
	}
	return p.chunker.Chunk(docID, text)
}

func (p *Pipeline) embed(ctx context.Context, docID uuid.UUID, chunks []core.Chunk) ([][]float32, error) {
	if err := p.coordinator.UpdateDocumentStatus(ctx, docID, core.StatusEmbedding); err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	embeddings, err := p.embedder.EmbedTexts(stageCtx, texts)
	if err != nil {
		return nil, core.EmbeddingError(err)
	}
	if len(embeddings) != len(chunks) {
		return nil, core.EmbeddingError(storage.ErrVectorCountMismatch)
	}
	return embeddings, nil
}

// fail marks the document failed and removes partial data. The failed
// status stays on the row so it remains pollable; cleanup errors are
// logged, never returned, so they cannot mask the stage error.
func (p *Pipeline) fail(ctx context.Context, docID uuid.UUID) {
	if err := p.coordinator.UpdateDocumentStatus(ctx, docID, core.StatusFailed); err != nil {
		p.logger.Error("error marking document failed", "doc_id", docID, "err", err)
	}
	if err := p.coordinator.CleanupFailed(ctx, docID); err != nil {
		p.logger.Error("error cleaning up failed document", "doc_id", docID, "err", err)
	}
}

// Release frees the worker pool. In-flight tasks run to completion; the
// pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
