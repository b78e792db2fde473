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


// Package ragserve assembles the document chat system: storage backends,
// AI capabilities, ingestion pipeline, retrieval, and conversation
// service behind a single System facade.
package ragserve

import (
	"log/slog"
	"path/filepath"

	"github.com/poiesic/ragserve/ai"
	"github.com/poiesic/ragserve/ai/extract"
	"github.com/poiesic/ragserve/ai/openai"
	"github.com/poiesic/ragserve/chat"
	"github.com/poiesic/ragserve/ingestion"
	"github.com/poiesic/ragserve/search"
	"github.com/poiesic/ragserve/storage"
	badgerstore "github.com/poiesic/ragserve/storage/badger"
	chromemstore "github.com/poiesic/ragserve/storage/chromem"
	sqlitestore "github.com/poiesic/ragserve/storage/sqlite"
)

// System owns every component of the service and tears them down in
// reverse dependency order.
type System struct {
	coordinator   *storage.Coordinator
	provider      ai.Provider
	extractor     ai.TextExtractor
	pipeline      *ingestion.Pipeline
	retriever     *search.Retriever
	conversations *chat.ConversationStore
	chatService   *chat.Service
	logger        *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig     *ai.Config
	chunkConfig  ingestion.ChunkConfig
	storeOpts    []chat.StoreOption
	serviceOpts  []chat.ServiceOption
	pipelineOpts []ingestion.Option
}

// WithAIConfig sets the AI provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithChunkConfig sets the chunking parameters.
// Default is ingestion.DefaultChunkConfig().
func WithChunkConfig(config ingestion.ChunkConfig) SystemOption {
	return func(o *systemOptions) {
		o.chunkConfig = config
	}
}

// WithConversationOptions forwards options to the conversation store.
func WithConversationOptions(opts ...chat.StoreOption) SystemOption {
	return func(o *systemOptions) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// WithChatOptions forwards options to the chat service.
func WithChatOptions(opts ...chat.ServiceOption) SystemOption {
	return func(o *systemOptions) {
		o.serviceOpts = append(o.serviceOpts, opts...)
	}
}

// WithPipelineOptions forwards options to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) SystemOption {
	return func(o *systemOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// NewSystem wires up the full service with data under dataDir: badger
// blobs in "blobs", the sqlite metadata database, and the chromem vector
// index in "vectors".
func NewSystem(dataDir string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig:    ai.DefaultConfig(),
		chunkConfig: ingestion.DefaultChunkConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	blobs, err := badgerstore.NewBlobStore(filepath.Join(dataDir, "blobs"), false)
	if err != nil {
		return nil, err
	}

	metadata, err := sqlitestore.NewStore(dataDir)
	if err != nil {
		blobs.Close()
		return nil, err
	}

	vectors, err := chromemstore.NewIndex(filepath.Join(dataDir, "vectors"))
	if err != nil {
		metadata.Close()
		blobs.Close()
		return nil, err
	}

	coordinator, err := storage.NewCoordinator(blobs, metadata, vectors)
	if err != nil {
		vectors.Close()
		metadata.Close()
		blobs.Close()
		return nil, err
	}

	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		coordinator.Close()
		return nil, err
	}

	extractor := extract.NewExtractor()

	pipelineOpts := append([]ingestion.Option{
		ingestion.WithChunkConfig(options.chunkConfig),
	}, options.pipelineOpts...)
	pipeline, err := ingestion.NewPipeline(coordinator, extractor, provider.Embedder(), pipelineOpts...)
	if err != nil {
		provider.Close()
		coordinator.Close()
		return nil, err
	}

	retriever, err := search.NewRetriever(coordinator, provider.Embedder())
	if err != nil {
		pipeline.Release()
		provider.Close()
		coordinator.Close()
		return nil, err
	}

	conversations, err := chat.NewConversationStore(options.storeOpts...)
	if err != nil {
		pipeline.Release()
		provider.Close()
		coordinator.Close()
		return nil, err
	}

	chatService, err := chat.NewService(retriever, provider.Generator(), conversations, options.serviceOpts...)
	if err != nil {
		conversations.Close()
		pipeline.Release()
		provider.Close()
		coordinator.Close()
		return nil, err
	}

	return &System{
		coordinator:   coordinator,
		provider:      provider,
		extractor:     extractor,
		pipeline:      pipeline,
		retriever:     retriever,
		conversations: conversations,
		chatService:   chatService,
		logger:        slog.Default(),
	}, nil
}

// Coordinator returns the storage coordinator.
func (s *System) Coordinator() *storage.Coordinator {
	return s.coordinator
}

// Pipeline returns the ingestion pipeline.
func (s *System) Pipeline() *ingestion.Pipeline {
	return s.pipeline
}

// Retriever returns the retrieval engine.
func (s *System) Retriever() *search.Retriever {
	return s.retriever
}

// ChatService returns the conversational completion service.
func (s *System) ChatService() *chat.Service {
	return s.chatService
}

// Close shuts the system down: workers first, then the conversation
// reclaimer, the AI provider, and finally the storage backends.
func (s *System) Close() error {
	s.pipeline.Release()

	if err := s.conversations.Close(); err != nil {
		s.logger.Error("error closing conversation store", "err", err)
	}
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.coordinator.Close(); err != nil {
		s.logger.Error("error closing storage", "err", err)
		return err
	}
	return nil
}
