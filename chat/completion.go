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


package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/poiesic/ragserve/ai"
	"github.com/poiesic/ragserve/core"
	"github.com/poiesic/ragserve/search"
)

// Service answers questions grounded in retrieved document context,
// carrying conversation history across requests.
type Service struct {
	retriever     *search.Retriever
	generator     ai.Generator
	conversations *ConversationStore
	prompts       *PromptManager

	contextLimit    int
	completeTimeout time.Duration
	logger          *slog.Logger

	// locks serializes requests per conversation id. Distinct
	// conversations never contend.
	locks sync.Map // string -> *sync.Mutex
}

// Response is the result of one chat exchange.
type Response struct {
	Answer  string
	Context string
	Chunks  []core.RetrievedChunk
	History []core.Message
}

// ServiceOption configures a Service.
type ServiceOption func(*Service) error

// WithContextLimit sets how many chunks are retrieved per question.
// Default is 3.
func WithContextLimit(n int) ServiceOption {
	return func(s *Service) error {
		if n > 0 {
			s.contextLimit = n
		}
		return nil
	}
}

// WithCompleteTimeout bounds the chat completion call.
// Default is 2 minutes.
func WithCompleteTimeout(d time.Duration) ServiceOption {
	return func(s *Service) error {
		if d > 0 {
			s.completeTimeout = d
		}
		return nil
	}
}

// WithServiceLogger sets a custom logger.
// Default is slog.Default().
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates a chat service.
func NewService(
	retriever *search.Retriever,
	generator ai.Generator,
	conversations *ConversationStore,
	opts ...ServiceOption,
) (*Service, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if conversations == nil {
		return nil, ErrConversationStoreRequired
	}

	s := &Service{
		retriever:       retriever,
		generator:       generator,
		conversations:   conversations,
		prompts:         NewPromptManager(),
		contextLimit:    3,
		completeTimeout: 2 * time.Minute,
		logger:          slog.Default().With("component", "chat-service"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	// Drop the per-conversation mutex when the store reclaims the
	// conversation, so the lock map doesn't grow without bound.
	conversations.OnEvict(func(id string) { s.locks.Delete(id) })

	return s, nil
}

// GetResponse answers question using retrieved context and, when
// conversationID is non-empty, the conversation's history. History is
// updated only after the full exchange succeeds.
func (s *Service) GetResponse(ctx context.Context, question, conversationID string) (*Response, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	if conversationID != "" {
		lock := s.conversationLock(conversationID)
		lock.Lock()
		defer lock.Unlock()
	}

	var history []core.Message
	if conversationID != "" {
		history, _ = s.conversations.GetHistory(conversationID)
	}

	result, err := s.retriever.ProcessQuery(ctx, question, s.contextLimit)
	if err != nil {
		return nil, err
	}

	messages := s.buildMessages(history, result.Context, question)

	completeCtx, cancel := context.WithTimeout(ctx, s.completeTimeout)
	defer cancel()

	answer, err := s.generator.Complete(completeCtx, messages)
	if err != nil {
		return nil, core.NewProcessingError("chat completion failed", err)
	}

	updated := append(history,
		core.Message{Role: core.RoleUser, Content: question},
		core.Message{Role: core.RoleAssistant, Content: answer},
	)
	if conversationID != "" {
		s.conversations.UpdateHistory(conversationID, updated)
	}

	s.logger.Debug("chat exchange completed",
		"conversation_id", conversationID, "chunks", len(result.Chunks))

	return &Response{
		Answer:  answer,
		Context: result.Context,
		Chunks:  result.Chunks,
		History: updated,
	}, nil
}

// buildMessages assembles system instruction, prior history, and the
// templated user prompt in order.
func (s *Service) buildMessages(history []core.Message, contextBlock, question string) []core.Message {
	messages := make([]core.Message, 0, len(history)+2)
	messages = append(messages, core.Message{Role: core.RoleSystem, Content: s.prompts.SystemPrompt()})
	messages = append(messages, history...)
	messages = append(messages, core.Message{
		Role:    core.RoleUser,
		Content: s.prompts.UserPrompt(contextBlock, question),
	})
	return messages
}

func (s *Service) conversationLock(conversationID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(conversationID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
