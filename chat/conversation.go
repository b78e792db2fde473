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
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/ragserve/core"
)

const (
	defaultMaxHistory      = 20
	defaultExpiry          = 60 * time.Minute
	defaultCleanupInterval = 60 * time.Second
)

// ConversationStore keeps per-conversation message history in memory.
// A background goroutine owned by the store reclaims conversations idle
// longer than the expiry; Close stops it.
type ConversationStore struct {
	mu           sync.Mutex
	histories    map[string][]core.Message
	lastAccessed map[string]time.Time

	maxHistory      int
	expiry          time.Duration
	cleanupInterval time.Duration
	logger          *slog.Logger

	onEvict func(conversationID string)

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// StoreOption configures a ConversationStore.
type StoreOption func(*ConversationStore) error

// WithMaxHistory caps the number of messages kept per conversation.
// Default is 20.
func WithMaxHistory(n int) StoreOption {
	return func(s *ConversationStore) error {
		if n > 0 {
			s.maxHistory = n
		}
		return nil
	}
}

// WithExpiry sets how long an idle conversation survives.
// Default is 60 minutes.
func WithExpiry(d time.Duration) StoreOption {
	return func(s *ConversationStore) error {
		if d > 0 {
			s.expiry = d
		}
		return nil
	}
}

// WithCleanupInterval sets how often idle conversations are reclaimed.
// Default is 60 seconds.
func WithCleanupInterval(d time.Duration) StoreOption {
	return func(s *ConversationStore) error {
		if d > 0 {
			s.cleanupInterval = d
		}
		return nil
	}
}

// WithStoreLogger sets a custom logger.
// Default is slog.Default().
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *ConversationStore) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewConversationStore creates a store and starts its reclamation
// goroutine.
func NewConversationStore(opts ...StoreOption) (*ConversationStore, error) {
	s := &ConversationStore{
		histories:       make(map[string][]core.Message),
		lastAccessed:    make(map[string]time.Time),
		maxHistory:      defaultMaxHistory,
		expiry:          defaultExpiry,
		cleanupInterval: defaultCleanupInterval,
		logger:          slog.Default().With("component", "conversation-store"),
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.wg.Add(1)
	go s.reclaim()

	return s, nil
}

// OnEvict registers a callback invoked with each conversation id the
// reclamation goroutine evicts. At most one callback is held; callers
// use it to release per-conversation state of their own.
func (s *ConversationStore) OnEvict(fn func(conversationID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// GetHistory returns a copy of the conversation's history and refreshes
// its last-accessed time. The bool reports whether the conversation
// exists.
func (s *ConversationStore) GetHistory(conversationID string) ([]core.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, ok := s.histories[conversationID]
	if !ok {
		return nil, false
	}
	s.lastAccessed[conversationID] = time.Now()

	copied := make([]core.Message, len(history))
	copy(copied, history)
	return copied, true
}

// UpdateHistory replaces the conversation's history, keeping only the
// most recent messages up to the history cap. Malformed messages are
// dropped rather than stored.
func (s *ConversationStore) UpdateHistory(conversationID string, messages []core.Message) {
	valid := make([]core.Message, 0, len(messages))
	for _, msg := range messages {
		if err := core.ValidateMessage(&msg); err != nil {
			s.logger.Warn("dropping invalid message", "conversation_id", conversationID, "err", err)
			continue
		}
		valid = append(valid, msg)
	}
	messages = valid

	if len(messages) > s.maxHistory {
		messages = messages[len(messages)-s.maxHistory:]
	}
	copied := make([]core.Message, len(messages))
	copy(copied, messages)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[conversationID] = copied
	s.lastAccessed[conversationID] = time.Now()
}

// Len reports the number of live conversations.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.histories)
}

// reclaim evicts idle conversations on a ticker until Close.
func (s *ConversationStore) reclaim() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *ConversationStore) evictExpired() {
	cutoff := time.Now().Add(-s.expiry)

	s.mu.Lock()
	var evicted []string
	for id, accessed := range s.lastAccessed {
		if accessed.Before(cutoff) {
			delete(s.histories, id)
			delete(s.lastAccessed, id)
			evicted = append(evicted, id)
			s.logger.Debug("reclaimed idle conversation", "conversation_id", id)
		}
	}
	onEvict := s.onEvict
	s.mu.Unlock()

	// Callback runs outside the lock; it may call back into the store.
	if onEvict != nil {
		for _, id := range evicted {
			onEvict(id)
		}
	}
}

// Close stops the reclamation goroutine and waits for it to exit.
// The store remains usable for reads and writes afterwards.
func (s *ConversationStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	return nil
}
