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


package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/poiesic/ragserve/chat"
	"github.com/poiesic/ragserve/ingestion"
	"github.com/poiesic/ragserve/storage"
)

var (
	// ErrPipelineRequired is returned when an ingestion pipeline is not provided.
	ErrPipelineRequired = errors.New("ingestion pipeline required")

	// ErrChatServiceRequired is returned when a chat service is not provided.
	ErrChatServiceRequired = errors.New("chat service required")

	// ErrCoordinatorRequired is returned when a storage coordinator is not provided.
	ErrCoordinatorRequired = errors.New("storage coordinator required")
)

// maxUploadBytes caps multipart upload memory buffering.
const maxUploadBytes = 32 << 20

// Server routes HTTP requests to the document pipeline and chat service.
type Server struct {
	pipeline       *ingestion.Pipeline
	chatService    *chat.Service
	coordinator    *storage.Coordinator
	allowedOrigins []string
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithAllowedOrigins sets the origins permitted by the CORS middleware.
// Default allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) error {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewServer creates an HTTP server over the given components.
func NewServer(
	pipeline *ingestion.Pipeline,
	chatService *chat.Service,
	coordinator *storage.Coordinator,
	opts ...Option,
) (*Server, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if chatService == nil {
		return nil, ErrChatServiceRequired
	}
	if coordinator == nil {
		return nil, ErrCoordinatorRequired
	}

	s := &Server{
		pipeline:       pipeline,
		chatService:    chatService,
		coordinator:    coordinator,
		allowedOrigins: []string{"*"},
		logger:         slog.Default().With("component", "http-server"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Handler returns the fully routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /documents/upload", s.handleUpload)
	mux.HandleFunc("GET /documents/{id}/status", s.handleStatus)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDelete)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.cors(mux)
}

// cors applies permissive CORS headers and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
