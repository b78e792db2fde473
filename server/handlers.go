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
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/poiesic/ragserve/chat"
	"github.com/poiesic/ragserve/core"
	"github.com/poiesic/ragserve/ingestion"
	"github.com/poiesic/ragserve/search"
	"github.com/poiesic/ragserve/storage"
)

type chatRequest struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	Response string   `json:"response"`
	Sources  []string `json:"sources"`
}

type uploadResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.chatService.GetResponse(r.Context(), req.Content, req.ConversationID)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyQuestion), errors.Is(err, search.ErrEmptyQuery):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("chat request failed", "conversation_id", req.ConversationID, "err", err)
			s.writeError(w, http.StatusInternalServerError, "failed to generate response")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{
		Response: resp.Answer,
		Sources:  uniqueSources(resp.Chunks),
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file field required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	docID, err := s.pipeline.ProcessAsync(r.Context(), content, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, ingestion.ErrEmptyFilename), errors.Is(err, ingestion.ErrEmptyContent):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("upload failed", "filename", header.Filename, "err", err)
			s.writeError(w, http.StatusInternalServerError, "failed to store document")
		}
		return
	}

	s.writeJSON(w, http.StatusAccepted, uploadResponse{
		Status:     "processing",
		Message:    "document accepted for processing",
		DocumentID: docID.String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	docID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	status, err := s.coordinator.DocumentStatus(r.Context(), docID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, statusResponse{Status: "not_found"})
			return
		}
		s.logger.Error("status lookup failed", "doc_id", docID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to look up document")
		return
	}

	s.writeJSON(w, http.StatusOK, statusResponse{Status: string(status)})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	docID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if _, err := s.coordinator.DeleteDocument(r.Context(), docID); err != nil {
		s.logger.Error("delete failed", "doc_id", docID, "err", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	s.writeJSON(w, http.StatusOK, statusResponse{Status: "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("error encoding response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorResponse{Detail: detail})
}

// uniqueSources returns the distinct document ids behind the retrieved
// chunks, in first-seen order.
func uniqueSources(chunks []core.RetrievedChunk) []string {
	seen := make(map[string]bool)
	sources := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		id := chunk.DocumentID.String()
		if !seen[id] {
			seen[id] = true
			sources = append(sources, id)
		}
	}
	return sources
}
