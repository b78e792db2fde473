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


// Package extract provides a local ai.TextExtractor that converts raw
// document bytes into plain text. The format is sniffed from the content
// itself; plain text, HTML, and PDF are supported.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/ragserve/ai"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// Extractor implements ai.TextExtractor by dispatching on the sniffed
// MIME type of the content.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// NewExtractor creates a text extractor.
//
// Returns ai.TextExtractor interface to enforce abstraction.
func NewExtractor(opts ...Option) ai.TextExtractor {
	e := &Extractor{
		logger: slog.Default().With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractText converts document content into plain text. Extracted
// sections are joined with blank lines.
func (e *Extractor) ExtractText(ctx context.Context, content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty document content")
	}

	mediaType := sniffMediaType(content)
	e.logger.Debug("extracting text", "media_type", mediaType, "bytes", len(content))

	var (
		docs []schema.Document
		err  error
	)
	switch {
	case mediaType == "text/html":
		loader := documentloaders.NewHTML(bytes.NewReader(content))
		docs, err = loader.Load(ctx)
	case mediaType == "application/pdf":
		loader := documentloaders.NewPDF(bytes.NewReader(content), int64(len(content)))
		docs, err = loader.Load(ctx)
	case strings.HasPrefix(mediaType, "text/"):
		loader := documentloaders.NewText(bytes.NewReader(content))
		docs, err = loader.Load(ctx)
	default:
		// DetectContentType falls back to application/octet-stream for
		// anything it cannot classify. Valid UTF-8 is still treated as text.
		if utf8.Valid(content) {
			loader := documentloaders.NewText(bytes.NewReader(content))
			docs, err = loader.Load(ctx)
			break
		}
		return "", fmt.Errorf("unsupported document type %q", mediaType)
	}
	if err != nil {
		return "", fmt.Errorf("loading %s content: %w", mediaType, err)
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.PageContent == "" {
			continue
		}
		parts = append(parts, doc.PageContent)
	}
	return strings.Join(parts, "\n\n"), nil
}

// sniffMediaType detects the content's media type, without parameters.
func sniffMediaType(content []byte) string {
	detected := http.DetectContentType(content)
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return detected
	}
	return mediaType
}
