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
	"errors"
	"fmt"
)

// ChunkConfig controls how extracted text is split into chunks.
type ChunkConfig struct {
	// ChunkSize is the target chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters shared between adjacent
	// chunks.
	ChunkOverlap int

	// MinChunkSize is the minimum trimmed length a chunk must have to be
	// kept. Documents at or below this size bypass splitting entirely.
	MinChunkSize int
}

// DefaultChunkConfig returns the standard chunking parameters.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:    512,
		ChunkOverlap: 50,
		MinChunkSize: 100,
	}
}

// Validate checks the configuration for consistency.
func (c ChunkConfig) Validate() error {
	var errs []error
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 {
		errs = append(errs, fmt.Errorf("chunk overlap must be non-negative, got %d", c.ChunkOverlap))
	}
	if c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.ChunkOverlap, c.ChunkSize))
	}
	if c.MinChunkSize < 0 {
		errs = append(errs, fmt.Errorf("minimum chunk size must be non-negative, got %d", c.MinChunkSize))
	}
	return errors.Join(errs...)
}
