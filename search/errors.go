package search

import "errors"

var (
	// ErrCoordinatorRequired is returned when a storage coordinator is not provided.
	ErrCoordinatorRequired = errors.New("storage coordinator required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyQuery is returned when the query contains no text.
	ErrEmptyQuery = errors.New("query required")
)
