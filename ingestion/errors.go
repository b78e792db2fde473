package ingestion

import "errors"

var (
	// ErrCoordinatorRequired is returned when a storage coordinator is not provided.
	ErrCoordinatorRequired = errors.New("storage coordinator required")

	// ErrExtractorRequired is returned when a text extractor is not provided.
	ErrExtractorRequired = errors.New("text extractor required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmptyFilename is returned when an upload has no filename.
	ErrEmptyFilename = errors.New("filename required")

	// ErrEmptyContent is returned when an upload has no content.
	ErrEmptyContent = errors.New("content required")

	// ErrNoText is returned when extraction yields no usable text.
	ErrNoText = errors.New("document contains no text")

	// ErrNoValidChunks is returned when every chunk produced by splitting
	// falls below the minimum chunk size.
	ErrNoValidChunks = errors.New("no valid chunks created")
)
