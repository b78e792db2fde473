package chat

import "errors"

var (
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrGeneratorRequired is returned when a generator is not provided.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrConversationStoreRequired is returned when a conversation store is not provided.
	ErrConversationStoreRequired = errors.New("conversation store required")

	// ErrEmptyQuestion is returned when the question contains no text.
	ErrEmptyQuestion = errors.New("question required")
)
