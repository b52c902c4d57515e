package reindex

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempt.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrWordIndexRequired is returned when a word index is not provided.
	ErrWordIndexRequired = errors.New("word index required")

	// ErrIndexerRequired is returned when an indexer is not provided.
	ErrIndexerRequired = errors.New("indexer required")
)
