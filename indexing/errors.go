package indexing

import "errors"

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrWordIndexRequired is returned when a word index is not provided.
	ErrWordIndexRequired = errors.New("word index required")

	// ErrParserRequired is returned when a parser is not provided.
	ErrParserRequired = errors.New("parser required")

	// ErrPipelineRequired is returned when a watcher is created without a pipeline.
	ErrPipelineRequired = errors.New("pipeline required")
)
