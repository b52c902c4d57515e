package syntax

import "errors"

var (
	// ErrUnreadable indicates a document could not be read or parsed.
	ErrUnreadable = errors.New("document unreadable")

	// ErrStoreRequired is returned when a content store is not provided.
	ErrStoreRequired = errors.New("content store required")

	// ErrParserRequired is returned when a parser is not provided.
	ErrParserRequired = errors.New("parser required")
)
