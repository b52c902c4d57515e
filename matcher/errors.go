package matcher

import "errors"

var (
	// ErrEmptyPattern is returned when compiling an empty pattern.
	ErrEmptyPattern = errors.New("pattern cannot be empty")

	// ErrInvalidPattern is returned when the pattern is not valid UTF-8.
	ErrInvalidPattern = errors.New("pattern is not valid UTF-8")
)
