package config

import "errors"

var (
	// ErrInvalidConfig is returned by Validate for out-of-range settings.
	ErrInvalidConfig = errors.New("invalid config")
)
