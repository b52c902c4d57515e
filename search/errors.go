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

package search

import (
	"errors"
	"fmt"

	"github.com/poiesic/refscan/core"
)

var (
	// ErrWordIndexRequired is returned when a word index is not provided.
	ErrWordIndexRequired = errors.New("word index required")

	// ErrCatalogRequired is returned when a document catalog is not provided.
	ErrCatalogRequired = errors.New("document catalog required")

	// ErrSourceRequired is returned when a document source is not provided.
	ErrSourceRequired = errors.New("document source required")

	// ErrScopeRequired is returned when a request has no scope.
	ErrScopeRequired = errors.New("search scope required")

	// ErrHandlerRequired is returned when neither the request nor the
	// collector consumer can receive occurrences.
	ErrHandlerRequired = errors.New("result handler required")

	// ErrCancelled is returned when the search observed cancellation.
	// The context error is wrapped alongside it.
	ErrCancelled = errors.New("search cancelled")

	// ErrIndexUnavailable is returned when the word index stayed not ready
	// past the wait timeout. Retrying later may succeed.
	ErrIndexUnavailable = errors.New("word index unavailable")
)

// HandlerError reports a panic raised by a result handler on a worker.
type HandlerError struct {
	Word     string
	Document core.DocumentID
	Path     string
	Value    any
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %q panicked on %s: %v", e.Word, e.Path, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *HandlerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
