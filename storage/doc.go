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

// Package storage provides the storage abstraction layer for refscan.
//
// This package defines the repository and index interfaces that decouple the
// search engine from the storage implementation, so that BadgerDB, in-memory
// fakes or a remote index service can be used interchangeably.
//
// # Architecture
//
//   - DocumentRepository: the corpus catalog and raw document contents
//   - WordIndex: read side of the inverted word index (the index gateway)
//   - WordIndexWriter: write side used by the indexer, with readiness tracking
//
// # Usage
//
// Open the BadgerDB implementation:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	docs, err := badger.NewDocumentRepository(backend)
//	index := badger.NewWordIndex(backend)
//
// Use in tests with in-memory storage:
//
//	docs, index, backend, err := badger.NewMemoryStore()
//
// # Readiness
//
// The word index reports ErrIndexNotReady from Lookup while an update is in
// progress. Callers wait with WaitReady, bounded by their own context, and
// must not treat a not-ready index as an empty one.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
package storage
