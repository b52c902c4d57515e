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

// Package search finds every occurrence of words across an indexed corpus.
//
// Callers register SearchRequests on a Collector and hand it to a Searcher.
// A search runs in phases:
//   - Requests that differ only in their handlers are merged and scanned once
//   - The word index narrows each word to candidate documents, with documents
//     that also mention a container name scheduled first
//   - Candidates are scanned on a bounded worker pool and every occurrence in
//     the requested contexts is delivered to the handlers
//
// Expansions and handlers may register further requests while a search runs.
// The search ends once nothing is pending. Handlers stop their request by
// returning false.
package search
