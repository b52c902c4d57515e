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

// Package matcher implements exact substring matching with identifier
// boundary and case folding semantics.
//
// A Matcher is compiled once per (pattern, options) pair and shared across
// every document scanned for that pattern. Matches are produced lazily as an
// iter.Seq and each match reports whether it respects identifier boundaries,
// leaving the caller to decide whether unbounded matches are acceptable in
// the surrounding context (they are inside string literals).
package matcher
