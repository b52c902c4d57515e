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

// Package syntax provides the document and element service used by the
// indexer and the search engine.
//
// Documents are parsed with tree-sitter grammars registered in a Registry.
// A parsed Document exposes:
//   - a root View covering the whole text
//   - nested Views for fenced code blocks in Markdown-like documents
//   - classification of any offset as code, comment, string literal or plain text
//   - the smallest syntax element enclosing a byte range
//
// Files without a registered grammar are plain text; their elements are lines.
package syntax
