// Package indexing feeds source files into the corpus and the word index.
//
// The Pipeline type manages the ingestion workflow, including:
//   - Storing file contents in the document repository
//   - Parsing stored documents and extracting word postings
//   - Updating the word index asynchronously on a worker pool
//
// While postings are being written the index reports itself as not ready,
// so searches wait instead of observing a half-built index. Walk discovers
// files under a directory tree and Watcher follows changes to it.
package indexing
