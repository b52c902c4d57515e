// Package reindex rebuilds the word index from the stored corpus.
//
// A rebuild clears every posting and reindexes all documents in batches,
// retrying transient failures with exponential backoff and reporting
// progress to a writer. The index stays not-ready for the whole rebuild, so
// concurrent searches wait for it to finish instead of seeing partial
// results.
package reindex
