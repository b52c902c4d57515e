// Package words splits text into identifier-like words.
//
// The same splitting rules are used when building the word index and when
// turning a search word into index keys, so that every key a query produces
// can be found in the index for a document containing that word.
package words
