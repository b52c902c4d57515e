// Package core defines the domain types shared by the indexer and the search
// engine: documents, search contexts, word keys, elements and occurrences.
package core
