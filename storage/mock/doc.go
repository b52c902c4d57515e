// Package mock provides test double implementations of the storage interfaces.
//
// MockWordIndex and MockCorpus keep everything in memory and let tests
// inject failures through function fields. Both are safe for concurrent use
// since the search engine calls them from worker goroutines.
//
// # Usage in Tests
//
//	corpus := mock.NewMockCorpus()
//	doc, _ := corpus.PutDocument(ctx, &core.Document{Path: "a.go"}, src)
//
//	index := mock.NewMockWordIndex()
//	index.Add(doc.ID, storage.Posting{Key: key, Context: core.ContextCode})
//	index.SetReady(false) // simulate an update in progress
package mock
