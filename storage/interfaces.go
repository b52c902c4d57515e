package storage

import (
	"context"

	"github.com/poiesic/refscan/core"
)

// DocumentRepository stores the corpus: catalog entries and raw contents.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// PutDocument stores doc and its contents, keyed by Path.
	// A new path gets an ID from the sequence; an existing path keeps its ID.
	// Digest and Size are computed from contents. Timestamps are maintained
	// automatically. Returns the stored document.
	PutDocument(ctx context.Context, doc *core.Document, contents []byte) (*core.Document, error)

	// DeleteDocument removes a document and its contents.
	// Returns ErrNotFound if the document doesn't exist.
	DeleteDocument(ctx context.Context, id core.DocumentID) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.DocumentID) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, ids ...core.DocumentID) ([]*core.Document, error)

	// FindByPath retrieves a document by its path.
	// Returns ErrNotFound if no document has that path.
	FindByPath(ctx context.Context, path string) (*core.Document, error)

	// ReadContents returns the stored contents of a document.
	// Returns ErrNotFound if the document doesn't exist.
	ReadContents(ctx context.Context, id core.DocumentID) ([]byte, error)

	// ForEachDocument calls fn for every document in ID order.
	// Iteration stops on the first error returned by fn.
	ForEachDocument(ctx context.Context, fn func(*core.Document) error) error

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// Close releases the ID sequence.
	Close() error
}

// Posting records that a key occurs in a document in the given contexts.
type Posting struct {
	Key     core.WordKey
	Context core.SearchContext
}

// WordIndex answers which documents contain a set of word keys.
type WordIndex interface {
	// Lookup returns the documents containing every key in at least one of
	// the contexts in filter, mapped to the contexts the keys occur in.
	// Returns ErrIndexNotReady while an update is in progress; an empty map
	// means the index is ready and nothing matched.
	Lookup(ctx context.Context, keys []core.WordKey, filter core.SearchContext) (map[core.DocumentID]core.SearchContext, error)

	// Ready reports whether lookups are currently possible.
	Ready() bool

	// WaitReady blocks until the index is ready or ctx is done.
	WaitReady(ctx context.Context) error
}

// WordIndexWriter maintains the word index.
type WordIndexWriter interface {
	WordIndex

	// IndexDocument replaces the postings of a document.
	IndexDocument(ctx context.Context, id core.DocumentID, postings []Posting) error

	// RemoveDocument drops every posting of a document.
	RemoveDocument(ctx context.Context, id core.DocumentID) error

	// Clear drops every posting.
	Clear(ctx context.Context) error

	// BeginUpdate marks the index as not ready until the matching EndUpdate.
	// Updates nest.
	BeginUpdate()

	// EndUpdate ends an update started with BeginUpdate.
	EndUpdate()
}
