package reindex

import (
	"context"

	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
)

const (
	// DefaultBatchSize is the default number of documents to fetch in each batch
	DefaultBatchSize = 100
)

// DocumentIterator iterates over all stored documents in batches.
type DocumentIterator struct {
	repo      storage.DocumentRepository
	batchSize int
}

// NewDocumentIterator creates a new document iterator.
// batchSize: number of documents to fetch in each batch (must be > 0)
func NewDocumentIterator(repo storage.DocumentRepository, batchSize int) *DocumentIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &DocumentIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn for each batch of documents, in ID order.
// The ID list is snapshotted up front and documents are loaded per batch,
// so fn may modify the repository. Documents deleted in the meantime are
// left out of their batch. Iteration stops on the first error from fn.
func (it *DocumentIterator) ForEach(ctx context.Context, fn func([]*core.Document) error) error {
	var ids []core.DocumentID
	err := it.repo.ForEachDocument(ctx, func(doc *core.Document) error {
		ids = append(ids, doc.ID)
		return nil
	})
	if err != nil {
		return err
	}

	for start := 0; start < len(ids); start += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+it.batchSize, len(ids))
		batch, err := it.repo.GetDocuments(ctx, ids[start:end]...)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			continue
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}
