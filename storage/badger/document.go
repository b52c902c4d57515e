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

package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(docIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// nextID allocates a document ID, skipping 0.
func (r *DocumentRepository) nextID() (core.DocumentID, error) {
	nextID, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if nextID == 0 {
		nextID, err = r.idSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	if nextID > uint64(^uint32(0)) {
		return 0, fmt.Errorf("document id space exhausted")
	}
	return core.DocumentID(nextID), nil
}

// PutDocument stores a document and its contents, keyed by path.
func (r *DocumentRepository) PutDocument(ctx context.Context, doc *core.Document, contents []byte) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	stored := *doc
	stored.Digest = core.ContentDigest(contents)
	stored.Size = int64(len(contents))

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := r.readByPath(tx, doc.Path)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		now := time.Now().UTC()
		if existing != nil {
			stored.ID = existing.ID
			stored.IndexedAt = existing.IndexedAt
			stored.UpdatedAt = existing.UpdatedAt
			if existing.Digest != stored.Digest {
				stored.UpdatedAt = now
			}
		} else {
			id, err := r.nextID()
			if err != nil {
				return err
			}
			stored.ID = id
			stored.IndexedAt = now
			stored.UpdatedAt = now
		}

		if err := tx.Set(makeDocumentKey(stored.ID), storage.MarshalDocument(&stored)); err != nil {
			return err
		}
		if err := tx.Set(makeDocumentPathKey(stored.Path), storage.MarshalDocumentID(stored.ID)); err != nil {
			return err
		}
		if err := tx.Set(makeDocumentBodyKey(stored.ID), contents); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// DeleteDocument removes a document, its path entry and its contents.
func (r *DocumentRepository) DeleteDocument(ctx context.Context, id core.DocumentID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := r.readDocument(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentPathKey(doc.Path)); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentBodyKey(id)); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.DocumentID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readDocument(tx, id)
		return err
	}, false)
	return result, err
}

// GetDocuments retrieves multiple documents by their IDs.
// Missing documents are skipped.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...core.DocumentID) ([]*core.Document, error) {
	results := make([]*core.Document, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := r.readDocument(tx, id)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			results = append(results, doc)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// FindByPath retrieves a document by its path.
func (r *DocumentRepository) FindByPath(ctx context.Context, path string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readByPath(tx, path)
		return err
	}, false)
	return result, err
}

// ReadContents returns the stored contents of a document.
func (r *DocumentRepository) ReadContents(ctx context.Context, id core.DocumentID) ([]byte, error) {
	var contents []byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentBodyKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		contents, err = item.ValueCopy(nil)
		return err
	}, false)
	return contents, err
}

// ForEachDocument calls fn for every document in ID order.
func (r *DocumentRepository) ForEachDocument(ctx context.Context, fn func(*core.Document) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		return forEachKey(tx, []byte(docRecordPrefix), func(_, val []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := storage.UnmarshalDocument(val)
			if err != nil {
				return err
			}
			return fn(doc)
		})
	}, false)
}

// CountDocuments returns the number of stored documents.
func (r *DocumentRepository) CountDocuments(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(docRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// readDocument reads a document record within a transaction.
func (r *DocumentRepository) readDocument(tx *badger.Txn, id core.DocumentID) (*core.Document, error) {
	item, err := tx.Get(makeDocumentKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}

// readByPath resolves a path through the path index.
func (r *DocumentRepository) readByPath(tx *badger.Txn, path string) (*core.Document, error) {
	item, err := tx.Get(makeDocumentPathKey(path))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var id core.DocumentID
	err = item.Value(func(val []byte) error {
		var err error
		id, err = storage.UnmarshalDocumentID(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.readDocument(tx, id)
}
