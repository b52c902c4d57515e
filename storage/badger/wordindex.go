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
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/refscan/core"
	"github.com/poiesic/refscan/storage"
)

// postingsPerTxn bounds the number of posting updates written in a single
// transaction so that large documents stay below badger's txn size limit.
const postingsPerTxn = 512

// WordIndex implements storage.WordIndexWriter on top of BadgerDB.
// Every (key, context bit) pair maps to a roaring bitmap of document IDs.
type WordIndex struct {
	backend *Backend
	logger  *slog.Logger

	// writeMu serializes bitmap read-modify-write cycles.
	writeMu sync.Mutex

	stateMu  sync.Mutex
	updating int
	readyCh  chan struct{} // closed while no update is in progress
}

var _ storage.WordIndexWriter = (*WordIndex)(nil)

// NewWordIndex creates a word index stored in backend.
func NewWordIndex(backend *Backend) *WordIndex {
	readyCh := make(chan struct{})
	close(readyCh)
	return &WordIndex{
		backend: backend,
		logger:  backend.logger.With("component", "word-index"),
		readyCh: readyCh,
	}
}

// BeginUpdate marks the index as not ready. Calls nest.
func (w *WordIndex) BeginUpdate() {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if w.updating == 0 {
		w.readyCh = make(chan struct{})
	}
	w.updating++
}

// EndUpdate ends the innermost update. The index becomes ready when the
// outermost update ends.
func (w *WordIndex) EndUpdate() {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	if w.updating == 0 {
		w.logger.Warn("EndUpdate called without matching BeginUpdate")
		return
	}
	w.updating--
	if w.updating == 0 {
		close(w.readyCh)
	}
}

// Ready reports whether no update is in progress.
func (w *WordIndex) Ready() bool {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.updating == 0
}

// WaitReady blocks until the index is ready or ctx is done.
func (w *WordIndex) WaitReady(ctx context.Context) error {
	w.stateMu.Lock()
	ch := w.readyCh
	w.stateMu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lookup returns the documents that contain every key in at least one of
// the contexts in filter. Each document maps to the union of the filtered
// contexts its keys occur in.
func (w *WordIndex) Lookup(ctx context.Context, keys []core.WordKey, filter core.SearchContext) (map[core.DocumentID]core.SearchContext, error) {
	if len(keys) == 0 {
		return nil, storage.ErrEmptyKeys
	}
	if !w.Ready() {
		return nil, storage.ErrIndexNotReady
	}
	bits := filter.Bits()
	if len(bits) == 0 {
		return map[core.DocumentID]core.SearchContext{}, nil
	}

	var (
		matched *roaring.Bitmap
		perBit  = make(map[core.SearchContext]*roaring.Bitmap, len(bits))
	)
	err := w.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				return err
			}
			keyBitmaps := make([]*roaring.Bitmap, 0, len(bits))
			for _, bit := range bits {
				bm, err := readBitmap(tx, makePostingKey(key, bit))
				if err != nil {
					return err
				}
				if bm == nil {
					continue
				}
				keyBitmaps = append(keyBitmaps, bm)
				if acc, ok := perBit[bit]; ok {
					acc.Or(bm)
				} else {
					perBit[bit] = bm.Clone()
				}
			}
			union := roaring.FastOr(keyBitmaps...)
			if matched == nil {
				matched = union
			} else {
				matched.And(union)
			}
			if matched.IsEmpty() {
				return nil
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	result := make(map[core.DocumentID]core.SearchContext)
	if matched == nil {
		return result, nil
	}
	it := matched.Iterator()
	for it.HasNext() {
		id := it.Next()
		var mask core.SearchContext
		for bit, bm := range perBit {
			if bm.Contains(id) {
				mask |= bit
			}
		}
		result[core.DocumentID(id)] = mask
	}
	return result, nil
}

// IndexDocument replaces the postings of a document.
func (w *WordIndex) IndexDocument(ctx context.Context, id core.DocumentID, postings []storage.Posting) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.removeLocked(ctx, id); err != nil {
		return err
	}
	if err := w.applyLocked(ctx, id, postings, true); err != nil {
		return err
	}
	return w.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeDocumentPostingsKey(id), storage.MarshalPostings(postings)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// RemoveDocument drops every posting of a document. Removing a document
// that was never indexed is not an error.
func (w *WordIndex) RemoveDocument(ctx context.Context, id core.DocumentID) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.removeLocked(ctx, id)
}

// Clear drops every posting.
func (w *WordIndex) Clear(ctx context.Context) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.backend.DropPrefix(postingPrefix, docPostingsPrefix)
}

func (w *WordIndex) removeLocked(ctx context.Context, id core.DocumentID) error {
	var old []storage.Posting
	err := w.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentPostingsKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			old, err = storage.UnmarshalPostings(val)
			return err
		})
	}, false)
	if err != nil || len(old) == 0 {
		return err
	}
	if err := w.applyLocked(ctx, id, old, false); err != nil {
		return err
	}
	return w.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeDocumentPostingsKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// applyLocked adds or removes id from the bitmap of every posting bit.
func (w *WordIndex) applyLocked(ctx context.Context, id core.DocumentID, postings []storage.Posting, add bool) error {
	type update struct {
		key core.WordKey
		bit core.SearchContext
	}
	updates := make([]update, 0, len(postings))
	for _, p := range postings {
		for _, bit := range p.Context.Bits() {
			updates = append(updates, update{key: p.Key, bit: bit})
		}
	}

	for start := 0; start < len(updates); start += postingsPerTxn {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+postingsPerTxn, len(updates))
		chunk := updates[start:end]
		err := w.backend.WithTx(func(tx *badger.Txn) error {
			for _, u := range chunk {
				key := makePostingKey(u.key, u.bit)
				bm, err := readBitmap(tx, key)
				if err != nil {
					return err
				}
				if bm == nil {
					if !add {
						continue
					}
					bm = roaring.New()
				}
				if add {
					bm.Add(uint32(id))
				} else {
					bm.Remove(uint32(id))
				}
				if bm.IsEmpty() {
					if err := tx.Delete(key); err != nil {
						return err
					}
					continue
				}
				data, err := bm.ToBytes()
				if err != nil {
					return err
				}
				if err := tx.Set(key, data); err != nil {
					return err
				}
			}
			return tx.Commit()
		}, true)
		if err != nil {
			w.logger.Error("failed to update postings", "document", id, "err", err)
			return err
		}
	}
	return nil
}

// readBitmap loads a bitmap, returning nil when the key is absent.
func readBitmap(tx *badger.Txn, key []byte) (*roaring.Bitmap, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	bm := roaring.New()
	err = item.Value(func(val []byte) error {
		return bm.UnmarshalBinary(val)
	})
	if err != nil {
		return nil, err
	}
	return bm, nil
}
