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

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/refscan/core"
)

// DocumentIDMUS serializes document IDs as varints.
var DocumentIDMUS = documentIDSer{}

// DocumentMUS serializes catalog entries. Timestamps are stored as Unix
// microseconds in UTC.
var DocumentMUS = documentSer{}

// PostingsMUS serializes the posting list kept per document so that its
// index entries can be removed when the document changes.
var PostingsMUS = postingsSer{}

var (
	_ mus.Serializer[core.DocumentID] = DocumentIDMUS
	_ mus.Serializer[core.Document]   = DocumentMUS
	_ mus.Serializer[[]Posting]       = PostingsMUS
)

type documentIDSer struct{}

func (documentIDSer) Marshal(v core.DocumentID, bs []byte) (n int) {
	return varint.Uint32.Marshal(uint32(v), bs)
}

func (documentIDSer) Unmarshal(bs []byte) (v core.DocumentID, n int, err error) {
	id, n, err := varint.Uint32.Unmarshal(bs)
	return core.DocumentID(id), n, err
}

func (documentIDSer) Size(v core.DocumentID) (size int) {
	return varint.Uint32.Size(uint32(v))
}

func (documentIDSer) Skip(bs []byte) (n int, err error) {
	return varint.Uint32.Skip(bs)
}

type documentSer struct{}

func (documentSer) Marshal(v core.Document, bs []byte) (n int) {
	n = DocumentIDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Path, bs[n:])
	n += ord.String.Marshal(v.Language, bs[n:])
	n += varint.Uint64.Marshal(v.Digest, bs[n:])
	n += varint.Int64.Marshal(v.Size, bs[n:])
	n += varint.Int64.Marshal(toMicros(v.IndexedAt), bs[n:])
	n += varint.Int64.Marshal(toMicros(v.UpdatedAt), bs[n:])
	return n
}

func (documentSer) Unmarshal(bs []byte) (v core.Document, n int, err error) {
	var n1 int
	v.ID, n, err = DocumentIDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Path, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Language, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Digest, n1, err = varint.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Size, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.IndexedAt = fromMicros(micros)
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt = fromMicros(micros)
	return
}

func (documentSer) Size(v core.Document) (size int) {
	size = DocumentIDMUS.Size(v.ID)
	size += ord.String.Size(v.Path)
	size += ord.String.Size(v.Language)
	size += varint.Uint64.Size(v.Digest)
	size += varint.Int64.Size(v.Size)
	size += varint.Int64.Size(toMicros(v.IndexedAt))
	size += varint.Int64.Size(toMicros(v.UpdatedAt))
	return size
}

func (s documentSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

// caseSensitiveFlag is or-ed into the packed context of a posting.
const caseSensitiveFlag = 1 << 8

type postingsSer struct{}

func packPosting(p Posting) uint32 {
	packed := uint32(p.Context)
	if p.Key.CaseSensitive {
		packed |= caseSensitiveFlag
	}
	return packed
}

func (postingsSer) Marshal(v []Posting, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(len(v)), bs)
	for _, p := range v {
		n += ord.String.Marshal(p.Key.Word, bs[n:])
		n += varint.Uint32.Marshal(packPosting(p), bs[n:])
	}
	return n
}

func (postingsSer) Unmarshal(bs []byte) (v []Posting, n int, err error) {
	length, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	if length > uint64(len(bs)) {
		return nil, n, fmt.Errorf("%w: posting count %d exceeds input", ErrSerializationFailed, length)
	}
	v = make([]Posting, 0, length)
	for i := uint64(0); i < length; i++ {
		var (
			word   string
			packed uint32
			n1     int
		)
		word, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		packed, n1, err = varint.Uint32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v = append(v, Posting{
			Key:     core.WordKey{Word: word, CaseSensitive: packed&caseSensitiveFlag != 0},
			Context: core.SearchContext(packed & 0xff),
		})
	}
	return
}

func (postingsSer) Size(v []Posting) (size int) {
	size = varint.Uint64.Size(uint64(len(v)))
	for _, p := range v {
		size += ord.String.Size(p.Key.Word)
		size += varint.Uint32.Size(packPosting(p))
	}
	return size
}

func (s postingsSer) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

func toMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

func fromMicros(micros int64) time.Time {
	if micros == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}

// MarshalDocumentID serializes a DocumentID to bytes.
func MarshalDocumentID(id core.DocumentID) []byte {
	buf := make([]byte, DocumentIDMUS.Size(id))
	DocumentIDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalDocumentID deserializes a DocumentID from bytes.
func UnmarshalDocumentID(data []byte) (core.DocumentID, error) {
	id, _, err := DocumentIDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return id, nil
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	buf := make([]byte, DocumentMUS.Size(*doc))
	DocumentMUS.Marshal(*doc, buf)
	return buf
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	doc, _, err := DocumentMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &doc, nil
}

// MarshalPostings serializes a posting list to bytes.
func MarshalPostings(postings []Posting) []byte {
	buf := make([]byte, PostingsMUS.Size(postings))
	PostingsMUS.Marshal(postings, buf)
	return buf
}

// UnmarshalPostings deserializes a posting list from bytes.
func UnmarshalPostings(data []byte) ([]Posting, error) {
	postings, _, err := PostingsMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return postings, nil
}
