package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// DocumentID identifies a document in the corpus.
// IDs are allocated from a database sequence; 0 is never a valid ID.
type DocumentID uint32

// ContentDigest returns a 64-bit BLAKE2b digest of the document contents.
// Identical contents always produce identical digests, which lets the
// indexer skip documents that did not change.
func ContentDigest(contents []byte) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(contents)
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// Document is the catalog entry for one unit of source text.
type Document struct {
	ID        DocumentID
	Path      string
	Language  string    // Registered language name, empty for plain text
	Digest    uint64    // ContentDigest of the stored contents
	Size      int64     // Size of the contents in bytes
	IndexedAt time.Time // When the document was first stored
	UpdatedAt time.Time // When the stored contents last changed
}

// WordKey is a normalized index key.
// Word is case-folded when CaseSensitive is false.
type WordKey struct {
	Word          string
	CaseSensitive bool
}

// String renders the key for logs and map signatures.
func (k WordKey) String() string {
	if k.CaseSensitive {
		return k.Word
	}
	return "~" + k.Word
}

// Element addresses a syntax element inside a document by byte range.
// View selects the document view (root or embedded sub-view) the range
// belongs to.
type Element struct {
	Document DocumentID
	View     int
	Kind     string
	Start    int
	End      int
}

// Len returns the length of the element in bytes.
func (e Element) Len() int {
	return e.End - e.Start
}

// Contains reports whether offset lies inside the element.
func (e Element) Contains(offset int) bool {
	return offset >= e.Start && offset < e.End
}

// Occurrence is a located match resolved to its smallest enclosing element.
type Occurrence struct {
	Document        DocumentID
	Path            string
	Offset          int // Byte offset of the match in the document
	Length          int // Byte length of the matched text
	Element         Element
	OffsetInElement int
	Context         SearchContext // Context the match was found in
}

// CostEstimate is a coarse estimate of how many documents a search touches.
type CostEstimate int

const (
	// CostZero means no document can contain the word.
	CostZero CostEstimate = iota
	// CostFew means a handful of documents need scanning.
	CostFew
	// CostTooMany means at least the cost threshold was reached.
	CostTooMany
)

func (c CostEstimate) String() string {
	switch c {
	case CostZero:
		return "zero"
	case CostFew:
		return "few"
	case CostTooMany:
		return "too-many"
	default:
		return "unknown"
	}
}
