package badger

import (
	"encoding/binary"

	"github.com/poiesic/refscan/core"
)

// Key prefixes for different data types
const (
	docRecordPrefix   = "docrec:"
	docPathPrefix     = "docpath:"
	docBodyPrefix     = "docbody:"
	docPostingsPrefix = "docpost:"
	postingPrefix     = "wpost:"
	docIDSeq          = "docidseq"
)

// makeDocumentKey generates a key for a document record by ID.
// Format: prefix + big endian ID, so iteration follows ID order.
func makeDocumentKey(id core.DocumentID) []byte {
	return appendID([]byte(docRecordPrefix), id)
}

// makeDocumentPathKey generates a key for the path index.
// Format: prefix + path
func makeDocumentPathKey(path string) []byte {
	return []byte(docPathPrefix + path)
}

// makeDocumentBodyKey generates a key for document contents.
func makeDocumentBodyKey(id core.DocumentID) []byte {
	return appendID([]byte(docBodyPrefix), id)
}

// makeDocumentPostingsKey generates a key for the per-document posting list.
func makeDocumentPostingsKey(id core.DocumentID) []byte {
	return appendID([]byte(docPostingsPrefix), id)
}

// makePostingKey generates the key of one posting bitmap.
// Format: prefix + (s|i) + context bit + ":" + word
func makePostingKey(key core.WordKey, bit core.SearchContext) []byte {
	mode := byte('i')
	if key.CaseSensitive {
		mode = 's'
	}
	buf := make([]byte, 0, len(postingPrefix)+3+len(key.Word))
	buf = append(buf, postingPrefix...)
	buf = append(buf, mode, '0'+byte(bit), ':')
	buf = append(buf, key.Word...)
	return buf
}

func appendID(prefix []byte, id core.DocumentID) []byte {
	// Write in BigEndian order so lexicographic sort works correctly
	return binary.BigEndian.AppendUint32(prefix, uint32(id))
}

// idFromKey decodes the ID suffix of a key built with appendID.
func idFromKey(key []byte) core.DocumentID {
	if len(key) < 4 {
		return 0
	}
	return core.DocumentID(binary.BigEndian.Uint32(key[len(key)-4:]))
}
