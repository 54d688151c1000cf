package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/civiclens/bioindex/core"
)

// Key prefixes for different data types
const (
	recordPrefix   = "embrec"
	docIndexPrefix = "embrecd"
)

// makeRecordKey generates a key for an embedding record by chunk ID.
func makeRecordKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", recordPrefix, id))
}

// makeDocIndexKey generates a composite key for the document index.
// Format: prefix:documentID:id
func makeDocIndexKey(documentID string, id core.ID) []byte {
	prefix := docIndexPrefix + ":" + documentID + ":"
	prefixBytes := []byte(prefix)
	totalSize := len(prefixBytes) + 8 // 8 bytes for the chunk ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDocIndexKey generates a partial key for per-document scans.
// Format: prefix:documentID:
func makePartialDocIndexKey(documentID string) []byte {
	return []byte(docIndexPrefix + ":" + documentID + ":")
}

// chunkIDFromDocIndexKey extracts the chunk ID from a document index key.
func chunkIDFromDocIndexKey(key []byte) (core.ID, error) {
	if len(key) < 8 {
		return 0, fmt.Errorf("document index key too short: %d bytes", len(key))
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:])), nil
}
