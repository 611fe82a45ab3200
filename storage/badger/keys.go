package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/switchwise/newspulse/core"
)

// Key prefixes for different data types.
// articleDatePrefix must share the articlePrefix so the similarity scan can
// walk one key space and skip index entries.
const (
	articlePrefix     = "artrec"
	articleDatePrefix = "artrecd"
)

// makeArticleKey generates a key for an article by ID.
func makeArticleKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", articlePrefix, id))
}

// makeArticleDateKey generates a composite key for the publication date index.
// Format: prefix:timestamp:id
func makeArticleDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := articleDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialArticleDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialArticleDateKey(timestamp time.Time) []byte {
	prefix := articleDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for timestamp
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeCheckpointKey generates a key for processor checkpoints.
func makeCheckpointKey(processorType string) []byte {
	return []byte(fmt.Sprintf("%s:chkpt", processorType))
}
