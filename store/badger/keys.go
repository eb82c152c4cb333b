package badger

import (
	"fmt"

	"github.com/poiesic/indexit/core"
)

// Key prefixes for different data types
const (
	segmentRecordPrefix = "segrec"
	segmentDocPrefix    = "segdoc"
)

// makeSegmentRecordKey generates a key for a segment record by ID.
func makeSegmentRecordKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", segmentRecordPrefix, id))
}

// makeSegmentDocKey generates a composite key for the doc index.
// Format: prefix:docKey:id
func makeSegmentDocKey(docKey string, id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%s:%d", segmentDocPrefix, docKey, id))
}

// makePartialSegmentDocKey generates a prefix for scanning all segments of
// one document.
func makePartialSegmentDocKey(docKey string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", segmentDocPrefix, docKey))
}
