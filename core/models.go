package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Metadata keys every segment descriptor carries.
const (
	MetaFileID    = "file_id"
	MetaSegmentID = "segment_id"
	MetaDocID     = "doc_id"
)

// ID is a unique identifier for stored segment records.
// It is derived from segment keys using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text using BLAKE2b hashing.
// Identical input produces identical IDs, so re-indexing a file replaces
// its previous records instead of duplicating them.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// MatchedFile is a filesystem path that matched a compiled path spec.
type MatchedFile struct {
	Path     string
	Captures map[string]string // Named capture values extracted from the path
	Metadata map[string]string // Spec base metadata merged with captures
}

// SegmentDescriptor is the normalized unit produced by a processing strategy:
// text to embed, content to store, and the metadata attached to both.
// Metadata always carries file_id, segment_id and doc_id (= file_id).
type SegmentDescriptor struct {
	FileID    string
	SegmentID string
	EmbedText string
	Content   string
	Metadata  map[string]string
}

// SegmentKey returns the segment identifier for a multi-segment strategy,
// formed as fileID + "#" + index. Single-segment strategies use the file
// ID itself.
func SegmentKey(fileID string, index int) string {
	return fileID + "#" + strconv.Itoa(index)
}

// SegmentRecord is a persisted segment: the descriptor content plus its
// embedding vector and storage timestamps.
type SegmentRecord struct {
	Id         ID
	SegmentKey string
	DocKey     string // File ID shared by all segments of one file
	Content    string
	Metadata   map[string]string
	Vector     []float32
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// SourceStats holds ingestion counters for a single configured source.
type SourceStats struct {
	FilesMatched    int
	FilesProcessed  int
	SegmentsCreated int
	Errors          int
	LastRunAt       time.Time
}

// GlobalStats aggregates ingestion counters across all sources.
type GlobalStats struct {
	TotalDocuments  int
	TotalSegments   int
	TotalErrors     int
	LastIngestionAt time.Time
}

// FailureRecord describes one per-file ingestion failure. Records are held
// in a bounded FIFO; only the detail is evicted, counters stay exact.
type FailureRecord struct {
	FilePath   string
	Kind       string
	Message    string
	SourcePath string
	Timestamp  time.Time
}

// SearchResult is a stored segment returned from a similarity search.
type SearchResult struct {
	Record *SegmentRecord
	Score  float32
}
