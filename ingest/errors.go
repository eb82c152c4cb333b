package ingest

import "errors"

var (
	// ErrRegistryRequired is returned when a strategy registry is not provided.
	ErrRegistryRequired = errors.New("strategy registry required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIngestorRequired is returned when an ingestor is not provided.
	ErrIngestorRequired = errors.New("ingestor required")

	// ErrDebouncerRequired is returned when a debouncer is not provided.
	ErrDebouncerRequired = errors.New("debouncer required")
)
