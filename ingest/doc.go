// Package ingest drives files through the indexing pipeline.
//
// The Ingestor matches each compiled path spec against the filesystem,
// runs the spec's strategy over every matched file, embeds the produced
// segments in batches and persists them to the vector store. A Tracker
// aggregates per-source and global counters, a bounded queue of recent
// failures and the discovered metadata values. The Debouncer coalesces
// bursts of filesystem events into single re-index passes, fed by the
// fsnotify-backed Watcher.
package ingest
