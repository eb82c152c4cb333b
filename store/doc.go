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


// Package store provides the vector-store abstraction layer for indexit.
//
// This package defines the VectorStore interface that decouples segment
// persistence and similarity search from the ingestion and search logic.
// Two backends are provided:
//
//   - store/memory: the reference in-memory store, suitable for tests and
//     for deployments that rebuild the index at startup
//   - store/badger: a BadgerDB-backed store that persists segments across
//     restarts, serialized with mus-go
//
// All public constructors return the VectorStore interface to enforce
// abstraction and keep backends swappable.
//
// # Thread Safety
//
// All store implementations must be thread-safe and support concurrent
// access from bulk ingestion, debounced re-indexing and search.
package store
