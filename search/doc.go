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


// Package search provides the read surface over the index.
//
// The Searcher embeds a query and delegates similarity ranking to the
// vector store, optionally restricted by an equality filter on segment
// metadata. The discovered metadata values drive an enumerated filter
// schema, and ingestion statistics are exposed as one snapshot.
package search
