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


package store

import (
	"github.com/poiesic/indexit/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalSegmentRecord serializes a SegmentRecord to bytes.
func MarshalSegmentRecord(record *core.SegmentRecord) []byte {
	buf := make([]byte, core.SegmentRecordMUS.Size(*record))
	core.SegmentRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalSegmentRecord deserializes a SegmentRecord from bytes.
func UnmarshalSegmentRecord(data []byte) (*core.SegmentRecord, error) {
	record, _, err := core.SegmentRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
