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


package core

import "fmt"

// ValidateDescriptor validates a SegmentDescriptor before it is persisted.
//
// Validation rules:
//   - FileID and SegmentID must not be empty
//   - EmbedText and Content must not be empty
//   - Metadata must carry file_id, segment_id and doc_id
//
// Violations return ErrValidation regardless of which strategy produced
// the descriptor; a malformed descriptor is never silently persisted.
func ValidateDescriptor(d *SegmentDescriptor) error {
	if d == nil {
		return fmt.Errorf("%w: descriptor is nil", ErrValidation)
	}

	if d.FileID == "" {
		return fmt.Errorf("%w: file id is empty", ErrValidation)
	}
	if d.SegmentID == "" {
		return fmt.Errorf("%w: segment id is empty", ErrValidation)
	}
	if d.EmbedText == "" {
		return fmt.Errorf("%w: embed text is empty", ErrValidation)
	}
	if d.Content == "" {
		return fmt.Errorf("%w: content is empty", ErrValidation)
	}

	for _, key := range []string{MetaFileID, MetaSegmentID, MetaDocID} {
		if d.Metadata[key] == "" {
			return fmt.Errorf("%w: metadata missing %s", ErrValidation, key)
		}
	}

	return nil
}

// StampMetadata fills in the metadata keys every descriptor must carry.
// Existing values for other keys are preserved.
func StampMetadata(d *SegmentDescriptor) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]string, 3)
	}
	d.Metadata[MetaFileID] = d.FileID
	d.Metadata[MetaSegmentID] = d.SegmentID
	d.Metadata[MetaDocID] = d.FileID
}
