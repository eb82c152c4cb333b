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

import "errors"

// Domain error taxonomy. Compile- and configuration-time errors
// (ErrSpecSyntax, ErrConfig, ErrUnknownStrategy) fail source setup fast.
// Per-file errors (ErrRead, ErrParse, ErrValidation, ErrAnalysis) are
// recorded and never abort the rest of a batch.
var (
	// ErrSpecSyntax indicates a malformed path specification.
	ErrSpecSyntax = errors.New("invalid path spec")

	// ErrConfig indicates invalid strategy options.
	ErrConfig = errors.New("invalid strategy options")

	// ErrUnknownStrategy indicates an unregistered strategy tag.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrRead indicates a matched file could not be read.
	ErrRead = errors.New("file read failed")

	// ErrParse indicates a strategy could not parse file content.
	ErrParse = errors.New("content parse failed")

	// ErrValidation indicates a strategy produced a malformed segment descriptor.
	ErrValidation = errors.New("invalid segment descriptor")

	// ErrAnalysis indicates the static analysis collaborator failed.
	ErrAnalysis = errors.New("static analysis failed")
)

// Failure kinds recorded per file, matching the per-file error taxonomy.
const (
	FailureKindRead       = "read"
	FailureKindParse      = "parse"
	FailureKindValidation = "validation"
	FailureKindAnalysis   = "analysis"
	FailureKindUnknown    = "unknown"
)

// FailureKind classifies a per-file ingestion error for failure records.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrRead):
		return FailureKindRead
	case errors.Is(err, ErrParse):
		return FailureKindParse
	case errors.Is(err, ErrValidation):
		return FailureKindValidation
	case errors.Is(err, ErrAnalysis):
		return FailureKindAnalysis
	default:
		return FailureKindUnknown
	}
}
