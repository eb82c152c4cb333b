// Package analysis defines the contract for the static-analysis
// collaborator used by the code-analysis ingestion strategy.
//
// The engine that actually parses source code lives outside this module;
// this package describes the element records it produces and the Analyzer
// interface the ingestion pipeline consumes. The analysis/mock subpackage
// provides a configurable test double.
package analysis
