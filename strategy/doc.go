// Package strategy turns matched file content into segment descriptors.
//
// A Strategy converts one file into zero or more descriptors ready for
// embedding and storage. Strategies are registered in a Registry under a
// tag; path specs name the tag and supply string options. The registry
// resolves a tag and its options into a configured instance once per
// source, so unknown tags and bad options fail before any file is read.
// Every descriptor a strategy produces passes through central metadata
// stamping and validation before it is returned to the caller.
package strategy
