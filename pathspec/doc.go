// Package pathspec compiles path specifications into filesystem matchers.
//
// A path spec is a string describing a family of files using three token
// classes:
//   - literals, matched verbatim
//   - globs: "*" matches within one path level, "**" matches across levels
//   - named captures: "(?<name>regex)", whose matched text becomes metadata
//
// Compile parses a spec into an ordered token sequence; CompileSpec
// additionally binds a processing strategy, strategy options and base
// metadata, producing an immutable CompiledSpec used for matching and as
// the subscription root for filesystem watching.
package pathspec
