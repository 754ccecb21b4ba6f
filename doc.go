// Package chunkdiff computes structured diffs for interactive review.
//
// An Engine turns two versions of a text file into an Artifact: the
// opcodes of a minimal edit script, grouped into chunks that carry line
// numbers, intraline highlights, moved blocks and indentation changes.
// Two diffs of the same change, e.g., two revisions of a patch, can be
// compared with Interdiff, which tags each line with where its change
// comes from.
//
// Artifacts are immutable and identified by a fingerprint of their inputs
// and of the options used, so that equal requests can share a cached
// result. Engines are safe for concurrent use.
//
// The algorithms live in the internal packages:
//
//	internal/seq        decoding and splitting input into lines
//	internal/myers      the O(ND) difference algorithm, and a fallback for large inputs
//	internal/opcode     edit scripts, boundary shifting and interdiffs
//	internal/intraline  highlighting changes within replaced lines
//	internal/moves      moved blocks and indentation-only changes
//	internal/chunk      rendering units and their interchange records
//	internal/artifact   assembly, fingerprints and the storage codec
//	internal/cache      single-flight LRU cache with a persistent tier
package chunkdiff
