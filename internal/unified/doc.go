// Package unified renders chunks as text: as a unified diff, in the format
// of diff -u, or as two columns side by side for terminals.
//
// Unified output matches GNU diff given the same opcodes. Since the
// opcodes come from this module's own algorithm (with boundary shifting
// and, optionally, whitespace-insensitive comparison), hunks can differ
// from the system's diff in where a change is placed, but never in what
// the change is. The testgen.go program helps compare the two.
package unified
