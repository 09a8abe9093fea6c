// Package spec implements the normalizer of SPEC_FULL.md §B.1 (spec.md
// §4.1): it canonicalizes the three input shapes a caller may hand the
// coordinator — a bare identifier, an (identifier, arg) pair, or a
// pre-built structural spec — into a single comparable Spec value, with
// defaults filled in so that two inputs describing the same start produce
// equal Specs.
package spec
