// Package dependency implements the resolver of SPEC_FULL.md §B.2
// (spec.md §4.2): topological orderings of "dependencies of X" and
// "dependents of X" over a possibly-dynamic graph, with cycle detection.
//
// It adapts the Node/DependsOn shape of muster's internal/dependency/graph.go
// but replaces the static DependsOn field with a NeedsFunc callback, since
// a spec's needs here are computed on demand (spec.md §3, "Dynamic
// needs") rather than stored on a static node, and adds the topological
// sort and three-color cycle detection muster's graph intentionally
// omitted ("the static graph we build is small and carefully curated" —
// this module's graph is neither).
package dependency
