// Package registry implements the Registry of SPEC_FULL.md §B.3 (spec.md
// §4.3): the spec -> instance handle map and its inverse watch-token ->
// spec index, maintaining invariants R1-R3 of spec.md §3.
//
// It adapts the mutex-guarded map shape of muster's internal/services/
// registry.go (registry{mu sync.RWMutex; services map[string]Service})
// into the two-map shape the coordinator core needs.
package registry
