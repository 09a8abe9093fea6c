// Package catalog is the coordinator's static service catalog
// (SPEC_FULL.md §A.3, §B.7): a YAML-described set of named service
// definitions, each optionally declaring needs, loaded the way muster's
// internal/config loads config.yaml (gopkg.in/yaml.v3, defaults-then-
// override), plus an fsnotify-backed watch that reloads it when the file
// changes.
//
// This is the "thin trampoline" spec.md §9 calls for: needs are declared
// per target name independent of any running instance, so the resolver
// can ask "what does target X need" before anything names X has ever been
// spawned. Catalog.NeedsFunc adapts a *Catalog into a
// depcoord/internal/dependency.NeedsFunc.
package catalog
