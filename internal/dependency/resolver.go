package dependency

import (
	"context"
	"errors"
	"fmt"

	"depcoord/internal/coordinatorerrors"
	"depcoord/internal/spec"
)

// IsCyclic reports whether err (or anything it wraps) is a cycle detected
// by Dependencies or Dependents.
func IsCyclic(err error) bool {
	return errors.Is(err, coordinatorerrors.ErrCyclicDependency)
}

// NeedsFunc answers "what does s need?" for a single spec (spec.md §3,
// "Needs declaration"). A nil slice and nil error means no needs. It is
// always called with s already normalized; implementations should
// re-normalize the specs they return (the resolver also does this
// defensively, spec.md §4.2, "re-normalized through the Spec Normalizer").
type NeedsFunc func(ctx context.Context, s spec.Spec) ([]spec.Spec, error)

type mark int

const (
	unseen mark = iota
	visiting
	visited
)

// cyclicError reports the cycle detected during a traversal, wrapping
// coordinatorerrors.ErrCyclicDependency so callers can errors.Is against it.
type cyclicError struct {
	at string
}

func (e *cyclicError) Error() string {
	return fmt.Sprintf("cyclic dependency detected at %q", e.at)
}

func (e *cyclicError) Unwrap() error {
	return coordinatorerrors.ErrCyclicDependency
}

// Dependencies returns every transitive need of root, including root
// itself, ordered so that for every pair (a before b) b has no path to a
// — i.e. children appear before parents, ready to start in that order
// (spec.md §4.2). Cycles in the traversed subgraph return a
// cyclicError wrapping coordinatorerrors.ErrCyclicDependency.
func Dependencies(ctx context.Context, root spec.Spec, needs NeedsFunc) ([]spec.Spec, error) {
	marks := make(map[string]mark)
	var order []spec.Spec

	var visit func(s spec.Spec) error
	visit = func(s spec.Spec) error {
		key := spec.Key(s)
		switch marks[key] {
		case visited:
			return nil
		case visiting:
			return &cyclicError{at: s.ID}
		}
		marks[key] = visiting

		children, err := DirectNeeds(ctx, s, needs)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := visit(c); err != nil {
				return err
			}
		}

		marks[key] = visited
		order = append(order, s)
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}

// DirectNeeds returns the canonical needs of a single spec, re-normalized
// through the Spec Normalizer. A nil NeedsFunc, or one that returns no
// needs, yields an empty slice (spec.md §4.2, "Missing needs is treated as
// empty").
func DirectNeeds(ctx context.Context, s spec.Spec, needs NeedsFunc) ([]spec.Spec, error) {
	if needs == nil {
		return nil, nil
	}
	raw, err := needs(ctx, s)
	if err != nil {
		return nil, err
	}
	out := make([]spec.Spec, 0, len(raw))
	for _, r := range raw {
		n, err := spec.Normalize(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// DirectNeededBy returns the specs in universe whose direct needs contain
// target.
func DirectNeededBy(ctx context.Context, target spec.Spec, universe []spec.Spec, needs NeedsFunc) ([]spec.Spec, error) {
	targetKey := spec.Key(target)
	var out []spec.Spec
	for _, candidate := range universe {
		children, err := DirectNeeds(ctx, candidate, needs)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if spec.Key(c) == targetKey {
				out = append(out, candidate)
				break
			}
		}
	}
	return out, nil
}

// Dependents returns all transitive dependents of root within universe (the
// set of specs currently tracked by the Coordinator), including root
// itself, ordered deepest-dependent-first with root last — directly usable
// as the cascade-termination order of spec.md §4.5 once the caller drops
// the trailing root element. Computed with the same three-color DFS as
// Dependencies, edges reversed via DirectNeededBy.
func Dependents(ctx context.Context, root spec.Spec, universe []spec.Spec, needs NeedsFunc) ([]spec.Spec, error) {
	marks := make(map[string]mark)
	var order []spec.Spec

	var visit func(s spec.Spec) error
	visit = func(s spec.Spec) error {
		key := spec.Key(s)
		switch marks[key] {
		case visited:
			return nil
		case visiting:
			return &cyclicError{at: s.ID}
		}
		marks[key] = visiting

		parents, err := DirectNeededBy(ctx, s, universe, needs)
		if err != nil {
			return err
		}
		for _, p := range parents {
			if err := visit(p); err != nil {
				return err
			}
		}

		marks[key] = visited
		order = append(order, s)
		return nil
	}

	if err := visit(root); err != nil {
		return nil, err
	}
	return order, nil
}
