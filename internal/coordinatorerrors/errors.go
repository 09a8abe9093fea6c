// Package coordinatorerrors defines the fixed set of sentinel errors the
// coordinator core can return, per spec §7. Callers use errors.Is against
// these; wrapped context (which spec, which supervisor reply) is added with
// fmt.Errorf("...: %w", ...) at the call site rather than encoded into
// distinct error types.
package coordinatorerrors

import "errors"

var (
	// ErrCyclicDependency is returned by the resolver when a spec's
	// transitive needs graph contains a cycle. It short-circuits Start.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrNotFound is returned by Stop when the target spec is not running.
	ErrNotFound = errors.New("not found")

	// ErrNeeded is returned by Stop when another running spec still needs
	// the target.
	ErrNeeded = errors.New("needed")

	// ErrCannotStop is a legacy alias for ErrNeeded, accepted by callers
	// that mix the two names. It is the same sentinel value, not a
	// distinct error, so errors.Is agrees no matter which name is checked.
	ErrCannotStop = ErrNeeded

	// ErrNoSupervisor is returned by coordinator construction when no
	// Supervisor was configured.
	ErrNoSupervisor = errors.New("no supervisor configured")

	// ErrBadSpec is returned by the spec normalizer when an input matches
	// none of the three accepted shapes.
	ErrBadSpec = errors.New("bad spec")

	// ErrClosed is returned by any Coordinator method called after Close.
	ErrClosed = errors.New("coordinator closed")

	// ErrIgnored is returned by a Supervisor.Spawn implementation that
	// declined to start a spec without it being an error (spec §6).
	ErrIgnored = errors.New("spawn ignored")
)
