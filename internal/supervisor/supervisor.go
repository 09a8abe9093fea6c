package supervisor

import (
	"context"

	"depcoord/internal/spec"
)

// Handle is an opaque reference to a running worker instance, owned by the
// external supervisor (spec.md §3, "Instance handle"). The coordinator
// core holds only a reference; it never constructs or frees one itself.
type Handle interface {
	// ID uniquely identifies the instance while it is alive.
	ID() string
}

// WatchToken is a per-instance token yielded by Watch, mapped 1:1 to a
// spec until the instance terminates (spec.md §3, "Watch token").
type WatchToken string

// ExitReason classifies why an instance terminated (spec.md §6).
type ExitReason string

const (
	ExitNormal   ExitReason = "normal"
	ExitShutdown ExitReason = "shutdown"
)

// Abnormal reports whether r is anything other than normal or shutdown
// (spec.md §3, "Abnormal termination"; the glossary definition this
// module pins).
func (r ExitReason) Abnormal() bool {
	return r != ExitNormal && r != ExitShutdown
}

// Termination is delivered on the channel returned by Watch when the
// watched instance exits.
type Termination struct {
	Token  WatchToken
	Reason ExitReason
}

// Liveness is the result of a synchronous liveness probe (spec.md §9 Open
// Question 2).
type Liveness int

const (
	LivenessGone Liveness = iota
	LivenessAlive
	LivenessExiting
)

// Supervisor is the external process supervisor contract (spec.md §6).
// The core delegates every spawn and termination to it and never manages
// OS processes, goroutines, or any other worker runtime itself — that
// collaborator is explicitly out of scope per spec.md §1.
type Supervisor interface {
	// Spawn starts the worker named by s.Start.Target with s.Start.Args.
	// Returning ErrIgnored (depcoord/internal/coordinatorerrors) means the
	// supervisor declined without error; the coordinator proceeds to the
	// next spec and records nothing for s.
	Spawn(ctx context.Context, s spec.Spec) (Handle, error)

	// Terminate synchronously requests termination of h, propagating reason
	// as the cause (spec.md §4.5 step 2: cascade terminations carry the
	// original triggering exit reason, not a synthetic one). A caller
	// stopping a spec on purpose passes ExitShutdown.
	Terminate(ctx context.Context, h Handle, reason ExitReason) error

	// Watch subscribes to a one-shot termination notification for h.
	Watch(h Handle) (WatchToken, <-chan Termination)
}

// Prober is an optional capability of a Supervisor: a synchronous liveness
// check used by Status (spec.md §4.4). Supervisors that cannot offer one
// are not required to implement it; the coordinator falls back to
// Registry presence (spec.md §9 Open Question 2).
type Prober interface {
	Probe(ctx context.Context, h Handle) (Liveness, error)
}

// NeedsProvider is the zero-arity form of the service contract's needs
// function (spec.md §6, "Optional needs/0 ... n"). A service implements
// this, NeedsWithArgsProvider, both, or neither (equivalent to no needs).
type NeedsProvider interface {
	Needs(ctx context.Context) ([]interface{}, error)
}

// NeedsWithArgsProvider is the arity-n form, called with the spec's own
// start arguments when the spec carries any (spec.md §4.2, "Dynamic
// needs"). The resolver prefers this over NeedsProvider when both are
// implemented and the spec has start arguments.
type NeedsWithArgsProvider interface {
	NeedsWithArgs(ctx context.Context, args []interface{}) ([]interface{}, error)
}
