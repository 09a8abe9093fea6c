package coordinator

import (
	"depcoord/internal/dependency"
	"depcoord/internal/supervisor"
)

// Config configures a Coordinator (spec.md §6, "Configuration options").
type Config struct {
	// Supervisor delegates spawn/terminate/watch for every spec this
	// Coordinator manages. Required; New fails with
	// coordinatorerrors.ErrNoSupervisor if nil.
	Supervisor supervisor.Supervisor

	// Needs answers "what does this spec need", typically an
	// internal/catalog Catalog's NeedsFunc. Nil is equivalent to every
	// spec declaring no needs.
	Needs dependency.NeedsFunc

	// StopDependents cascade-stops a terminated spec's transitive
	// dependents (spec.md §3, "stop_dependents").
	StopDependents bool

	// RestartDependents restarts a spec after it terminates abnormally
	// (spec.md §3, "restart_dependents").
	RestartDependents bool

	// Name is an optional logical name for request routing in
	// multi-instance deployments (spec.md §6). The core does not
	// interpret it.
	Name string
}
