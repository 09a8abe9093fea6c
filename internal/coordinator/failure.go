package coordinator

import (
	"context"

	"depcoord/internal/dependency"
	"depcoord/internal/spec"
	"depcoord/internal/supervisor"
	"depcoord/pkg/logging"
)

// handleTermination implements spec.md §4.5, the failure-propagation
// policy. It runs only on the loop goroutine, dispatched from a
// termination event arriving on c.terminations.
func (c *Coordinator) handleTermination(ctx context.Context, ev supervisor.Termination) {
	// Step 1: identify the spec without removing it yet, so a cascade
	// computed in step 2 can still see it in the tracked universe.
	s, ok := c.reg.PeekByToken(ev.Token)
	if !ok {
		return
	}

	if c.cfg.StopDependents {
		c.cascadeStop(ctx, s, ev.Reason)
	}

	// Step 3: remove the spec entry now that the cascade has been issued.
	c.reg.RemoveByToken(ev.Token)

	// Steps 4-5: restart only on abnormal exit, and only if configured.
	if ev.Reason.Abnormal() && c.cfg.RestartDependents {
		if _, err := c.doStart(ctx, s); err != nil {
			logging.Warn("coordinator", "restart of %s after abnormal exit failed: %v", s.ID, err)
		}
	}
}

// cascadeStop terminates s's transitive dependents, deepest first, so
// that by the time an intermediate node's own termination event arrives
// its downstream dependents are already gone (spec.md §4.5 tie-break,
// I2). reason is propagated as the cause of each cascade terminate.
func (c *Coordinator) cascadeStop(ctx context.Context, s spec.Spec, reason supervisor.ExitReason) {
	universe := c.reg.Specs()
	chain, err := dependency.Dependents(ctx, s, universe, c.cfg.Needs)
	if err != nil {
		// A cycle here would mean a graph that start() previously
		// accepted has since become cyclic, which start() itself
		// prevents; if it somehow happens, abort the cascade for this
		// spec only (spec.md §4.5, "Failures here").
		logging.Warn("coordinator", "cascade dependents of %s: %v", s.ID, err)
		return
	}

	// chain is deepest-dependent-first with s itself trailing; drop s
	// and terminate the rest in that order.
	if len(chain) == 0 {
		return
	}
	for _, dependent := range chain[:len(chain)-1] {
		h, ok := c.reg.HandleOf(dependent)
		if !ok {
			continue
		}
		if err := c.cfg.Supervisor.Terminate(ctx, h, reason); err != nil {
			logging.Warn("coordinator", "cascade terminate of %s: %v", dependent.ID, err)
		}
	}
}
