// Package fake is a small in-process reference implementation of the
// supervisor.Supervisor contract (SPEC_FULL.md §B.4), used by the
// Coordinator tests and safe to use standalone to exercise the Coordinator
// without a real process supervisor. It is grounded on the mockService/
// mockServiceWithData test doubles in muster's internal/orchestrator/
// retry_test.go, generalized from one fixed mock into a small working
// supervisor since a Coordinator test needs many independently
// controllable instances rather than a single canned one.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"depcoord/internal/spec"
	"depcoord/internal/supervisor"
)

// Factory builds the service-side object backing a spawned instance. Fake
// calls it once per Spawn and stores the result with the instance; it
// never calls anything on it and does not consult it for needs (the
// Coordinator's needs come from its Config.Needs) — starting the "worker"
// is simulated by bookkeeping alone, since the worker's business logic is
// out of scope per spec.md §1.
type Factory func(s spec.Spec) interface{}

type state int

const (
	stateRunning state = iota
	stateExiting
	stateGone
)

type instance struct {
	mu    sync.Mutex
	state state
	token supervisor.WatchToken
	ch    chan supervisor.Termination
	svc   interface{}
}

type handle struct{ id string }

func (h handle) ID() string { return h.id }

// Fake implements supervisor.Supervisor and supervisor.Prober.
type Fake struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]*instance
}

// New returns an empty Fake with no registered service factories.
func New() *Fake {
	return &Fake{
		factories: make(map[string]Factory),
		instances: make(map[string]*instance),
	}
}

// Register associates target (a spec's Start.Target) with a factory that
// Spawn invokes for every spec naming it. Targets with no registered
// factory spawn successfully without one.
func (f *Fake) Register(target string, factory Factory) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.factories[target] = factory
}

// Spawn implements supervisor.Supervisor.
func (f *Fake) Spawn(ctx context.Context, s spec.Spec) (supervisor.Handle, error) {
	f.mu.Lock()
	factory := f.factories[s.Start.Target]
	f.mu.Unlock()

	var svc interface{}
	if factory != nil {
		svc = factory(s)
	}

	id := uuid.NewString()
	inst := &instance{
		state: stateRunning,
		token: supervisor.WatchToken(uuid.NewString()),
		ch:    make(chan supervisor.Termination, 1),
		svc:   svc,
	}

	f.mu.Lock()
	f.instances[id] = inst
	f.mu.Unlock()

	return handle{id: id}, nil
}

// Terminate implements supervisor.Supervisor: it marks the instance as
// exiting and immediately delivers a termination carrying reason. Fake has
// no real process to wind down, so there is no meaningful delay to model;
// Probe reports "exiting" only if it runs in the short window between the
// two state changes, since the instance is already marked gone by the
// time the termination is sent.
func (f *Fake) Terminate(ctx context.Context, h supervisor.Handle, reason supervisor.ExitReason) error {
	inst, ok := f.lookup(h)
	if !ok {
		return fmt.Errorf("fake supervisor: terminate: instance %s not found", h.ID())
	}
	inst.mu.Lock()
	if inst.state != stateRunning {
		inst.mu.Unlock()
		return nil
	}
	inst.state = stateExiting
	inst.mu.Unlock()

	f.finish(inst, reason)
	return nil
}

// Kill simulates an externally caused termination (a crash, an operator
// kill -9) rather than a Coordinator-requested Terminate, delivering reason
// directly. Test-only entry point; spec.md puts the process supervisor's
// own failure detection out of scope for the core, so this is how tests
// inject it.
func (f *Fake) Kill(h supervisor.Handle, reason supervisor.ExitReason) error {
	inst, ok := f.lookup(h)
	if !ok {
		return fmt.Errorf("fake supervisor: kill: instance %s not found", h.ID())
	}
	f.finish(inst, reason)
	return nil
}

func (f *Fake) finish(inst *instance, reason supervisor.ExitReason) {
	inst.mu.Lock()
	if inst.state == stateGone {
		inst.mu.Unlock()
		return
	}
	inst.state = stateGone
	token := inst.token
	inst.mu.Unlock()

	inst.ch <- supervisor.Termination{Token: token, Reason: reason}
}

// Watch implements supervisor.Supervisor.
func (f *Fake) Watch(h supervisor.Handle) (supervisor.WatchToken, <-chan supervisor.Termination) {
	inst, ok := f.lookup(h)
	if !ok {
		return "", nil
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.token, inst.ch
}

// Probe implements supervisor.Prober.
func (f *Fake) Probe(ctx context.Context, h supervisor.Handle) (supervisor.Liveness, error) {
	inst, ok := f.lookup(h)
	if !ok {
		return supervisor.LivenessGone, nil
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	switch inst.state {
	case stateRunning:
		return supervisor.LivenessAlive, nil
	case stateExiting:
		return supervisor.LivenessExiting, nil
	default:
		return supervisor.LivenessGone, nil
	}
}

func (f *Fake) lookup(h supervisor.Handle) (*instance, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst, ok := f.instances[h.ID()]
	return inst, ok
}
