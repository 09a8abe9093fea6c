package registry

import (
	"fmt"
	"sync"

	"depcoord/internal/spec"
	"depcoord/internal/supervisor"
)

type entry struct {
	spec   spec.Spec
	handle supervisor.Handle
	token  supervisor.WatchToken
}

// Registry is the Coordinator's spec<->instance mapping (spec.md §3,
// §4.3). It is safe for concurrent use, though in this module only the
// Coordinator's single event-loop goroutine ever calls it (spec.md §5).
type Registry struct {
	mu    sync.RWMutex
	specs map[string]entry                 // spec.Key(s) -> entry
	refs  map[supervisor.WatchToken]string // watch token -> spec.Key(s)
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		specs: make(map[string]entry),
		refs:  make(map[supervisor.WatchToken]string),
	}
}

// Insert records a newly started instance. The Coordinator never inserts a
// spec that is already present (it checks Contains first), so a
// duplicate insert indicates an invariant violation in the caller rather
// than a condition a well-behaved caller needs to handle, and panics.
func (r *Registry) Insert(s spec.Spec, h supervisor.Handle, token supervisor.WatchToken) {
	key := spec.Key(s)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.specs[key]; exists {
		panic(fmt.Sprintf("registry: spec %q already running", s.ID))
	}
	r.specs[key] = entry{spec: s, handle: h, token: token}
	r.refs[token] = key
}

// RemoveBySpec removes s and its watch-token mapping, returning its handle.
func (r *Registry) RemoveBySpec(s spec.Spec) (supervisor.Handle, bool) {
	key := spec.Key(s)

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.specs[key]
	if !ok {
		return nil, false
	}
	delete(r.specs, key)
	delete(r.refs, e.token)
	return e.handle, true
}

// PeekByToken returns the spec owning token without removing it, so
// callers can compute dependents (spec.md §4.5 step 2) before the entry
// is removed in step 3.
func (r *Registry) PeekByToken(token supervisor.WatchToken) (spec.Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.refs[token]
	if !ok {
		return spec.Spec{}, false
	}
	return r.specs[key].spec, true
}

// RemoveByToken removes the spec owning token, returning it. This is the
// path the termination-event handler uses (spec.md §4.5 step 1).
func (r *Registry) RemoveByToken(token supervisor.WatchToken) (spec.Spec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.refs[token]
	if !ok {
		return spec.Spec{}, false
	}
	e := r.specs[key]
	delete(r.specs, key)
	delete(r.refs, token)
	return e.spec, true
}

// HandleOf returns the running instance handle for s, if any.
func (r *Registry) HandleOf(s spec.Spec) (supervisor.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.specs[spec.Key(s)]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

// Contains reports whether s is currently running.
func (r *Registry) Contains(s spec.Spec) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.specs[spec.Key(s)]
	return ok
}

// Specs returns every currently running spec, in no particular order.
func (r *Registry) Specs() []spec.Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]spec.Spec, 0, len(r.specs))
	for _, e := range r.specs {
		out = append(out, e.spec)
	}
	return out
}

// Len returns the number of running specs. Together with RefsLen it lets
// a caller check invariant R1 (specs and refs have equal cardinality).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}

// RefsLen returns the number of watch-token entries; see Len.
func (r *Registry) RefsLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.refs)
}
