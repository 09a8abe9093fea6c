package coordinator

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"depcoord/internal/coordinatorerrors"
	"depcoord/internal/dependency"
	"depcoord/internal/registry"
	"depcoord/internal/spec"
	"depcoord/internal/supervisor"
	"depcoord/pkg/logging"
)

// Status is the external per-spec lifecycle state (spec.md §4.4).
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
	StatusExiting
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusExiting:
		return "exiting"
	default:
		return "stopped"
	}
}

// Coordinator is the single-threaded state machine of spec.md §4.4. All
// exported methods submit a closure onto requests and block for its
// reply; the loop goroutine is the only thing that ever touches reg.
type Coordinator struct {
	cfg Config
	reg *registry.Registry

	requests     chan func()
	terminations chan supervisor.Termination
	done         chan struct{}
	closeOnce    sync.Once
	wg           sync.WaitGroup

	// startGroup collapses concurrent Start calls for the same
	// normalized spec into one submission, so a thundering herd of
	// callers asking for the same not-yet-running spec doesn't queue one
	// redundant dependency walk per caller onto the request channel.
	startGroup singleflight.Group
}

// New constructs a Coordinator and starts its event loop. Callers must
// call Close when done to stop the loop.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Supervisor == nil {
		return nil, coordinatorerrors.ErrNoSupervisor
	}

	c := &Coordinator{
		cfg:          cfg,
		reg:          registry.New(),
		requests:     make(chan func()),
		terminations: make(chan supervisor.Termination, 16),
		done:         make(chan struct{}),
	}

	c.wg.Add(1)
	go c.loop()
	return c, nil
}

func (c *Coordinator) loop() {
	defer c.wg.Done()
	for {
		select {
		case req := <-c.requests:
			req()
		case ev := <-c.terminations:
			c.handleTermination(context.Background(), ev)
		case <-c.done:
			return
		}
	}
}

// Close stops the event loop. Pending requests already queued are not
// guaranteed to run; in-flight ones already being processed complete.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
}

// submit enqueues fn on the loop and blocks until it has run, or until
// ctx is done, or the Coordinator is closed.
func (c *Coordinator) submit(ctx context.Context, fn func()) error {
	select {
	case c.requests <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return coordinatorerrors.ErrClosed
	}
}

// Start normalizes input, resolves its dependencies, and starts every
// not-yet-running spec in that order (spec.md §4.4 "start"). It returns
// the handle of the last spec it actually started, or a nil handle and
// nil error if everything was already running (I5, idempotent start).
func (c *Coordinator) Start(ctx context.Context, input interface{}) (supervisor.Handle, error) {
	s, err := spec.Normalize(input)
	if err != nil {
		return nil, err
	}

	type result struct {
		h   supervisor.Handle
		err error
	}

	v, err, _ := c.startGroup.Do(spec.Key(s), func() (interface{}, error) {
		reply := make(chan result, 1)
		submitErr := c.submit(ctx, func() {
			h, err := c.doStart(ctx, s)
			reply <- result{h, err}
		})
		if submitErr != nil {
			return nil, submitErr
		}
		select {
		case r := <-reply:
			return result{r.h, r.err}, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	if err != nil {
		return nil, err
	}
	r, ok := v.(result)
	if !ok {
		return nil, nil
	}
	return r.h, nil
}

// doStart runs only on the loop goroutine.
func (c *Coordinator) doStart(ctx context.Context, input interface{}) (supervisor.Handle, error) {
	s, err := spec.Normalize(input)
	if err != nil {
		return nil, err
	}

	order, err := dependency.Dependencies(ctx, s, c.cfg.Needs)
	if err != nil {
		return nil, err
	}

	var last supervisor.Handle
	for _, toStart := range order {
		if c.reg.Contains(toStart) {
			continue
		}

		h, err := c.cfg.Supervisor.Spawn(ctx, toStart)
		if err != nil {
			if errors.Is(err, coordinatorerrors.ErrIgnored) {
				continue
			}
			return nil, err
		}

		token, ch := c.cfg.Supervisor.Watch(h)
		c.reg.Insert(toStart, h, token)
		c.forward(ch)
		last = h
	}

	return last, nil
}

// forward relays a single watched instance's termination onto the
// Coordinator's shared event channel, keeping the Registry mutation
// single-threaded even though each instance is watched independently.
func (c *Coordinator) forward(ch <-chan supervisor.Termination) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			select {
			case c.terminations <- ev:
			case <-c.done:
			}
		case <-c.done:
		}
	}()
}

// Stop requests termination of input's running instance (spec.md §4.4
// "stop"). The Registry entry is removed only once the resulting
// termination event is processed, preserving invariant R3.
func (c *Coordinator) Stop(ctx context.Context, input interface{}) error {
	reply := make(chan error, 1)
	err := c.submit(ctx, func() {
		reply <- c.doStop(ctx, input)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) doStop(ctx context.Context, input interface{}) error {
	s, err := spec.Normalize(input)
	if err != nil {
		return err
	}
	if !c.reg.Contains(s) {
		return coordinatorerrors.ErrNotFound
	}
	if !c.canStopLocked(ctx, s) {
		return coordinatorerrors.ErrNeeded
	}
	h, _ := c.reg.HandleOf(s)
	return c.cfg.Supervisor.Terminate(ctx, h, supervisor.ExitShutdown)
}

// canStopLocked reports whether no other currently-running spec needs s.
// Callable only from the loop goroutine.
func (c *Coordinator) canStopLocked(ctx context.Context, s spec.Spec) bool {
	sKey := spec.Key(s)
	for _, other := range c.reg.Specs() {
		if spec.Key(other) == sKey {
			continue
		}
		needs, err := dependency.DirectNeeds(ctx, other, c.cfg.Needs)
		if err != nil {
			logging.Warn("coordinator", "can-stop check: direct needs of %s: %v", other.ID, err)
			continue
		}
		for _, n := range needs {
			if spec.Key(n) == sKey {
				return false
			}
		}
	}
	return true
}

// CanStop reports whether input is running and nothing else running
// needs it (spec.md §4.4 "can_stop?").
func (c *Coordinator) CanStop(ctx context.Context, input interface{}) (bool, error) {
	type result struct {
		ok  bool
		err error
	}
	reply := make(chan result, 1)
	err := c.submit(ctx, func() {
		s, err := spec.Normalize(input)
		if err != nil {
			reply <- result{false, err}
			return
		}
		if !c.reg.Contains(s) {
			reply <- result{false, nil}
			return
		}
		reply <- result{c.canStopLocked(ctx, s), nil}
	})
	if err != nil {
		return false, err
	}
	select {
	case r := <-reply:
		return r.ok, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Lookup returns the running instance handle for input, if any (spec.md
// §4.4 "lookup").
func (c *Coordinator) Lookup(ctx context.Context, input interface{}) (supervisor.Handle, bool, error) {
	type result struct {
		h  supervisor.Handle
		ok bool
	}
	reply := make(chan result, 1)
	var normErr error
	err := c.submit(ctx, func() {
		s, nerr := spec.Normalize(input)
		if nerr != nil {
			normErr = nerr
			reply <- result{}
			return
		}
		h, ok := c.reg.HandleOf(s)
		reply <- result{h, ok}
	})
	if err != nil {
		return nil, false, err
	}
	select {
	case r := <-reply:
		return r.h, r.ok, normErr
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

type statusResult struct {
	st  Status
	err error
}

// Status derives input's external lifecycle state from Registry
// membership plus an optional liveness probe (spec.md §4.4 "status").
func (c *Coordinator) Status(ctx context.Context, input interface{}) (Status, error) {
	reply := make(chan statusResult, 1)
	err := c.submit(ctx, func() {
		reply <- c.doStatus(ctx, input)
	})
	if err != nil {
		return StatusStopped, err
	}
	select {
	case r := <-reply:
		return r.st, r.err
	case <-ctx.Done():
		return StatusStopped, ctx.Err()
	}
}

func (c *Coordinator) doStatus(ctx context.Context, input interface{}) statusResult {
	s, err := spec.Normalize(input)
	if err != nil {
		return statusResult{StatusStopped, err}
	}
	h, ok := c.reg.HandleOf(s)
	if !ok {
		return statusResult{StatusStopped, nil}
	}

	prober, ok := c.cfg.Supervisor.(supervisor.Prober)
	if !ok {
		// spec.md §9 Open Question 2: no liveness probe available, so
		// presence in the Registry is treated as running.
		return statusResult{StatusRunning, nil}
	}

	live, err := prober.Probe(ctx, h)
	if err != nil {
		return statusResult{StatusRunning, nil}
	}
	switch live {
	case supervisor.LivenessExiting:
		return statusResult{StatusExiting, nil}
	case supervisor.LivenessGone:
		return statusResult{StatusStopped, nil}
	default:
		return statusResult{StatusRunning, nil}
	}
}
