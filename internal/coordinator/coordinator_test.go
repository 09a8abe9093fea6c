package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depcoord/internal/coordinatorerrors"
	"depcoord/internal/spec"
	"depcoord/internal/supervisor"
	"depcoord/internal/supervisor/fake"
)

// loopNeeds builds the Loop -> {Sequence, Log} fixture of spec.md §8
// scenarios 4-6, with Sequence and Log declaring no needs.
func loopNeeds() func(ctx context.Context, s spec.Spec) ([]spec.Spec, error) {
	edges := map[string][]string{
		"Loop":     {"Sequence", "Log"},
		"Sequence": {},
		"Log":      {},
	}
	return func(ctx context.Context, s spec.Spec) ([]spec.Spec, error) {
		var out []spec.Spec
		for _, id := range edges[s.ID] {
			n, err := spec.Normalize(id)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	}
}

// spawnRecorder tracks the order services were spawned in, by registering
// a fake.Factory per target that appends its own ID when invoked.
type spawnRecorder struct {
	mu    sync.Mutex
	order []string
}

func (r *spawnRecorder) register(sup *fake.Fake, targets ...string) {
	for _, target := range targets {
		target := target
		sup.Register(target, func(s spec.Spec) interface{} {
			r.mu.Lock()
			r.order = append(r.order, s.ID)
			r.mu.Unlock()
			return nil
		})
	}
}

func (r *spawnRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func TestStartCascadeOrderAndStopSafety(t *testing.T) {
	// spec.md §8 scenario 4.
	sup := fake.New()
	rec := &spawnRecorder{}
	rec.register(sup, "Loop", "Sequence", "Log")

	c, err := New(Config{Supervisor: sup, Needs: loopNeeds()})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.Start(ctx, "Loop")
	require.NoError(t, err)

	assert.Equal(t, []string{"Sequence", "Log", "Loop"}, rec.snapshot())

	for _, id := range []string{"Loop", "Sequence", "Log"} {
		st, err := c.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, st, "status of %s", id)
	}

	err = c.Stop(ctx, "Log")
	assert.ErrorIs(t, err, coordinatorerrors.ErrNeeded)

	err = c.Stop(ctx, "Loop")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, _ := c.Status(ctx, "Loop")
		return st == StatusStopped
	}, 2*time.Second, 10*time.Millisecond)

	for _, id := range []string{"Sequence", "Log"} {
		st, err := c.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusRunning, st, "status of %s", id)
	}
}

func TestIdempotentStart(t *testing.T) {
	// I5: starting an already-fully-running spec issues no spawns.
	sup := fake.New()
	rec := &spawnRecorder{}
	rec.register(sup, "Loop", "Sequence", "Log")

	c, err := New(Config{Supervisor: sup, Needs: loopNeeds()})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.Start(ctx, "Loop")
	require.NoError(t, err)
	require.Len(t, rec.snapshot(), 3)

	h, err := c.Start(ctx, "Loop")
	require.NoError(t, err)
	assert.Nil(t, h)
	assert.Len(t, rec.snapshot(), 3, "no new spawns on a redundant start")
}

func TestStopAllLeavesRegistryEmpty(t *testing.T) {
	// spec.md §8 scenario 5.
	sup := fake.New()
	c, err := New(Config{Supervisor: sup, Needs: loopNeeds()})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.Start(ctx, "Loop")
	require.NoError(t, err)

	remaining := map[string]bool{"Loop": true, "Sequence": true, "Log": true}
	deadline := time.Now().Add(3 * time.Second)
	for len(remaining) > 0 && time.Now().Before(deadline) {
		for id := range remaining {
			ok, err := c.CanStop(ctx, id)
			require.NoError(t, err)
			if !ok {
				continue
			}
			require.NoError(t, c.Stop(ctx, id))
			require.Eventually(t, func() bool {
				st, _ := c.Status(ctx, id)
				return st == StatusStopped
			}, time.Second, 5*time.Millisecond)
			delete(remaining, id)
		}
	}
	assert.Empty(t, remaining, "every service should eventually become stoppable and stop")

	for _, id := range []string{"Loop", "Sequence", "Log"} {
		_, ok, err := c.Lookup(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok, "%s should not remain in the registry", id)
	}
}

func TestCascadeStopWithoutRestart(t *testing.T) {
	// spec.md §8 scenario 6, stop_dependents=true, restart_dependents=false.
	sup := fake.New()
	c, err := New(Config{Supervisor: sup, Needs: loopNeeds(), StopDependents: true})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.Start(ctx, "Loop")
	require.NoError(t, err)

	h, ok, err := c.Lookup(ctx, "Log")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, sup.Kill(h, supervisor.ExitReason("crashed")))

	require.Eventually(t, func() bool {
		st, _ := c.Status(ctx, "Log")
		return st == StatusStopped
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		st, _ := c.Status(ctx, "Loop")
		return st == StatusStopped
	}, 2*time.Second, 10*time.Millisecond)

	st, err := c.Status(ctx, "Sequence")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, st)
}

func TestCascadeStopWithRestart(t *testing.T) {
	// spec.md §8 scenario 6, restart_dependents=true: an abnormal kill of
	// Log eventually brings all three services back to :running.
	sup := fake.New()
	c, err := New(Config{
		Supervisor:        sup,
		Needs:             loopNeeds(),
		StopDependents:    true,
		RestartDependents: true,
	})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.Start(ctx, "Loop")
	require.NoError(t, err)

	h, ok, err := c.Lookup(ctx, "Log")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, sup.Kill(h, supervisor.ExitReason("crashed")))

	for _, id := range []string{"Sequence", "Log", "Loop"} {
		id := id
		require.Eventually(t, func() bool {
			st, _ := c.Status(ctx, id)
			return st == StatusRunning
		}, 3*time.Second, 10*time.Millisecond, "%s should eventually be running again", id)
	}
}

func TestNormalExitWithRestartDoesNotRestart(t *testing.T) {
	// spec.md §8 scenario 6: a normal exit must not trigger a restart even
	// with restart_dependents=true.
	sup := fake.New()
	c, err := New(Config{
		Supervisor:        sup,
		Needs:             loopNeeds(),
		StopDependents:    true,
		RestartDependents: true,
	})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	_, err = c.Start(ctx, "Loop")
	require.NoError(t, err)

	h, ok, err := c.Lookup(ctx, "Sequence")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, sup.Kill(h, supervisor.ExitNormal))

	require.Eventually(t, func() bool {
		st, _ := c.Status(ctx, "Sequence")
		return st == StatusStopped
	}, 2*time.Second, 10*time.Millisecond)

	// Give any erroneous restart a chance to happen, then confirm it didn't.
	time.Sleep(50 * time.Millisecond)
	st, err := c.Status(ctx, "Sequence")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, st)
	st, err = c.Status(ctx, "Loop")
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, st, "Loop is cascaded-stopped by Sequence's exit, not restarted")
}

func TestNoSupervisorConfigured(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, coordinatorerrors.ErrNoSupervisor)
}
