package clockdriver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
)

var start = time.Date(2024, 1, 1, 5, 30, 20, 0, time.UTC)

type counter struct {
	mu    sync.Mutex
	calls []time.Time
	clock clock.Clock
	err   error
}

func (c *counter) record() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, c.clock.Now())
	return c.err
}

func (c *counter) Tick(context.Context) error     { return c.record() }
func (c *counter) Evaluate(context.Context) error { return c.record() }

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func newDriver(t *testing.T) (*Driver, *clock.Fake, *counter, *counter) {
	t.Helper()
	clk := clock.NewFake(start)
	sim := &counter{clock: clk}
	eval := &counter{clock: clk}
	d := New(clk, sim, eval, 30*time.Second, time.Minute)
	t.Cleanup(d.Stop)
	return d, clk, sim, eval
}

func TestStartRunsImmediateEvaluation(t *testing.T) {
	d, _, sim, eval := newDriver(t)

	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, 1, eval.count())
	assert.Equal(t, 0, sim.count())
	assert.True(t, d.Running())
}

func TestTicksFollowIntervals(t *testing.T) {
	d, clk, sim, eval := newDriver(t)
	require.NoError(t, d.Start(context.Background()))

	clk.Advance(40 * time.Second)
	require.Equal(t, 2, eval.count())
	assert.Equal(t, time.Date(2024, 1, 1, 5, 31, 0, 0, time.UTC), eval.calls[1], "evaluation aligns to the minute")
	assert.Equal(t, 1, sim.count())

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 4, eval.count())
	assert.Equal(t, 5, sim.count())
	assert.Equal(t, time.Date(2024, 1, 1, 5, 33, 0, 0, time.UTC), eval.calls[3])
}

func TestSecondStartFails(t *testing.T) {
	d, _, _, _ := newDriver(t)
	require.NoError(t, d.Start(context.Background()))
	assert.True(t, errors.Is(d.Start(context.Background()), ErrAlreadyRunning))
}

func TestStoppedDriverFiresNothing(t *testing.T) {
	d, clk, sim, eval := newDriver(t)
	require.NoError(t, d.Start(context.Background()))

	d.Stop()
	assert.False(t, d.Running())
	assert.Equal(t, 0, clk.Pending())

	clk.Advance(time.Hour)
	assert.Equal(t, 1, eval.count())
	assert.Equal(t, 0, sim.count())
}

func TestContextCancelStops(t *testing.T) {
	d, clk, _, _ := newDriver(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Start(ctx))

	cancel()
	require.Eventually(t, func() bool { return !d.Running() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, clk.Pending())
}

func TestFailingTicksKeepRunning(t *testing.T) {
	d, clk, sim, eval := newDriver(t)
	sim.err = errors.New("store down")
	eval.err = errors.New("store down")
	require.NoError(t, d.Start(context.Background()))

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 4, sim.count())
	assert.Equal(t, 3, eval.count())
}

func TestRestartAfterStop(t *testing.T) {
	d, clk, _, eval := newDriver(t)
	require.NoError(t, d.Start(context.Background()))
	d.Stop()

	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, 2, eval.count())
	clk.Advance(40 * time.Second)
	assert.Equal(t, 3, eval.count())
}
