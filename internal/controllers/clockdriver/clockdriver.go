package clockdriver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
)

var ErrAlreadyRunning = errors.New("clock driver already running")

type Simulator interface {
	Tick(ctx context.Context) error
}

type Evaluator interface {
	Evaluate(ctx context.Context) error
}

// Driver runs the sensor simulator and the schedule evaluator on recurring
// timers. The evaluator is aligned to interval boundaries of the clock so a
// minute interval evaluates at the top of each minute.
type Driver struct {
	clock        clock.Clock
	sim          Simulator
	eval         Evaluator
	simInterval  time.Duration
	evalInterval time.Duration

	mu        sync.Mutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	simTimer  clock.Timer
	evalTimer clock.Timer
	wg        sync.WaitGroup
}

func New(clk clock.Clock, sim Simulator, eval Evaluator, simInterval, evalInterval time.Duration) *Driver {
	if simInterval <= 0 {
		simInterval = 30 * time.Second
	}
	if evalInterval <= 0 {
		evalInterval = time.Minute
	}
	return &Driver{
		clock:        clk,
		sim:          sim,
		eval:         eval,
		simInterval:  simInterval,
		evalInterval: evalInterval,
	}
}

// Start runs one evaluation immediately and then arms both timers.
// Cancelling ctx has the same effect as Stop.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.ctx, d.cancel = context.WithCancel(ctx)
	runCtx := d.ctx
	d.wg.Add(1)
	d.mu.Unlock()

	log.Info().
		Dur("simulator_interval", d.simInterval).
		Dur("evaluator_interval", d.evalInterval).
		Msg("Starting clock driver")

	d.evaluate(runCtx)
	d.wg.Done()

	d.mu.Lock()
	if d.running {
		d.simTimer = d.clock.AfterFunc(d.simInterval, d.simTick)
		d.evalTimer = d.clock.AfterFunc(d.untilNextBoundary(), d.evalTick)
	}
	d.mu.Unlock()

	go func() {
		<-runCtx.Done()
		d.stop(runCtx)
	}()
	return nil
}

// Stop cancels both timers and waits for ticks already in progress.
func (d *Driver) Stop() {
	d.stop(nil)
}

// stop ends the current run. A non-nil run only stops the run it belongs to,
// so a stale context watcher cannot stop a later restart.
func (d *Driver) stop(run context.Context) {
	d.mu.Lock()
	if !d.running || (run != nil && run != d.ctx) {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.cancel()
	if d.simTimer != nil {
		d.simTimer.Stop()
	}
	if d.evalTimer != nil {
		d.evalTimer.Stop()
	}
	d.mu.Unlock()

	d.wg.Wait()
	log.Info().Msg("Clock driver stopped")
}

func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) simTick() {
	ctx, ok := d.begin()
	if !ok {
		return
	}
	defer d.wg.Done()

	if err := d.sim.Tick(ctx); err != nil {
		log.Error().Err(err).Msg("Sensor simulation tick failed")
	}

	d.mu.Lock()
	if d.running {
		d.simTimer = d.clock.AfterFunc(d.simInterval, d.simTick)
	}
	d.mu.Unlock()
}

func (d *Driver) evalTick() {
	ctx, ok := d.begin()
	if !ok {
		return
	}
	defer d.wg.Done()

	d.evaluate(ctx)

	d.mu.Lock()
	if d.running {
		d.evalTimer = d.clock.AfterFunc(d.untilNextBoundary(), d.evalTick)
	}
	d.mu.Unlock()
}

// begin registers an in-flight tick, or reports false once stopped.
func (d *Driver) begin() (context.Context, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil, false
	}
	d.wg.Add(1)
	return d.ctx, true
}

func (d *Driver) evaluate(ctx context.Context) {
	if err := d.eval.Evaluate(ctx); err != nil {
		log.Error().Err(err).Msg("Schedule evaluation failed")
	}
}

func (d *Driver) untilNextBoundary() time.Duration {
	now := d.clock.Now()
	return now.Truncate(d.evalInterval).Add(d.evalInterval).Sub(now)
}
