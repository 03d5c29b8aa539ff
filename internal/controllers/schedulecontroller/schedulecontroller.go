package schedulecontroller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

// NotScheduled labels a zone that no active schedule covers.
const NotScheduled = "Not scheduled"

type Activator interface {
	ActivateScheduled(ctx context.Context, zoneID int, sched model.Schedule) (model.ActionEvent, error)
}

// Evaluator fires schedules whose day and time match the current minute.
type Evaluator struct {
	schedules store.Schedules
	zones     store.Zones
	activator Activator
	clock     clock.Clock
	loc       *time.Location

	mu         sync.Mutex
	lastMinute time.Time
}

func New(schedules store.Schedules, zones store.Zones, activator Activator, clk clock.Clock, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.Local
	}
	return &Evaluator{
		schedules: schedules,
		zones:     zones,
		activator: activator,
		clock:     clk,
		loc:       loc,
	}
}

// Evaluate runs one pass for the current minute. A minute that was already
// evaluated is skipped, so a schedule fires at most once per matching
// minute however often the evaluator ticks.
func (e *Evaluator) Evaluate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now().In(e.loc)
	minute := now.Truncate(time.Minute)
	if minute.Equal(e.lastMinute) {
		log.Debug().Time("minute", minute).Msg("Minute already evaluated")
		return nil
	}

	schedules, err := e.schedules.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}
	e.lastMinute = minute

	fired := 0
	for _, sched := range schedules {
		if !sched.Matches(now) {
			continue
		}

		log.Info().
			Int("schedule_id", sched.ID).
			Str("schedule", sched.Name).
			Ints("zones", sched.Zones).
			Int("duration_min", sched.Duration).
			Msg("Schedule triggered")

		for _, zoneID := range sched.Zones {
			if _, err := e.activator.ActivateScheduled(ctx, zoneID, sched); err != nil {
				log.Error().
					Err(err).
					Int("schedule_id", sched.ID).
					Int("zone_id", zoneID).
					Msg("Failed to activate zone for schedule")
				continue
			}
			fired++
		}
	}

	if fired > 0 {
		log.Info().Int("activations", fired).Time("minute", minute).Msg("Schedule evaluation complete")
	}

	e.refreshNextScheduled(ctx, schedules, minute.Add(time.Minute), now)
	return nil
}

// RefreshNextScheduled recomputes every zone's next-run label. It is called
// after schedule edits so labels do not wait for the next evaluation.
func (e *Evaluator) RefreshNextScheduled(ctx context.Context) error {
	schedules, err := e.schedules.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}
	now := e.clock.Now().In(e.loc)
	e.refreshNextScheduled(ctx, schedules, now, now)
	return nil
}

func (e *Evaluator) refreshNextScheduled(ctx context.Context, schedules []model.Schedule, from, now time.Time) {
	zones, err := e.zones.FindAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load zones for next-run labels")
		return
	}

	for _, zone := range zones {
		label := NextRunLabel(schedules, zone.ID, from, now)
		if label == zone.NextScheduled {
			continue
		}
		if _, err := e.zones.Update(ctx, zone.ID, model.ZonePatch{NextScheduled: &label}); err != nil {
			log.Error().Err(err).Int("zone_id", zone.ID).Msg("Failed to update next scheduled label")
		}
	}
}

// NextRunLabel renders the earliest run at or after from of any active
// schedule covering zoneID.
func NextRunLabel(schedules []model.Schedule, zoneID int, from, now time.Time) string {
	var (
		next  time.Time
		found bool
	)
	for _, sched := range schedules {
		if !sched.Includes(zoneID) {
			continue
		}
		run, ok := sched.NextRun(from)
		if !ok {
			continue
		}
		if !found || run.Before(next) {
			next, found = run, true
		}
	}
	if !found {
		return NotScheduled
	}
	return model.MomentLabel(next, now)
}
