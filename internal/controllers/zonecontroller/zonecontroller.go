package zonecontroller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
	"github.com/thatsimonsguy/greenhouse-controller/internal/datadog"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

const DefaultManualWindow = 10 * time.Minute

// Notifier interface for operator alerts
type Notifier interface {
	Send(title, message string) error
}

// Publisher receives every zone transition and every event it opens or
// closes.
type Publisher interface {
	PublishZone(zone model.Zone)
	PublishEvent(event model.ActionEvent)
}

type noopPublisher struct{}

func (noopPublisher) PublishZone(model.Zone)         {}
func (noopPublisher) PublishEvent(model.ActionEvent) {}

// Controller owns zone activation. Transitions for one zone are serialized
// on that zone's lock; different zones proceed independently. Every timed
// activation arms one deactivation timer, keyed by zone and tagged with the
// event it belongs to, so a timer left behind by a superseded activation
// never closes a newer one.
type Controller struct {
	zones        store.Zones
	events       store.Events
	clock        clock.Clock
	loc          *time.Location
	manualWindow time.Duration

	mu      sync.Mutex
	locks   map[int]*sync.Mutex
	pending map[int]pendingDeactivation

	publisher Publisher
	notifier  Notifier
}

type pendingDeactivation struct {
	eventID int
	timer   clock.Timer
}

func New(zones store.Zones, events store.Events, clk clock.Clock, loc *time.Location, manualWindow time.Duration) *Controller {
	if manualWindow <= 0 {
		manualWindow = DefaultManualWindow
	}
	if loc == nil {
		loc = time.Local
	}
	return &Controller{
		zones:        zones,
		events:       events,
		clock:        clk,
		loc:          loc,
		manualWindow: manualWindow,
		locks:        make(map[int]*sync.Mutex),
		pending:      make(map[int]pendingDeactivation),
		publisher:    noopPublisher{},
	}
}

func (c *Controller) SetPublisher(p Publisher) {
	if p == nil {
		p = noopPublisher{}
	}
	c.publisher = p
}

func (c *Controller) SetNotifier(n Notifier) {
	c.notifier = n
}

// ActivateScheduled starts a firing of sched on zoneID and arms its
// deactivation after the schedule's duration. A zone that is already active
// is handed over: its open event is closed and its timer cancelled.
func (c *Controller) ActivateScheduled(ctx context.Context, zoneID int, sched model.Schedule) (model.ActionEvent, error) {
	lock := c.zoneLock(zoneID)
	lock.Lock()
	defer lock.Unlock()

	zone, err := c.zones.FindByID(ctx, zoneID)
	if err != nil {
		return model.ActionEvent{}, err
	}

	scheduleID := sched.ID
	event := model.ActionEvent{
		ZoneID:      zoneID,
		IsScheduled: true,
		ScheduleID:  &scheduleID,
		Actions:     sched.ActionLabels(),
	}
	return c.activateLocked(ctx, zone, event, sched.Window())
}

// WaterNow starts a manual watering that runs for the manual window. An
// active zone is rejected with ErrZoneActive.
func (c *Controller) WaterNow(ctx context.Context, zoneID int) (model.ActionEvent, error) {
	lock := c.zoneLock(zoneID)
	lock.Lock()
	defer lock.Unlock()

	zone, err := c.zones.FindByID(ctx, zoneID)
	if err != nil {
		return model.ActionEvent{}, err
	}
	if zone.Active {
		return model.ActionEvent{}, fmt.Errorf("zone %d: %w", zoneID, model.ErrZoneActive)
	}

	event := model.ActionEvent{
		ZoneID:   zoneID,
		IsManual: true,
		Actions:  []string{string(model.ActionWatering)},
	}
	return c.activateLocked(ctx, zone, event, c.manualWindow)
}

// Toggle flips the zone. Switching on opens an untimed system activation
// that stays open until the zone is switched off again.
func (c *Controller) Toggle(ctx context.Context, zoneID int) (model.Zone, error) {
	lock := c.zoneLock(zoneID)
	lock.Lock()
	defer lock.Unlock()

	zone, err := c.zones.FindByID(ctx, zoneID)
	if err != nil {
		return model.Zone{}, err
	}
	if zone.Active {
		return c.deactivateLocked(ctx, zoneID, "toggle", c.clock.Now())
	}

	event := model.ActionEvent{
		ZoneID:      zoneID,
		IsScheduled: true,
		Actions:     []string{model.SystemActivation},
	}
	if _, err := c.activateLocked(ctx, zone, event, 0); err != nil {
		return model.Zone{}, err
	}
	return c.zones.FindByID(ctx, zoneID)
}

// Deactivate switches the zone off and closes its open event.
func (c *Controller) Deactivate(ctx context.Context, zoneID int) (model.Zone, error) {
	lock := c.zoneLock(zoneID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := c.zones.FindByID(ctx, zoneID); err != nil {
		return model.Zone{}, err
	}
	return c.deactivateLocked(ctx, zoneID, "explicit", c.clock.Now())
}

// Resume re-arms deactivations for zones left active by a previous run.
// Windows that already ran out are closed immediately; system activations
// have no window and stay open.
func (c *Controller) Resume(ctx context.Context, schedules store.Schedules) error {
	zones, err := c.zones.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("listing zones: %w", err)
	}

	now := c.clock.Now()
	for _, zone := range zones {
		if !zone.Active {
			continue
		}
		event, ok, err := c.events.FindOpen(ctx, zone.ID)
		if err != nil {
			log.Error().Err(err).Int("zone_id", zone.ID).Msg("Failed to look up open event")
			continue
		}
		if !ok {
			continue
		}

		var window time.Duration
		switch {
		case event.IsManual:
			window = c.manualWindow
		case event.ScheduleID != nil:
			sched, err := schedules.FindByID(ctx, *event.ScheduleID)
			if err != nil {
				// The schedule is gone; fall back to the manual window.
				window = c.manualWindow
			} else {
				window = sched.Window()
			}
		default:
			continue
		}

		due := event.StartTime.Add(window)
		remaining := due.Sub(now)
		lock := c.zoneLock(zone.ID)
		lock.Lock()
		if remaining <= 0 {
			// Ran out while we were down; record the end it should have had.
			_, err := c.deactivateLocked(ctx, zone.ID, "expired", due)
			lock.Unlock()
			if err != nil {
				log.Error().Err(err).Int("zone_id", zone.ID).Msg("Failed to close expired activation")
			}
			continue
		}
		c.armLocked(zone.ID, event.ID, remaining)
		lock.Unlock()

		log.Info().
			Int("zone_id", zone.ID).
			Int("event_id", event.ID).
			Dur("remaining", remaining).
			Msg("Resumed zone deactivation timer")
	}
	return nil
}

// Stop cancels every pending deactivation. Zones keep their current state.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for zoneID, p := range c.pending {
		p.timer.Stop()
		delete(c.pending, zoneID)
	}
}

// Pending reports whether zoneID has an armed deactivation.
func (c *Controller) Pending(zoneID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[zoneID]
	return ok
}

func (c *Controller) activateLocked(ctx context.Context, zone model.Zone, event model.ActionEvent, window time.Duration) (model.ActionEvent, error) {
	now := c.clock.Now()

	if zone.Active {
		c.cancelLocked(zone.ID)
		log.Info().Int("zone_id", zone.ID).Msg("Superseding active zone")
	}
	// Also closes an event orphaned by an earlier failed deactivation.
	end := now
	if err := c.events.UpdateOpenEvent(ctx, zone.ID, model.EventPatch{EndTime: &end}); err != nil {
		return model.ActionEvent{}, fmt.Errorf("closing superseded event for zone %d: %w", zone.ID, err)
	}

	active := true
	patch := model.ZonePatch{Active: &active}
	event.StartTime = now
	if event.HasAction(string(model.ActionWatering)) {
		label := model.MomentLabel(now, now.In(c.loc))
		patch.LastWatered = &label
	}

	updated, err := c.zones.Update(ctx, zone.ID, patch)
	if err != nil {
		return model.ActionEvent{}, fmt.Errorf("activating zone %d: %w", zone.ID, err)
	}

	created, err := c.events.Create(ctx, event)
	if err != nil {
		restore := model.ZonePatch{Active: &zone.Active, LastWatered: &zone.LastWatered}
		if _, rerr := c.zones.Update(ctx, zone.ID, restore); rerr != nil {
			log.Error().Err(rerr).Int("zone_id", zone.ID).Msg("Failed to restore zone after event create failure")
		}
		return model.ActionEvent{}, fmt.Errorf("recording activation for zone %d: %w", zone.ID, err)
	}

	if window > 0 {
		c.armLocked(zone.ID, created.ID, window)
	}

	log.Info().
		Int("zone_id", zone.ID).
		Int("event_id", created.ID).
		Strs("actions", created.Actions).
		Bool("manual", created.IsManual).
		Dur("window", window).
		Msg("Zone activated")

	datadog.Count("zone.activation", 1, datadog.ZoneTags(updated)...)
	c.publisher.PublishZone(updated)
	c.publisher.PublishEvent(created)
	return created, nil
}

// deactivateLocked closes the activation at end. A pending timer is only
// cancelled once both writes have succeeded, so a failed switch-off still
// stops on schedule.
func (c *Controller) deactivateLocked(ctx context.Context, zoneID int, reason string, end time.Time) (model.Zone, error) {
	open, hasOpen, err := c.events.FindOpen(ctx, zoneID)
	if err != nil {
		return model.Zone{}, fmt.Errorf("finding open event for zone %d: %w", zoneID, err)
	}

	inactive := false
	updated, err := c.zones.Update(ctx, zoneID, model.ZonePatch{Active: &inactive})
	if err != nil {
		return model.Zone{}, fmt.Errorf("deactivating zone %d: %w", zoneID, err)
	}

	if err := c.events.UpdateOpenEvent(ctx, zoneID, model.EventPatch{EndTime: &end}); err != nil {
		active := true
		if _, rerr := c.zones.Update(ctx, zoneID, model.ZonePatch{Active: &active}); rerr != nil {
			log.Error().Err(rerr).Int("zone_id", zoneID).Msg("Failed to restore zone after event close failure")
		}
		return model.Zone{}, fmt.Errorf("closing event for zone %d: %w", zoneID, err)
	}
	c.cancelLocked(zoneID)

	log.Info().
		Int("zone_id", zoneID).
		Str("reason", reason).
		Msg("Zone deactivated")

	datadog.Count("zone.deactivation", 1, datadog.ZoneTags(updated)...)
	c.publisher.PublishZone(updated)
	if hasOpen {
		c.publisher.PublishEvent(model.EventPatch{EndTime: &end}.Apply(open))
	}
	return updated, nil
}

func (c *Controller) armLocked(zoneID, eventID int, window time.Duration) {
	timer := c.clock.AfterFunc(window, func() {
		c.expire(zoneID, eventID)
	})

	c.mu.Lock()
	if prev, ok := c.pending[zoneID]; ok {
		prev.timer.Stop()
	}
	c.pending[zoneID] = pendingDeactivation{eventID: eventID, timer: timer}
	c.mu.Unlock()
}

func (c *Controller) cancelLocked(zoneID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.pending[zoneID]; ok {
		p.timer.Stop()
		delete(c.pending, zoneID)
	}
}

// expire runs when a deactivation timer fires.
func (c *Controller) expire(zoneID, eventID int) {
	lock := c.zoneLock(zoneID)
	lock.Lock()
	defer lock.Unlock()

	c.mu.Lock()
	p, ok := c.pending[zoneID]
	if !ok || p.eventID != eventID {
		c.mu.Unlock()
		log.Debug().Int("zone_id", zoneID).Int("event_id", eventID).Msg("Ignoring stale deactivation timer")
		return
	}
	delete(c.pending, zoneID)
	c.mu.Unlock()

	if _, err := c.deactivateLocked(context.Background(), zoneID, "timer", c.clock.Now()); err != nil {
		err = fmt.Errorf("%w: %w", model.ErrTransientUpdate, err)
		log.Error().
			Err(err).
			Int("zone_id", zoneID).
			Int("event_id", eventID).
			Msg("Timed deactivation failed, event left open")
		c.notify("Zone deactivation failed", fmt.Sprintf("Zone %d could not be switched off: %v", zoneID, err))
	}
}

func (c *Controller) notify(title, message string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Send(title, message); err != nil {
		log.Warn().Err(err).Str("title", title).Msg("Failed to send notification")
	}
}

func (c *Controller) zoneLock(zoneID int) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[zoneID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[zoneID] = lock
	}
	return lock
}
