package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

func testZones() []model.Zone {
	return []model.Zone{
		{ID: 1, Name: "Vanilla Orchids", Readings: model.Readings{Temperature: 26.5, Humidity: 82, Moisture: 68, Light: 5200, CO2: 450}},
		{ID: 2, Name: "Saffron Crocus", Readings: model.Readings{Temperature: 17.2, Humidity: 55, Moisture: 62, Light: 7800, CO2: 420}},
	}
}

func testSchedule(name string) model.Schedule {
	return model.Schedule{
		Name:     name,
		Time:     model.TimeOfDay{Hour: 5, Minute: 30},
		Days:     model.MustWeekdays("Mon"),
		Zones:    []int{1},
		Duration: 15,
		Actions:  []model.ActionKind{model.ActionWatering},
	}
}

func TestZoneStore(t *testing.T) {
	ctx := context.Background()
	s := NewZoneStore(testZones())

	zones, err := s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.Equal(t, "Vanilla Orchids", zones[0].Name, "definition order")

	t.Run("copy on read", func(t *testing.T) {
		zones[0].Name = "mutated"
		zones[0].Active = true
		z, err := s.FindByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Vanilla Orchids", z.Name)
		assert.False(t, z.Active)
	})

	t.Run("shallow merge", func(t *testing.T) {
		active := true
		z, err := s.Update(ctx, 2, model.ZonePatch{Active: &active})
		require.NoError(t, err)
		assert.True(t, z.Active)
		assert.Equal(t, "Saffron Crocus", z.Name)
		assert.Equal(t, 17.2, z.Temperature)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.FindByID(ctx, 99)
		assert.True(t, errors.Is(err, model.ErrNotFound))
		_, err = s.Update(ctx, 99, model.ZonePatch{})
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})
}

func TestScheduleStoreAssignsIDs(t *testing.T) {
	ctx := context.Background()

	empty := NewScheduleStore(nil)
	created, err := empty.Create(ctx, testSchedule("first"))
	require.NoError(t, err)
	assert.Equal(t, 1, created.ID)

	seeded := testSchedule("seeded")
	seeded.ID = 7
	s := NewScheduleStore([]model.Schedule{seeded})

	inactive := testSchedule("second")
	inactive.Active = false
	created, err = s.Create(ctx, inactive)
	require.NoError(t, err)
	assert.Equal(t, 8, created.ID)
	assert.True(t, created.Active, "new schedules are active")

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestScheduleStoreUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewScheduleStore(nil)
	created, err := s.Create(ctx, testSchedule("first"))
	require.NoError(t, err)

	active := false
	updated, err := s.Update(ctx, created.ID, model.SchedulePatch{Active: &active})
	require.NoError(t, err)
	assert.False(t, updated.Active)

	updated.Zones[0] = 42
	stored, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, stored.Zones, "returned slices are copies")

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.FindByID(ctx, created.ID)
	assert.True(t, errors.Is(err, model.ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, created.ID), model.ErrNotFound))

	_, err = s.Update(ctx, 123, model.SchedulePatch{Active: &active})
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestEventLog(t *testing.T) {
	ctx := context.Background()
	l := NewEventLog(nil)
	start := time.Date(2024, 1, 1, 5, 30, 0, 0, time.UTC)

	first, err := l.Create(ctx, model.ActionEvent{ZoneID: 1, StartTime: start, IsManual: true, Actions: []string{"Watering"}})
	require.NoError(t, err)
	assert.Equal(t, 1, first.ID)

	second, err := l.Create(ctx, model.ActionEvent{ZoneID: 2, StartTime: start, Actions: []string{"Watering"}})
	require.NoError(t, err)
	assert.Equal(t, 2, second.ID)

	t.Run("one open event per zone", func(t *testing.T) {
		_, err := l.Create(ctx, model.ActionEvent{ZoneID: 1, StartTime: start})
		assert.Error(t, err)
	})

	t.Run("close open event", func(t *testing.T) {
		end := start.Add(10 * time.Minute)
		require.NoError(t, l.UpdateOpenEvent(ctx, 1, model.EventPatch{EndTime: &end}))

		_, open, err := l.FindOpen(ctx, 1)
		require.NoError(t, err)
		assert.False(t, open)

		events, err := l.FindByZone(ctx, 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.NotNil(t, events[0].EndTime)
		assert.Equal(t, end, *events[0].EndTime)
	})

	t.Run("missing open event is a no-op", func(t *testing.T) {
		end := start.Add(time.Hour)
		assert.NoError(t, l.UpdateOpenEvent(ctx, 1, model.EventPatch{EndTime: &end}))
		assert.NoError(t, l.UpdateOpenEvent(ctx, 99, model.EventPatch{EndTime: &end}))

		events, err := l.FindByZone(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, start.Add(10*time.Minute), *events[0].EndTime, "closed event is not touched again")
	})

	t.Run("open index survives restore", func(t *testing.T) {
		all, err := l.FindAll(ctx)
		require.NoError(t, err)
		restored := NewEventLog(all)

		ev, open, err := restored.FindOpen(ctx, 2)
		require.NoError(t, err)
		assert.True(t, open)
		assert.Equal(t, second.ID, ev.ID)

		next, err := restored.Create(ctx, model.ActionEvent{ZoneID: 3, StartTime: start})
		require.NoError(t, err)
		assert.Equal(t, 3, next.ID)
	})
}

func TestCropStore(t *testing.T) {
	ctx := context.Background()
	s := NewCropStore([]model.Crop{{ID: 1, Name: "Vanilla Orchid", Type: "Tropical Orchid"}})

	created, err := s.Create(ctx, model.Crop{Name: "Basil", Type: "Herb"})
	require.NoError(t, err)
	assert.Equal(t, 2, created.ID)

	updated, err := s.Update(ctx, 2, model.Crop{Name: "Thai Basil", Type: "Herb"})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ID)

	require.NoError(t, s.Delete(ctx, 1))
	_, err = s.FindByID(ctx, 1)
	assert.True(t, errors.Is(err, model.ErrNotFound))
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "greenhouse.json")

	sched := testSchedule("Morning Routine")
	sched.ID = 1
	sched.Active = true
	mem := NewMemory(Snapshot{
		Zones:      testZones(),
		Schedules:  []model.Schedule{sched},
		SmartRules: model.SmartRules{WeatherAdjust: true},
	})
	_, err := mem.Events.Create(ctx, model.ActionEvent{ZoneID: 1, StartTime: time.Date(2024, 1, 1, 5, 30, 0, 0, time.UTC), Actions: []string{"Watering"}})
	require.NoError(t, err)

	snap, err := mem.Snapshot(ctx)
	require.NoError(t, err)

	file := NewSnapshotFile(path)
	require.NoError(t, file.Save(snap))

	loaded, err := file.Load()
	require.NoError(t, err)

	restored := NewMemory(*loaded)
	schedules, err := restored.Schedules.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, model.TimeOfDay{Hour: 5, Minute: 30}, schedules[0].Time)
	assert.True(t, schedules[0].Days.Contains(time.Monday))

	_, open, err := restored.Events.FindOpen(ctx, 1)
	require.NoError(t, err)
	assert.True(t, open)

	rules, err := restored.Settings.SmartRules(ctx)
	require.NoError(t, err)
	assert.True(t, rules.WeatherAdjust)
}
