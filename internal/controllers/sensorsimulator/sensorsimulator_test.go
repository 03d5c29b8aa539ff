package sensorsimulator

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

var start = time.Date(2024, 1, 1, 5, 30, 0, 0, time.UTC)

type recorder struct {
	zones []model.Zone
}

func (r *recorder) RecordReading(z model.Zone, _ time.Time) {
	r.zones = append(r.zones, z)
}

type failingZones struct {
	*store.ZoneStore
	failID int
}

func (f *failingZones) Update(ctx context.Context, id int, patch model.ZonePatch) (model.Zone, error) {
	if id == f.failID {
		return model.Zone{}, errors.New("write failed")
	}
	return f.ZoneStore.Update(ctx, id, patch)
}

func edgeZones() []model.Zone {
	return []model.Zone{
		{ID: 1, Name: "Floor", Readings: model.Readings{Temperature: 15, Humidity: 30, Moisture: 45, Light: 100, CO2: 350}},
		{ID: 2, Name: "Ceiling", Readings: model.Readings{Temperature: 35, Humidity: 95, Moisture: 85, Light: 10000, CO2: 1500}},
		{ID: 3, Name: "Middle", Readings: model.Readings{Temperature: 25, Humidity: 60, Moisture: 65, Light: 5000, CO2: 800}},
	}
}

func TestReadingsStayInBounds(t *testing.T) {
	ctx := context.Background()
	zones := store.NewZoneStore(edgeZones())
	sim := New(zones, clock.NewFake(start), rand.New(rand.NewSource(42)))

	for i := 0; i < 2000; i++ {
		require.NoError(t, sim.Tick(ctx))
	}

	all, err := zones.FindAll(ctx)
	require.NoError(t, err)
	for _, z := range all {
		assert.True(t, z.InBounds(), "zone %d out of bounds: %+v", z.ID, z.Readings)
		assert.Equal(t, z.Temperature, math.Round(z.Temperature*10)/10, "temperature keeps one decimal")
	}
}

func TestStepSizes(t *testing.T) {
	sim := New(store.NewZoneStore(nil), clock.NewFake(start), rand.New(rand.NewSource(7)))
	base := edgeZones()[2].Readings

	for i := 0; i < 1000; i++ {
		next := sim.step(base)
		assert.LessOrEqual(t, math.Abs(next.Temperature-base.Temperature), 0.5+1e-9)
		assert.LessOrEqual(t, math.Abs(next.Humidity-base.Humidity), 2.0)
		assert.LessOrEqual(t, math.Abs(next.Moisture-base.Moisture), 2.0)
		assert.LessOrEqual(t, math.Abs(next.Light-base.Light), 250.0)
		assert.LessOrEqual(t, math.Abs(next.CO2-base.CO2), 25.0)
		assert.Equal(t, next.Humidity, math.Trunc(next.Humidity))
	}
}

func TestTickOnlyWritesReadings(t *testing.T) {
	ctx := context.Background()
	zones := store.NewZoneStore([]model.Zone{{ID: 1, Name: "Bench", Active: true, LastWatered: "Today, 6:00 AM", Readings: edgeZones()[2].Readings}})
	sim := New(zones, clock.NewFake(start), rand.New(rand.NewSource(1)))

	require.NoError(t, sim.Tick(ctx))

	z, err := zones.FindByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, z.Active)
	assert.Equal(t, "Bench", z.Name)
	assert.Equal(t, "Today, 6:00 AM", z.LastWatered)
}

func TestFailingZoneIsSkipped(t *testing.T) {
	ctx := context.Background()
	zones := &failingZones{ZoneStore: store.NewZoneStore(edgeZones()), failID: 2}
	rec := &recorder{}
	sim := New(zones, clock.NewFake(start), rand.New(rand.NewSource(3)), rec)

	require.NoError(t, sim.Tick(ctx))

	require.Len(t, rec.zones, 2)
	assert.Equal(t, 1, rec.zones[0].ID)
	assert.Equal(t, 3, rec.zones[1].ID)
}

func TestDeterministicWithSeed(t *testing.T) {
	ctx := context.Background()
	run := func() []model.Zone {
		zones := store.NewZoneStore(edgeZones())
		sim := New(zones, clock.NewFake(start), rand.New(rand.NewSource(99)))
		for i := 0; i < 10; i++ {
			require.NoError(t, sim.Tick(ctx))
		}
		all, err := zones.FindAll(ctx)
		require.NoError(t, err)
		return all
	}
	assert.Equal(t, run(), run())
}
