package sensorsimulator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/clock"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

// Recorder receives every zone after its readings were persisted.
type Recorder interface {
	RecordReading(zone model.Zone, at time.Time)
}

// Simulator walks each zone's readings a small random step per tick.
type Simulator struct {
	zones     store.Zones
	clock     clock.Clock
	recorders []Recorder

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

func New(zones store.Zones, clk clock.Clock, rng *rand.Rand, recorders ...Recorder) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{
		zones:     zones,
		clock:     clk,
		rng:       rng,
		recorders: recorders,
	}
}

func (s *Simulator) AddRecorder(r Recorder) {
	s.recorders = append(s.recorders, r)
}

// Tick advances every zone by one step. A zone that fails to update is
// logged and skipped.
func (s *Simulator) Tick(ctx context.Context) error {
	zones, err := s.zones.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("loading zones: %w", err)
	}

	now := s.clock.Now()
	updated := 0
	for _, zone := range zones {
		next := s.step(zone.Readings)
		z, err := s.zones.Update(ctx, zone.ID, model.ZonePatch{Readings: &next})
		if err != nil {
			log.Error().Err(err).Int("zone_id", zone.ID).Msg("Failed to store simulated readings")
			continue
		}
		updated++

		for _, r := range s.recorders {
			r.RecordReading(z, now)
		}
	}

	log.Debug().Int("zones", updated).Msg("Simulated sensor readings")
	return nil
}

func (s *Simulator) step(r model.Readings) model.Readings {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := model.Readings{
		Temperature: math.Round((r.Temperature+s.rng.Float64()-0.5)*10) / 10,
		Humidity:    r.Humidity + float64(s.rng.Intn(5)-2),
		Moisture:    r.Moisture + float64(s.rng.Intn(5)-2),
		Light:       r.Light + float64(s.rng.Intn(501)-250),
		CO2:         r.CO2 + float64(s.rng.Intn(51)-25),
	}
	return next.Clamp()
}
