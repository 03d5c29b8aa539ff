package history

import (
	"math"
	"sync"
	"time"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

const DefaultDays = 7

// Service keeps a rolling per-day average of the readings of every zone.
type Service struct {
	mu      sync.RWMutex
	loc     *time.Location
	maxDays int
	days    []day
}

type day struct {
	date   time.Time // local midnight, zero for seeded days
	seeded model.EnvironmentSample
	sums   model.Readings
	count  int
}

// NewService starts from seed, the samples shown until real readings
// replace them. The oldest days fall off once maxDays is reached.
func NewService(loc *time.Location, maxDays int, seed []model.EnvironmentSample) *Service {
	if maxDays <= 0 {
		maxDays = DefaultDays
	}
	if loc == nil {
		loc = time.Local
	}
	s := &Service{loc: loc, maxDays: maxDays}
	for _, sample := range seed {
		s.days = append(s.days, day{seeded: sample})
	}
	s.trimLocked()
	return s
}

func (s *Service) RecordReading(zone model.Zone, at time.Time) {
	local := at.In(s.loc)
	y, m, d := local.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.days); n == 0 || !s.days[n-1].date.Equal(date) {
		s.days = append(s.days, day{date: date})
		s.trimLocked()
	}
	last := &s.days[len(s.days)-1]
	last.sums.Temperature += zone.Temperature
	last.sums.Humidity += zone.Humidity
	last.sums.Moisture += zone.Moisture
	last.sums.Light += zone.Light
	last.sums.CO2 += zone.CO2
	last.count++
}

// Samples returns one averaged sample per day, oldest first.
func (s *Service) Samples() []model.EnvironmentSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.EnvironmentSample, 0, len(s.days))
	for _, d := range s.days {
		out = append(out, d.sample())
	}
	return out
}

func (s *Service) trimLocked() {
	if extra := len(s.days) - s.maxDays; extra > 0 {
		s.days = append([]day(nil), s.days[extra:]...)
	}
}

func (d day) sample() model.EnvironmentSample {
	if d.count == 0 {
		return d.seeded
	}
	n := float64(d.count)
	return model.EnvironmentSample{
		Date:         d.date.Weekday().String()[:3],
		Temperature:  math.Round(d.sums.Temperature/n*10) / 10,
		Humidity:     math.Round(d.sums.Humidity / n),
		SoilMoisture: math.Round(d.sums.Moisture / n),
		Light:        math.Round(d.sums.Light / n),
		CO2:          math.Round(d.sums.CO2 / n),
	}
}
