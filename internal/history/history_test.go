package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

var monday = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func seedWeek() []model.EnvironmentSample {
	var seed []model.EnvironmentSample
	for _, d := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		seed = append(seed, model.EnvironmentSample{Date: d, Temperature: 25, Humidity: 78, SoilMoisture: 65, Light: 5500, CO2: 440})
	}
	return seed
}

func TestSeededSamples(t *testing.T) {
	s := NewService(time.UTC, 7, seedWeek())

	samples := s.Samples()
	require.Len(t, samples, 7)
	assert.Equal(t, "Mon", samples[0].Date)
	assert.Equal(t, "Sun", samples[6].Date)
}

func TestRecordReadingAveragesPerDay(t *testing.T) {
	s := NewService(time.UTC, 7, seedWeek())

	s.RecordReading(model.Zone{ID: 1, Readings: model.Readings{Temperature: 20, Humidity: 60, Moisture: 50, Light: 1000, CO2: 400}}, monday)
	s.RecordReading(model.Zone{ID: 2, Readings: model.Readings{Temperature: 25.5, Humidity: 71, Moisture: 61, Light: 2001, CO2: 451}}, monday.Add(time.Hour))

	samples := s.Samples()
	require.Len(t, samples, 7, "the oldest seeded day rolls off")
	assert.Equal(t, "Tue", samples[0].Date)

	today := samples[6]
	assert.Equal(t, "Mon", today.Date)
	assert.Equal(t, 22.8, today.Temperature)
	assert.Equal(t, 66.0, today.Humidity)
	assert.Equal(t, 56.0, today.SoilMoisture)
	assert.Equal(t, 1501.0, today.Light)
	assert.Equal(t, 426.0, today.CO2)
}

func TestRollingWindow(t *testing.T) {
	s := NewService(time.UTC, 3, nil)
	for i := 0; i < 5; i++ {
		s.RecordReading(model.Zone{Readings: model.Readings{Temperature: float64(20 + i)}}, monday.AddDate(0, 0, i))
	}

	samples := s.Samples()
	require.Len(t, samples, 3)
	assert.Equal(t, []string{"Wed", "Thu", "Fri"}, []string{samples[0].Date, samples[1].Date, samples[2].Date})
	assert.Equal(t, 24.0, samples[2].Temperature)
}

func TestDayBoundaryUsesSiteTimezone(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	s := NewService(loc, 7, nil)

	// 2024-01-02 03:00 UTC is still Monday evening at the site.
	s.RecordReading(model.Zone{Readings: model.Readings{Temperature: 20}}, time.Date(2024, 1, 2, 3, 0, 0, 0, time.UTC))
	s.RecordReading(model.Zone{Readings: model.Readings{Temperature: 22}}, time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC))

	samples := s.Samples()
	require.Len(t, samples, 1)
	assert.Equal(t, "Mon", samples[0].Date)
	assert.Equal(t, 21.0, samples[0].Temperature)
}
