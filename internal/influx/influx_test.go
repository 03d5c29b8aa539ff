package influx

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/greenhouse-controller/internal/config"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

var orchids = model.Zone{
	ID:       1,
	Name:     "Vanilla Orchids",
	Active:   true,
	CropType: "Vanilla Orchid",
	Readings: model.Readings{Temperature: 26.5, Humidity: 82, Moisture: 68, Light: 5200, CO2: 450},
}

func TestReadingTags(t *testing.T) {
	assert.Equal(t, map[string]string{
		"zone_id":   "1",
		"zone_name": "Vanilla Orchids",
		"crop_type": "Vanilla Orchid",
	}, readingTags(orchids))

	bare := orchids
	bare.CropType = ""
	assert.NotContains(t, readingTags(bare), "crop_type")
}

func TestReadingFields(t *testing.T) {
	fields := readingFields(orchids)
	assert.Len(t, fields, 6)
	assert.Equal(t, 26.5, fields["temperature"])
	assert.Equal(t, 450.0, fields["co2"])
	assert.Equal(t, true, fields["active"])
}

func TestPoint(t *testing.T) {
	at := time.Date(2024, 1, 1, 5, 30, 0, 0, time.UTC)
	p := Point(orchids, at)
	assert.Equal(t, Measurement, p.Name())
	assert.Equal(t, at, p.Time())
	assert.Len(t, p.TagList(), 3)
	assert.Len(t, p.FieldList(), 6)
}

func TestDisabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{})
	assert.True(t, errors.Is(err, ErrDisabled))

	var r *Recorder
	assert.NotPanics(t, func() {
		r.RecordReading(orchids, time.Now())
		r.Close()
	})
}
