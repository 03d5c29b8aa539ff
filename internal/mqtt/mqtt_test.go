package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/greenhouse-controller/internal/config"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

func TestTopics(t *testing.T) {
	tests := []struct {
		prefix string
		zone   string
		events string
		status string
	}{
		{"greenhouse", "greenhouse/zones/3/state", "greenhouse/events", "greenhouse/status"},
		{"/site/gh1/", "site/gh1/zones/3/state", "site/gh1/events", "site/gh1/status"},
		{"", "greenhouse/zones/3/state", "greenhouse/events", "greenhouse/status"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			topics := Topics{Prefix: tt.prefix}
			assert.Equal(t, tt.zone, topics.ZoneState(3))
			assert.Equal(t, tt.events, topics.Events())
			assert.Equal(t, tt.status, topics.Status())
		})
	}
}

func TestZonePayload(t *testing.T) {
	payload, err := ZonePayload(model.Zone{
		ID:       2,
		Name:     "Saffron Crocus",
		Active:   true,
		Readings: model.Readings{Temperature: 17.2, Humidity: 55, Moisture: 62, Light: 7800, CO2: 420},
	})
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &doc))
	assert.Equal(t, float64(2), doc["id"])
	assert.Equal(t, true, doc["active"])
	assert.Equal(t, 17.2, doc["temperature"])
	assert.Contains(t, doc, "updatedAt")
}

func TestConnectDisabled(t *testing.T) {
	_, err := Connect(config.MQTTConfig{Enabled: false})
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestPublishWithoutClientIsDropped(t *testing.T) {
	p := &Publisher{topics: Topics{Prefix: "greenhouse"}}
	assert.NotPanics(t, func() {
		p.PublishZone(model.Zone{ID: 1})
		p.PublishEvent(model.ActionEvent{ID: 1})
		p.Close()
	})
}
