package datadog

import (
	"strconv"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/env"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

var dogstatsd statsd.ClientInterface

func InitMetrics() {
	if !env.Cfg.Datadog.Enabled {
		log.Info().Msg("Datadog metrics disabled")
		return
	}

	client, err := statsd.New(env.Cfg.Datadog.AgentAddr,
		statsd.WithNamespace(env.Cfg.Datadog.Namespace),
		statsd.WithTags(env.Cfg.Datadog.Tags),
	)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create DogStatsD client")
		return
	}
	dogstatsd = client

	log.Info().
		Str("addr", env.Cfg.Datadog.AgentAddr).
		Str("namespace", env.Cfg.Datadog.Namespace).
		Strs("tags", env.Cfg.Datadog.Tags).
		Msg("Datadog metrics initialized")
}

func Close() {
	if dogstatsd == nil {
		return
	}
	if err := dogstatsd.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close DogStatsD client")
	}
	dogstatsd = nil
}

func Gauge(name string, value float64, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Gauge(name, value, tags, 1)
		if err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit gauge metric")
		}
	}
}

func Count(name string, value int64, tags ...string) {
	if dogstatsd != nil {
		err := dogstatsd.Count(name, value, tags, 1)
		if err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to emit count metric")
		}
	}
}

func ZoneTags(zone model.Zone) []string {
	return []string{
		"zone_id:" + strconv.Itoa(zone.ID),
		"zone_name:" + zone.Name,
	}
}

// Gauges reports every simulated reading as a gauge tagged with its zone.
type Gauges struct{}

func (Gauges) RecordReading(zone model.Zone, _ time.Time) {
	tags := ZoneTags(zone)
	Gauge("zone.temperature", zone.Temperature, tags...)
	Gauge("zone.humidity", zone.Humidity, tags...)
	Gauge("zone.moisture", zone.Moisture, tags...)
	Gauge("zone.light", zone.Light, tags...)
	Gauge("zone.co2", zone.CO2, tags...)
}
