package influx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/config"
	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

const (
	Measurement = "zone_readings"

	pingTimeout = 10 * time.Second
)

var ErrDisabled = errors.New("influxdb disabled")

// Recorder writes every simulated reading as a point. Writes are batched
// by the client and never block the simulator.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
}

func Connect(cfg config.InfluxDBConfig) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushMS := cfg.FlushIntervalMS
	if flushMS <= 0 {
		flushMS = 1000
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushMS)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb ping: %w", err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("influxdb ping: server not healthy")
	}

	r := &Recorder{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	go func(errs <-chan error) {
		for err := range errs {
			log.Warn().Err(err).Msg("InfluxDB write failed")
		}
	}(r.writeAPI.Errors())

	log.Info().
		Str("url", cfg.URL).
		Str("org", cfg.Org).
		Str("bucket", cfg.Bucket).
		Msg("InfluxDB recorder initialized")
	return r, nil
}

func (r *Recorder) RecordReading(zone model.Zone, at time.Time) {
	if r == nil || r.writeAPI == nil {
		return
	}
	r.writeAPI.WritePoint(Point(zone, at))
}

// Close flushes pending points.
func (r *Recorder) Close() {
	if r == nil || r.client == nil {
		return
	}
	r.writeAPI.Flush()
	r.client.Close()
	log.Info().Msg("InfluxDB recorder closed")
}

func Point(zone model.Zone, at time.Time) *write.Point {
	return write.NewPoint(Measurement, readingTags(zone), readingFields(zone), at)
}

func readingTags(zone model.Zone) map[string]string {
	tags := map[string]string{
		"zone_id":   strconv.Itoa(zone.ID),
		"zone_name": zone.Name,
	}
	if zone.CropType != "" {
		tags["crop_type"] = zone.CropType
	}
	return tags
}

func readingFields(zone model.Zone) map[string]interface{} {
	return map[string]interface{}{
		"temperature": zone.Temperature,
		"humidity":    zone.Humidity,
		"moisture":    zone.Moisture,
		"light":       zone.Light,
		"co2":         zone.CO2,
		"active":      zone.Active,
	}
}
