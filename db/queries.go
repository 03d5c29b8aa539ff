package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

const zoneColumns = `id, name, active, temperature, humidity, moisture, light, co2, last_watered, next_scheduled, crop_type`

func scanZone(row scanner) (model.Zone, error) {
	var z model.Zone
	err := row.Scan(&z.ID, &z.Name, &z.Active, &z.Temperature, &z.Humidity, &z.Moisture, &z.Light, &z.CO2, &z.LastWatered, &z.NextScheduled, &z.CropType)
	return z, err
}

// GetAllZones retrieves all zones in id order.
func GetAllZones(ctx context.Context, q querier) ([]model.Zone, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+zoneColumns+` FROM zones ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	zones := []model.Zone{}
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// GetZoneByID retrieves a specific zone by its ID.
func GetZoneByID(ctx context.Context, q querier, id int) (model.Zone, error) {
	z, err := scanZone(q.QueryRowContext(ctx, `SELECT `+zoneColumns+` FROM zones WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Zone{}, model.NotFound("zone", id)
	}
	if err != nil {
		return model.Zone{}, fmt.Errorf("failed to get zone %d: %w", id, err)
	}
	return z, nil
}

const scheduleColumns = `id, name, start_time, days, zones, duration, active, actions`

func scanSchedule(row scanner) (model.Schedule, error) {
	var (
		s                             model.Schedule
		startTime, days, zones, acts string
	)
	if err := row.Scan(&s.ID, &s.Name, &startTime, &days, &zones, &s.Duration, &s.Active, &acts); err != nil {
		return s, err
	}
	t, err := model.ParseTimeOfDay(startTime)
	if err != nil {
		return s, fmt.Errorf("schedule %d: %w", s.ID, err)
	}
	s.Time = t
	if err := json.Unmarshal([]byte(days), &s.Days); err != nil {
		return s, fmt.Errorf("schedule %d days: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(zones), &s.Zones); err != nil {
		return s, fmt.Errorf("schedule %d zones: %w", s.ID, err)
	}
	if err := json.Unmarshal([]byte(acts), &s.Actions); err != nil {
		return s, fmt.Errorf("schedule %d actions: %w", s.ID, err)
	}
	return s, nil
}

func GetAllSchedules(ctx context.Context, q querier) ([]model.Schedule, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	schedules := []model.Schedule{}
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func GetScheduleByID(ctx context.Context, q querier, id int) (model.Schedule, error) {
	s, err := scanSchedule(q.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schedule{}, model.NotFound("schedule", id)
	}
	if err != nil {
		return model.Schedule{}, fmt.Errorf("failed to get schedule %d: %w", id, err)
	}
	return s, nil
}

const eventColumns = `id, zone_id, start_time, end_time, is_manual, is_scheduled, schedule_id, actions`

func scanEvent(row scanner) (model.ActionEvent, error) {
	var (
		e          model.ActionEvent
		start      string
		end        sql.NullString
		scheduleID sql.NullInt64
		actions    string
	)
	if err := row.Scan(&e.ID, &e.ZoneID, &start, &end, &e.IsManual, &e.IsScheduled, &scheduleID, &actions); err != nil {
		return e, err
	}
	t, err := parseTime(start)
	if err != nil {
		return e, fmt.Errorf("event %d start_time: %w", e.ID, err)
	}
	e.StartTime = t
	if end.Valid {
		t, err := parseTime(end.String)
		if err != nil {
			return e, fmt.Errorf("event %d end_time: %w", e.ID, err)
		}
		e.EndTime = &t
	}
	if scheduleID.Valid {
		id := int(scheduleID.Int64)
		e.ScheduleID = &id
	}
	if err := json.Unmarshal([]byte(actions), &e.Actions); err != nil {
		return e, fmt.Errorf("event %d actions: %w", e.ID, err)
	}
	return e, nil
}

func queryEvents(ctx context.Context, q querier, query string, args ...interface{}) ([]model.ActionEvent, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []model.ActionEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func GetAllEvents(ctx context.Context, q querier) ([]model.ActionEvent, error) {
	return queryEvents(ctx, q, `SELECT `+eventColumns+` FROM action_events ORDER BY id`)
}

func GetEventsByZone(ctx context.Context, q querier, zoneID int) ([]model.ActionEvent, error) {
	return queryEvents(ctx, q, `SELECT `+eventColumns+` FROM action_events WHERE zone_id = ? ORDER BY id`, zoneID)
}

// GetOpenEvent returns the event for zoneID with no end time, if any.
func GetOpenEvent(ctx context.Context, q querier, zoneID int) (model.ActionEvent, bool, error) {
	e, err := scanEvent(q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM action_events WHERE zone_id = ? AND end_time IS NULL`, zoneID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ActionEvent{}, false, nil
	}
	if err != nil {
		return model.ActionEvent{}, false, fmt.Errorf("failed to get open event for zone %d: %w", zoneID, err)
	}
	return e, true, nil
}

// GetSmartRules returns the stored rules, or all-false when none are stored.
func GetSmartRules(ctx context.Context, q querier) (model.SmartRules, error) {
	var r model.SmartRules
	err := q.QueryRowContext(ctx, `SELECT weather_adjust, moisture_adjust, temperature_adjust, light_adjust FROM smart_rules WHERE id = 1`).
		Scan(&r.WeatherAdjust, &r.MoistureAdjust, &r.TemperatureAdjust, &r.LightAdjust)
	if errors.Is(err, sql.ErrNoRows) {
		return model.SmartRules{}, nil
	}
	if err != nil {
		return r, fmt.Errorf("failed to get smart rules: %w", err)
	}
	return r, nil
}

const cropColumns = `id, name, type, optimal_temperature, optimal_humidity, optimal_light, optimal_soil_moisture, growth_stage, planted_date, harvest_date, notes`

func scanCrop(row scanner) (model.Crop, error) {
	var c model.Crop
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.OptimalTemperature, &c.OptimalHumidity, &c.OptimalLight, &c.OptimalSoilMoisture, &c.GrowthStage, &c.PlantedDate, &c.HarvestDate, &c.Notes)
	return c, err
}

func GetAllCrops(ctx context.Context, q querier) ([]model.Crop, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+cropColumns+` FROM crops ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query crops: %w", err)
	}
	defer rows.Close()

	crops := []model.Crop{}
	for rows.Next() {
		c, err := scanCrop(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crop: %w", err)
		}
		crops = append(crops, c)
	}
	return crops, rows.Err()
}

func GetCropByID(ctx context.Context, q querier, id int) (model.Crop, error) {
	c, err := scanCrop(q.QueryRowContext(ctx, `SELECT `+cropColumns+` FROM crops WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Crop{}, model.NotFound("crop", id)
	}
	if err != nil {
		return model.Crop{}, fmt.Errorf("failed to get crop %d: %w", id, err)
	}
	return c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
