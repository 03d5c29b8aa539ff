package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

// StartTransaction starts a new database transaction.
func StartTransaction(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction. Rolling back a
// committed transaction is harmless, so it is safe to defer.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

// UpdateZone reads, merges and writes a zone in one transaction.
func UpdateZone(ctx context.Context, db *sql.DB, id int, patch model.ZonePatch) (model.Zone, error) {
	tx, err := StartTransaction(ctx, db)
	if err != nil {
		return model.Zone{}, err
	}
	defer RollbackTransaction(tx)

	z, err := GetZoneByID(ctx, tx, id)
	if err != nil {
		return model.Zone{}, err
	}
	z = patch.Apply(z)

	_, err = tx.ExecContext(ctx, `UPDATE zones SET name = ?, active = ?, temperature = ?, humidity = ?, moisture = ?, light = ?, co2 = ?, last_watered = ?, next_scheduled = ?, crop_type = ? WHERE id = ?`,
		z.Name, z.Active, z.Temperature, z.Humidity, z.Moisture, z.Light, z.CO2, z.LastWatered, z.NextScheduled, z.CropType, z.ID)
	if err != nil {
		return model.Zone{}, fmt.Errorf("update zone %d: %w", id, err)
	}
	return z, CommitTransaction(tx)
}

// InsertSchedule assigns the next id and stores s as active.
func InsertSchedule(ctx context.Context, db *sql.DB, s model.Schedule) (model.Schedule, error) {
	tx, err := StartTransaction(ctx, db)
	if err != nil {
		return model.Schedule{}, err
	}
	defer RollbackTransaction(tx)

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM schedules`).Scan(&s.ID); err != nil {
		return model.Schedule{}, fmt.Errorf("next schedule id: %w", err)
	}
	s.Active = true

	_, err = tx.ExecContext(ctx, `INSERT INTO schedules (id, name, start_time, days, zones, duration, active, actions) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Time.String(), marshalJSON(s.Days), marshalJSON(s.Zones), s.Duration, s.Active, marshalJSON(s.Actions))
	if err != nil {
		return model.Schedule{}, fmt.Errorf("insert schedule: %w", err)
	}
	return s, CommitTransaction(tx)
}

func UpdateSchedule(ctx context.Context, db *sql.DB, id int, patch model.SchedulePatch) (model.Schedule, error) {
	tx, err := StartTransaction(ctx, db)
	if err != nil {
		return model.Schedule{}, err
	}
	defer RollbackTransaction(tx)

	s, err := GetScheduleByID(ctx, tx, id)
	if err != nil {
		return model.Schedule{}, err
	}
	s = patch.Apply(s)

	_, err = tx.ExecContext(ctx, `UPDATE schedules SET name = ?, start_time = ?, days = ?, zones = ?, duration = ?, active = ?, actions = ? WHERE id = ?`,
		s.Name, s.Time.String(), marshalJSON(s.Days), marshalJSON(s.Zones), s.Duration, s.Active, marshalJSON(s.Actions), id)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("update schedule %d: %w", id, err)
	}
	return s, CommitTransaction(tx)
}

func DeleteSchedule(ctx context.Context, db *sql.DB, id int) error {
	return deleteByID(ctx, db, "schedules", "schedule", id)
}

func InsertEvent(ctx context.Context, db *sql.DB, e model.ActionEvent) (model.ActionEvent, error) {
	res, err := db.ExecContext(ctx, `INSERT INTO action_events (zone_id, start_time, end_time, is_manual, is_scheduled, schedule_id, actions) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ZoneID, formatTime(e.StartTime), formatOptionalTime(e.EndTime), e.IsManual, e.IsScheduled, e.ScheduleID, marshalJSON(e.Actions))
	if err != nil {
		return model.ActionEvent{}, fmt.Errorf("insert event for zone %d: %w", e.ZoneID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.ActionEvent{}, fmt.Errorf("insert event id: %w", err)
	}
	e.ID = int(id)
	return e.Clone(), nil
}

// CloseOpenEvent sets the end time of the zone's open event. A zone without
// an open event is left alone.
func CloseOpenEvent(ctx context.Context, db *sql.DB, zoneID int, patch model.EventPatch) error {
	if patch.EndTime == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, `UPDATE action_events SET end_time = ? WHERE zone_id = ? AND end_time IS NULL`,
		formatTime(*patch.EndTime), zoneID)
	if err != nil {
		return fmt.Errorf("close open event for zone %d: %w", zoneID, err)
	}
	return nil
}

func SetSmartRules(ctx context.Context, db *sql.DB, rules model.SmartRules) error {
	return setSmartRules(ctx, db, rules)
}

func setSmartRules(ctx context.Context, q querier, r model.SmartRules) error {
	_, err := q.ExecContext(ctx, `INSERT OR REPLACE INTO smart_rules (id, weather_adjust, moisture_adjust, temperature_adjust, light_adjust) VALUES (1, ?, ?, ?, ?)`,
		r.WeatherAdjust, r.MoistureAdjust, r.TemperatureAdjust, r.LightAdjust)
	if err != nil {
		return fmt.Errorf("set smart rules: %w", err)
	}
	return nil
}

func InsertCrop(ctx context.Context, db *sql.DB, c model.Crop) (model.Crop, error) {
	tx, err := StartTransaction(ctx, db)
	if err != nil {
		return model.Crop{}, err
	}
	defer RollbackTransaction(tx)

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM crops`).Scan(&c.ID); err != nil {
		return model.Crop{}, fmt.Errorf("next crop id: %w", err)
	}
	if err := insertCrop(ctx, tx, c); err != nil {
		return model.Crop{}, err
	}
	return c, CommitTransaction(tx)
}

func insertCrop(ctx context.Context, q querier, c model.Crop) error {
	_, err := q.ExecContext(ctx, `INSERT OR REPLACE INTO crops (`+cropColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Type, c.OptimalTemperature, c.OptimalHumidity, c.OptimalLight, c.OptimalSoilMoisture, c.GrowthStage, c.PlantedDate, c.HarvestDate, c.Notes)
	if err != nil {
		return fmt.Errorf("insert crop %d: %w", c.ID, err)
	}
	return nil
}

func UpdateCrop(ctx context.Context, db *sql.DB, id int, c model.Crop) (model.Crop, error) {
	c.ID = id
	res, err := db.ExecContext(ctx, `UPDATE crops SET name = ?, type = ?, optimal_temperature = ?, optimal_humidity = ?, optimal_light = ?, optimal_soil_moisture = ?, growth_stage = ?, planted_date = ?, harvest_date = ?, notes = ? WHERE id = ?`,
		c.Name, c.Type, c.OptimalTemperature, c.OptimalHumidity, c.OptimalLight, c.OptimalSoilMoisture, c.GrowthStage, c.PlantedDate, c.HarvestDate, c.Notes, id)
	if err != nil {
		return model.Crop{}, fmt.Errorf("update crop %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Crop{}, model.NotFound("crop", id)
	}
	return c, nil
}

func DeleteCrop(ctx context.Context, db *sql.DB, id int) error {
	return deleteByID(ctx, db, "crops", "crop", id)
}

func deleteByID(ctx context.Context, db *sql.DB, table, kind string, id int) error {
	res, err := db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound(kind, id)
	}
	return nil
}
