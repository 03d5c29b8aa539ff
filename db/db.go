package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS zones (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	active BOOLEAN NOT NULL DEFAULT FALSE,
	temperature REAL NOT NULL,
	humidity REAL NOT NULL,
	moisture REAL NOT NULL,
	light REAL NOT NULL,
	co2 REAL NOT NULL,
	last_watered TEXT NOT NULL DEFAULT '',
	next_scheduled TEXT NOT NULL DEFAULT '',
	crop_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS schedules (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	start_time TEXT NOT NULL,
	days TEXT NOT NULL,
	zones TEXT NOT NULL,
	duration INTEGER NOT NULL CHECK (duration > 0),
	active BOOLEAN NOT NULL DEFAULT TRUE,
	actions TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS action_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	zone_id INTEGER NOT NULL,
	start_time TEXT NOT NULL,
	end_time TEXT,
	is_manual BOOLEAN NOT NULL DEFAULT FALSE,
	is_scheduled BOOLEAN NOT NULL DEFAULT FALSE,
	schedule_id INTEGER,
	actions TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_action_events_zone ON action_events (zone_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_action_events_open ON action_events (zone_id) WHERE end_time IS NULL;

CREATE TABLE IF NOT EXISTS smart_rules (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	weather_adjust BOOLEAN NOT NULL,
	moisture_adjust BOOLEAN NOT NULL,
	temperature_adjust BOOLEAN NOT NULL,
	light_adjust BOOLEAN NOT NULL
);

CREATE TABLE IF NOT EXISTS crops (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	optimal_temperature TEXT NOT NULL DEFAULT '',
	optimal_humidity TEXT NOT NULL DEFAULT '',
	optimal_light TEXT NOT NULL DEFAULT '',
	optimal_soil_moisture TEXT NOT NULL DEFAULT '',
	growth_stage TEXT NOT NULL DEFAULT '',
	planted_date TEXT NOT NULL DEFAULT '',
	harvest_date TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT ''
);
`

// Open opens the SQLite database at path and applies the schema. SQLite
// serialises writers, so the pool is held to one connection; this also keeps
// ":memory:" databases on a single shared connection.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := ApplySchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// IsSeeded reports whether any zones have been provisioned.
func IsSeeded(ctx context.Context, db *sql.DB) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM zones`).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count zones: %w", err)
	}
	return n > 0, nil
}

// SeedDatabase writes the snapshot in a single transaction. Existing rows
// with the same ids are replaced.
func SeedDatabase(ctx context.Context, db *sql.DB, snap store.Snapshot) error {
	tx, err := StartTransaction(ctx, db)
	if err != nil {
		return err
	}
	defer RollbackTransaction(tx)

	for _, z := range snap.Zones {
		_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO zones (id, name, active, temperature, humidity, moisture, light, co2, last_watered, next_scheduled, crop_type) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			z.ID, z.Name, z.Active, z.Temperature, z.Humidity, z.Moisture, z.Light, z.CO2, z.LastWatered, z.NextScheduled, z.CropType)
		if err != nil {
			return fmt.Errorf("failed to insert zone %d: %w", z.ID, err)
		}
	}

	for _, s := range snap.Schedules {
		_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO schedules (id, name, start_time, days, zones, duration, active, actions) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.Name, s.Time.String(), marshalJSON(s.Days), marshalJSON(s.Zones), s.Duration, s.Active, marshalJSON(s.Actions))
		if err != nil {
			return fmt.Errorf("failed to insert schedule %d: %w", s.ID, err)
		}
	}

	for _, e := range snap.Events {
		_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO action_events (id, zone_id, start_time, end_time, is_manual, is_scheduled, schedule_id, actions) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.ZoneID, formatTime(e.StartTime), formatOptionalTime(e.EndTime), e.IsManual, e.IsScheduled, e.ScheduleID, marshalJSON(e.Actions))
		if err != nil {
			return fmt.Errorf("failed to insert event %d: %w", e.ID, err)
		}
	}

	if err := setSmartRules(ctx, tx, snap.SmartRules); err != nil {
		return err
	}

	for _, c := range snap.Crops {
		if err := insertCrop(ctx, tx, c); err != nil {
			return err
		}
	}

	if err := CommitTransaction(tx); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	log.Info().
		Int("zones", len(snap.Zones)).
		Int("schedules", len(snap.Schedules)).
		Int("crops", len(snap.Crops)).
		Msg("Database seeded")
	return nil
}

func marshalJSON(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}
