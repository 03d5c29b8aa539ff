package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFile_Overrides(t *testing.T) {
	path := writeConfig(t, `
site:
  name: Test House
  timezone: UTC
storage:
  driver: sqlite
  sqlite_path: /tmp/gh.db
scheduler:
  simulator_interval_seconds: 5
  evaluator_interval_seconds: 15
logging:
  level: debug
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.ConfigFile)
	assert.Equal(t, "Test House", cfg.Site.Name)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 5*time.Second, cfg.SimulatorInterval())
	assert.Equal(t, 15*time.Second, cfg.EvaluatorInterval())
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)

	// untouched sections keep their defaults
	assert.Equal(t, 10*time.Minute, cfg.ManualWateringWindow())
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Len(t, cfg.Seed.Zones, 6)
	assert.Len(t, cfg.Seed.Schedules, 3)
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "site:\n  timezone: UTC\n")

	t.Setenv("GREENHOUSE_API_PORT", "9090")
	t.Setenv("GREENHOUSE_STORAGE_DRIVER", "sqlite")
	t.Setenv("GREENHOUSE_NTFY_TOPIC", "greenhouse-alerts")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "greenhouse-alerts", cfg.Ntfy.Topic)
}

func TestLoadFile_SeedFromYAML(t *testing.T) {
	path := writeConfig(t, `
site:
  timezone: UTC
seed:
  zones:
    - id: 1
      name: Bench
      temperature: 50
      humidity: 60
      moisture: 60
      light: 5000
      co2: 400
  schedules:
    - name: Dawn
      time: "06:00"
      days: [Mon, Tue]
      zones: [1]
      duration: 5
      actions: [Watering]
    - id: 7
      name: Dusk
      time: "7:15 PM"
      days: [Sun]
      zones: [1]
      duration: 5
      actions: [Misting]
      active: false
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Seed.Zones, 1)

	snap, err := cfg.Seed.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Schedules, 2)

	assert.Equal(t, 8, snap.Schedules[0].ID, "unnumbered schedules follow the highest explicit id")
	assert.True(t, snap.Schedules[0].Active)
	assert.Equal(t, 7, snap.Schedules[1].ID)
	assert.False(t, snap.Schedules[1].Active)
	assert.Equal(t, 19, snap.Schedules[1].Time.Hour)

	assert.Equal(t, 35.0, snap.Zones[0].Temperature, "seeded readings are clamped")
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "storage:\n  driver: postgres\n"},
		{"bad timezone", "site:\n  timezone: Mars/Olympus\n"},
		{"evaluator interval", "scheduler:\n  evaluator_interval_seconds: 45\n"},
		{"port", "api:\n  port: 70000\n"},
		{"mqtt without broker", "mqtt:\n  enabled: true\n  broker: \"\"\n"},
		{"schedule with unknown zone", `
seed:
  zones:
    - id: 1
      name: Bench
  schedules:
    - name: Ghost
      time: "06:00"
      days: [Mon]
      zones: [9]
      duration: 5
      actions: [Watering]
`},
		{"duplicate zone", `
seed:
  zones:
    - id: 1
      name: A
    - id: 1
      name: B
  schedules: []
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaultSeedIsValid(t *testing.T) {
	seed := DefaultSeed()
	assert.Empty(t, seed.problems())

	snap, err := seed.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap.Schedules, 3)
	assert.Equal(t, "Weekend Care", snap.Schedules[2].Name)
	assert.False(t, snap.Schedules[2].Active)
	assert.Len(t, snap.Crops, 2)
}
