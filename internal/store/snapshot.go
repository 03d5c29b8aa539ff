package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

// Snapshot is the full state of the in-memory backend.
type Snapshot struct {
	Zones      []model.Zone        `json:"zones"`
	Schedules  []model.Schedule    `json:"schedules"`
	Events     []model.ActionEvent `json:"events"`
	SmartRules model.SmartRules    `json:"smartRules"`
	Crops      []model.Crop        `json:"crops"`
}

type Memory struct {
	Zones     *ZoneStore
	Schedules *ScheduleStore
	Events    *EventLog
	Settings  *SettingsStore
	Crops     *CropStore
}

func NewMemory(snap Snapshot) *Memory {
	return &Memory{
		Zones:     NewZoneStore(snap.Zones),
		Schedules: NewScheduleStore(snap.Schedules),
		Events:    NewEventLog(snap.Events),
		Settings:  NewSettingsStore(snap.SmartRules),
		Crops:     NewCropStore(snap.Crops),
	}
}

func (m *Memory) Backend() Backend {
	return Backend{
		Zones:     m.Zones,
		Schedules: m.Schedules,
		Events:    m.Events,
		Settings:  m.Settings,
		Crops:     m.Crops,
	}
}

func (m *Memory) Snapshot(ctx context.Context) (*Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if snap.Zones, err = m.Zones.FindAll(ctx); err != nil {
		return nil, err
	}
	if snap.Schedules, err = m.Schedules.FindAll(ctx); err != nil {
		return nil, err
	}
	if snap.Events, err = m.Events.FindAll(ctx); err != nil {
		return nil, err
	}
	if snap.SmartRules, err = m.Settings.SmartRules(ctx); err != nil {
		return nil, err
	}
	if snap.Crops, err = m.Crops.FindAll(ctx); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SnapshotFile persists a Snapshot as indented JSON, replacing the file
// atomically on save.
type SnapshotFile struct {
	path string
}

func NewSnapshotFile(path string) *SnapshotFile {
	return &SnapshotFile{path: path}
}

func (f *SnapshotFile) Path() string {
	return f.path
}

func (f *SnapshotFile) Load() (*Snapshot, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap Snapshot
	if err := json.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (f *SnapshotFile) Save(snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}
	tmpPath := f.path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		file.Close()
		return err
	}
	file.Sync()
	file.Close()

	return os.Rename(tmpPath, f.path)
}
