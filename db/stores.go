package db

import (
	"context"
	"database/sql"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
	"github.com/thatsimonsguy/greenhouse-controller/internal/store"
)

// NewBackend returns SQLite implementations of every store over conn.
func NewBackend(conn *sql.DB) store.Backend {
	return store.Backend{
		Zones:     &ZoneStore{db: conn},
		Schedules: &ScheduleStore{db: conn},
		Events:    &EventLog{db: conn},
		Settings:  &SettingsStore{db: conn},
		Crops:     &CropStore{db: conn},
	}
}

type ZoneStore struct{ db *sql.DB }

func (s *ZoneStore) FindAll(ctx context.Context) ([]model.Zone, error) {
	return GetAllZones(ctx, s.db)
}

func (s *ZoneStore) FindByID(ctx context.Context, id int) (model.Zone, error) {
	return GetZoneByID(ctx, s.db, id)
}

func (s *ZoneStore) Update(ctx context.Context, id int, patch model.ZonePatch) (model.Zone, error) {
	return UpdateZone(ctx, s.db, id, patch)
}

type ScheduleStore struct{ db *sql.DB }

func (s *ScheduleStore) FindAll(ctx context.Context) ([]model.Schedule, error) {
	return GetAllSchedules(ctx, s.db)
}

func (s *ScheduleStore) FindByID(ctx context.Context, id int) (model.Schedule, error) {
	return GetScheduleByID(ctx, s.db, id)
}

func (s *ScheduleStore) Create(ctx context.Context, sc model.Schedule) (model.Schedule, error) {
	return InsertSchedule(ctx, s.db, sc)
}

func (s *ScheduleStore) Update(ctx context.Context, id int, patch model.SchedulePatch) (model.Schedule, error) {
	return UpdateSchedule(ctx, s.db, id, patch)
}

func (s *ScheduleStore) Delete(ctx context.Context, id int) error {
	return DeleteSchedule(ctx, s.db, id)
}

// EventLog relies on the partial unique index over open events as its
// zone to open event index.
type EventLog struct{ db *sql.DB }

func (l *EventLog) Create(ctx context.Context, e model.ActionEvent) (model.ActionEvent, error) {
	return InsertEvent(ctx, l.db, e)
}

func (l *EventLog) UpdateOpenEvent(ctx context.Context, zoneID int, patch model.EventPatch) error {
	return CloseOpenEvent(ctx, l.db, zoneID, patch)
}

func (l *EventLog) FindOpen(ctx context.Context, zoneID int) (model.ActionEvent, bool, error) {
	return GetOpenEvent(ctx, l.db, zoneID)
}

func (l *EventLog) FindAll(ctx context.Context) ([]model.ActionEvent, error) {
	return GetAllEvents(ctx, l.db)
}

func (l *EventLog) FindByZone(ctx context.Context, zoneID int) ([]model.ActionEvent, error) {
	return GetEventsByZone(ctx, l.db, zoneID)
}

type SettingsStore struct{ db *sql.DB }

func (s *SettingsStore) SmartRules(ctx context.Context) (model.SmartRules, error) {
	return GetSmartRules(ctx, s.db)
}

func (s *SettingsStore) UpdateSmartRules(ctx context.Context, rules model.SmartRules) error {
	return SetSmartRules(ctx, s.db, rules)
}

type CropStore struct{ db *sql.DB }

func (s *CropStore) FindAll(ctx context.Context) ([]model.Crop, error) {
	return GetAllCrops(ctx, s.db)
}

func (s *CropStore) FindByID(ctx context.Context, id int) (model.Crop, error) {
	return GetCropByID(ctx, s.db, id)
}

func (s *CropStore) Create(ctx context.Context, c model.Crop) (model.Crop, error) {
	return InsertCrop(ctx, s.db, c)
}

func (s *CropStore) Update(ctx context.Context, id int, c model.Crop) (model.Crop, error) {
	return UpdateCrop(ctx, s.db, id, c)
}

func (s *CropStore) Delete(ctx context.Context, id int) error {
	return DeleteCrop(ctx, s.db, id)
}
