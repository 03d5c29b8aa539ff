package store

import (
	"context"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

// Zones is authoritative zone state. Returned values are copies.
type Zones interface {
	FindAll(ctx context.Context) ([]model.Zone, error)
	FindByID(ctx context.Context, id int) (model.Zone, error)
	Update(ctx context.Context, id int, patch model.ZonePatch) (model.Zone, error)
}

type Schedules interface {
	FindAll(ctx context.Context) ([]model.Schedule, error)
	FindByID(ctx context.Context, id int) (model.Schedule, error)
	// Create assigns the next id (max+1, or 1 when empty) and marks the
	// schedule active.
	Create(ctx context.Context, s model.Schedule) (model.Schedule, error)
	Update(ctx context.Context, id int, patch model.SchedulePatch) (model.Schedule, error)
	Delete(ctx context.Context, id int) error
}

// Events is the action event log. A zone has at most one open event.
type Events interface {
	Create(ctx context.Context, e model.ActionEvent) (model.ActionEvent, error)
	// UpdateOpenEvent patches the open event for zoneID. A zone without an
	// open event is not an error.
	UpdateOpenEvent(ctx context.Context, zoneID int, patch model.EventPatch) error
	FindOpen(ctx context.Context, zoneID int) (model.ActionEvent, bool, error)
	FindAll(ctx context.Context) ([]model.ActionEvent, error)
	FindByZone(ctx context.Context, zoneID int) ([]model.ActionEvent, error)
}

type Settings interface {
	SmartRules(ctx context.Context) (model.SmartRules, error)
	UpdateSmartRules(ctx context.Context, rules model.SmartRules) error
}

type Crops interface {
	FindAll(ctx context.Context) ([]model.Crop, error)
	FindByID(ctx context.Context, id int) (model.Crop, error)
	Create(ctx context.Context, c model.Crop) (model.Crop, error)
	Update(ctx context.Context, id int, c model.Crop) (model.Crop, error)
	Delete(ctx context.Context, id int) error
}

// Backend bundles one implementation of every store.
type Backend struct {
	Zones     Zones
	Schedules Schedules
	Events    Events
	Settings  Settings
	Crops     Crops
}
