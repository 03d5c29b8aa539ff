package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

// EventLog is an append-only in-memory action event log with an index of
// the open event per zone.
type EventLog struct {
	mu     sync.RWMutex
	events []model.ActionEvent
	byID   map[int]int
	open   map[int]int // zone id -> event id
	nextID int
}

func NewEventLog(events []model.ActionEvent) *EventLog {
	l := &EventLog{
		byID:   make(map[int]int),
		open:   make(map[int]int),
		nextID: 1,
	}
	for _, e := range events {
		e = e.Clone()
		l.byID[e.ID] = len(l.events)
		l.events = append(l.events, e)
		if e.ID >= l.nextID {
			l.nextID = e.ID + 1
		}
		if e.Open() {
			l.open[e.ZoneID] = e.ID
		}
	}
	return l
}

func (l *EventLog) Create(ctx context.Context, e model.ActionEvent) (model.ActionEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e = e.Clone()
	if e.Open() {
		if id, ok := l.open[e.ZoneID]; ok {
			return model.ActionEvent{}, fmt.Errorf("zone %d already has open event %d", e.ZoneID, id)
		}
	}

	e.ID = l.nextID
	l.nextID++
	l.byID[e.ID] = len(l.events)
	l.events = append(l.events, e)
	if e.Open() {
		l.open[e.ZoneID] = e.ID
	}
	return e.Clone(), nil
}

func (l *EventLog) UpdateOpenEvent(ctx context.Context, zoneID int, patch model.EventPatch) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	id, ok := l.open[zoneID]
	if !ok {
		return nil
	}
	i := l.byID[id]
	l.events[i] = patch.Apply(l.events[i])
	if !l.events[i].Open() {
		delete(l.open, zoneID)
	}
	return nil
}

func (l *EventLog) FindOpen(ctx context.Context, zoneID int) (model.ActionEvent, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.open[zoneID]
	if !ok {
		return model.ActionEvent{}, false, nil
	}
	return l.events[l.byID[id]].Clone(), true, nil
}

func (l *EventLog) FindAll(ctx context.Context) ([]model.ActionEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.ActionEvent, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (l *EventLog) FindByZone(ctx context.Context, zoneID int) ([]model.ActionEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []model.ActionEvent{}
	for _, e := range l.events {
		if e.ZoneID == zoneID {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}
