package store

import (
	"context"
	"sync"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

// ZoneStore keeps zones in memory in definition order.
type ZoneStore struct {
	mu    sync.RWMutex
	zones []model.Zone
	index map[int]int
}

func NewZoneStore(zones []model.Zone) *ZoneStore {
	s := &ZoneStore{index: make(map[int]int, len(zones))}
	for _, z := range zones {
		if i, ok := s.index[z.ID]; ok {
			s.zones[i] = z
			continue
		}
		s.index[z.ID] = len(s.zones)
		s.zones = append(s.zones, z)
	}
	return s
}

func (s *ZoneStore) FindAll(ctx context.Context) ([]model.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Zone(nil), s.zones...), nil
}

func (s *ZoneStore) FindByID(ctx context.Context, id int) (model.Zone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return model.Zone{}, model.NotFound("zone", id)
	}
	return s.zones[i], nil
}

func (s *ZoneStore) Update(ctx context.Context, id int, patch model.ZonePatch) (model.Zone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return model.Zone{}, model.NotFound("zone", id)
	}
	s.zones[i] = patch.Apply(s.zones[i])
	return s.zones[i], nil
}
