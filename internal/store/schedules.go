package store

import (
	"context"
	"sync"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

type ScheduleStore struct {
	mu        sync.RWMutex
	schedules []model.Schedule
}

func NewScheduleStore(schedules []model.Schedule) *ScheduleStore {
	s := &ScheduleStore{}
	for _, sc := range schedules {
		s.schedules = append(s.schedules, sc.Clone())
	}
	return s
}

func (s *ScheduleStore) FindAll(ctx context.Context) ([]model.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Schedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		out = append(out, sc.Clone())
	}
	return out, nil
}

func (s *ScheduleStore) FindByID(ctx context.Context, id int) (model.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Schedule{}, model.NotFound("schedule", id)
	}
	return s.schedules[i].Clone(), nil
}

func (s *ScheduleStore) Create(ctx context.Context, sc model.Schedule) (model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := 1
	for _, existing := range s.schedules {
		if existing.ID >= next {
			next = existing.ID + 1
		}
	}
	sc = sc.Clone()
	sc.ID = next
	sc.Active = true
	s.schedules = append(s.schedules, sc)
	return sc.Clone(), nil
}

func (s *ScheduleStore) Update(ctx context.Context, id int, patch model.SchedulePatch) (model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Schedule{}, model.NotFound("schedule", id)
	}
	s.schedules[i] = patch.Apply(s.schedules[i]).Clone()
	return s.schedules[i].Clone(), nil
}

func (s *ScheduleStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.NotFound("schedule", id)
	}
	s.schedules = append(s.schedules[:i], s.schedules[i+1:]...)
	return nil
}

func (s *ScheduleStore) indexOf(id int) int {
	for i, sc := range s.schedules {
		if sc.ID == id {
			return i
		}
	}
	return -1
}
