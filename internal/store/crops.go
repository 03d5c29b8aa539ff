package store

import (
	"context"
	"sync"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

type CropStore struct {
	mu    sync.RWMutex
	crops []model.Crop
}

func NewCropStore(crops []model.Crop) *CropStore {
	return &CropStore{crops: append([]model.Crop(nil), crops...)}
}

func (s *CropStore) FindAll(ctx context.Context) ([]model.Crop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Crop(nil), s.crops...), nil
}

func (s *CropStore) FindByID(ctx context.Context, id int) (model.Crop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Crop{}, model.NotFound("crop", id)
	}
	return s.crops[i], nil
}

func (s *CropStore) Create(ctx context.Context, c model.Crop) (model.Crop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := 1
	for _, existing := range s.crops {
		if existing.ID >= next {
			next = existing.ID + 1
		}
	}
	c.ID = next
	s.crops = append(s.crops, c)
	return c, nil
}

func (s *CropStore) Update(ctx context.Context, id int, c model.Crop) (model.Crop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Crop{}, model.NotFound("crop", id)
	}
	c.ID = id
	s.crops[i] = c
	return c, nil
}

func (s *CropStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.NotFound("crop", id)
	}
	s.crops = append(s.crops[:i], s.crops[i+1:]...)
	return nil
}

func (s *CropStore) indexOf(id int) int {
	for i, c := range s.crops {
		if c.ID == id {
			return i
		}
	}
	return -1
}
