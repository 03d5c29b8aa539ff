package store

import (
	"context"
	"sync"

	"github.com/thatsimonsguy/greenhouse-controller/internal/model"
)

type SettingsStore struct {
	mu    sync.RWMutex
	rules model.SmartRules
}

func NewSettingsStore(rules model.SmartRules) *SettingsStore {
	return &SettingsStore{rules: rules}
}

func (s *SettingsStore) SmartRules(ctx context.Context) (model.SmartRules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules, nil
}

func (s *SettingsStore) UpdateSmartRules(ctx context.Context, rules model.SmartRules) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
	return nil
}
