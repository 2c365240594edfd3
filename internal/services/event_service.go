package services

import (
	"time"

	"github.com/soaringjerry/Kringle/internal/models"
)

type EventStore interface {
	GetEventConfig() (*models.EventConfig, error)
	SetEventConfig(cfg *models.EventConfig) error
}

// EventService owns the singleton event config. Reads always hit the
// store so a reveal-date update is never served stale.
type EventService struct {
	store EventStore
	now   func() time.Time
}

func NewEventService(store EventStore) *EventService {
	return &EventService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Config returns the current event config, substituting the default
// reveal date when none was ever stored.
func (s *EventService) Config() (*models.EventConfig, error) {
	cfg, err := s.store.GetEventConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &models.EventConfig{RevealDate: DefaultRevealDate(s.now())}
	}
	return cfg, nil
}

// SetRevealDate updates only the reveal date, preserving the rest of the
// config (merge semantics).
func (s *EventService) SetRevealDate(t time.Time) (*models.EventConfig, error) {
	if t.IsZero() {
		return nil, NewInvalidError("revealDate required")
	}
	cfg, err := s.store.GetEventConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &models.EventConfig{}
	}
	cfg.RevealDate = t
	if err := s.store.SetEventConfig(cfg); err != nil {
		return nil, NewStoreWriteError("save config: " + err.Error())
	}
	return cfg, nil
}
