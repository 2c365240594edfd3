package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/soaringjerry/Kringle/internal/models"
)

type RegisterStore interface {
	GetParticipant(token string) (*models.Participant, error)
	UpdateParticipant(p *models.Participant) error
}

// RegisterService records a participant's quiz answers and derives their
// profile. A participant registers exactly once.
type RegisterService struct {
	store    RegisterStore
	profiles *ProfileService
	now      func() time.Time
	logger   *zap.Logger
}

func NewRegisterService(store RegisterStore, profiles *ProfileService, logger *zap.Logger) *RegisterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegisterService{
		store:    store,
		profiles: profiles,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

func (s *RegisterService) Register(ctx context.Context, token string, answers map[string]string) (*Profile, error) {
	if token == "" || answers == nil {
		return nil, NewInvalidError("token and answers required")
	}
	p, err := s.store.GetParticipant(token)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewNotFoundError("invalid token")
	}
	if p.IsRegistered {
		return nil, NewConflictError("already registered")
	}

	profile := s.profiles.Synthesize(ctx, p.Name, answers)

	p.Answers = answers
	p.Tags = profile.Tags
	p.Clues = profile.Clues
	p.IsRegistered = true
	p.UpdatedAt = s.now()
	if err := s.store.UpdateParticipant(p); err != nil {
		return nil, NewStoreWriteError("save registration: " + err.Error())
	}
	s.logger.Info("participant registered", zap.String("source", string(profile.Source)))
	return profile, nil
}
