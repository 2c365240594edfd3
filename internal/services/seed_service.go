package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soaringjerry/Kringle/internal/models"
)

type SeedStore interface {
	GetParticipant(token string) (*models.Participant, error)
	// PutParticipants writes the whole batch atomically.
	PutParticipants(ps []*models.Participant) error
}

// SeededToken pairs a participant name with the freshly minted token, for
// printing handout cards.
type SeededToken struct {
	Name  string `json:"name"`
	Token string `json:"token"`
}

// maxTokenAttempts bounds the retry-until-unique loop per participant.
// With a 32^6 token space collisions are vanishingly rare at event scale.
const maxTokenAttempts = 32

type SeedService struct {
	store    SeedStore
	newToken func() (string, error)
	now      func() time.Time
	logger   *zap.Logger
}

func NewSeedService(store SeedStore, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{
		store:    store,
		newToken: NewToken,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Seed creates one unmatched, unregistered participant per entry, each
// keyed by a unique token. The batch is written atomically: a failure
// leaves the store untouched.
func (s *SeedService) Seed(entries []models.SeedEntry) ([]SeededToken, error) {
	if len(entries) == 0 {
		return nil, NewInvalidError("seed data must be a non-empty array")
	}
	for _, e := range entries {
		if strings.TrimSpace(e.Name) == "" {
			return nil, NewInvalidError("seed entry missing name")
		}
	}

	batchID := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	now := s.now()
	inFlight := map[string]bool{}
	participants := make([]*models.Participant, 0, len(entries))
	tokens := make([]SeededToken, 0, len(entries))

	for _, e := range entries {
		token, err := s.uniqueToken(inFlight)
		if err != nil {
			return nil, err
		}
		inFlight[token] = true
		participants = append(participants, &models.Participant{
			Token:        token,
			Name:         strings.TrimSpace(e.Name),
			Class:        strings.TrimSpace(e.Class),
			Email:        strings.TrimSpace(e.Email),
			IsRegistered: false,
			Status:       models.StatusUnmatched,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		tokens = append(tokens, SeededToken{Name: strings.TrimSpace(e.Name), Token: token})
	}

	if err := s.store.PutParticipants(participants); err != nil {
		return nil, NewStoreWriteError("seed batch write: " + err.Error())
	}
	s.logger.Info("seeded participants", zap.String("batch", batchID), zap.Int("count", len(participants)))
	return tokens, nil
}

// uniqueToken retries the generator until the token collides neither with
// the store nor with the in-flight batch.
func (s *SeedService) uniqueToken(inFlight map[string]bool) (string, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return "", NewStoreWriteError("token generation: " + err.Error())
		}
		if inFlight[token] {
			continue
		}
		existing, err := s.store.GetParticipant(token)
		if err != nil {
			return "", NewStoreWriteError("token collision check: " + err.Error())
		}
		if existing == nil {
			return token, nil
		}
	}
	return "", NewStoreWriteError("could not find a free token")
}
