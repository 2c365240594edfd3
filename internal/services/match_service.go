package services

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/soaringjerry/Kringle/internal/models"
)

type MatchStore interface {
	ListRegistered() ([]*models.Participant, error)
	GetEventConfig() (*models.EventConfig, error)
	// ApplyMatch writes every assignment and the event config in one
	// all-or-nothing operation. Readers never observe a partial match.
	ApplyMatch(assignments map[string]string, cfg *models.EventConfig) error
}

type MatchResult struct {
	Matched    int       `json:"matched"`
	RevealDate time.Time `json:"revealDate"`
}

// MatchService builds the assignment cycle. Runs are serialized: a second
// invocation fully follows the first, never interleaves.
type MatchService struct {
	store   MatchStore
	mu      sync.Mutex
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
	logger  *zap.Logger
}

func NewMatchService(store MatchStore, logger *zap.Logger) *MatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MatchService{
		store:   store,
		now:     func() time.Time { return time.Now().UTC() },
		shuffle: rand.Shuffle,
		logger:  logger,
	}
}

// DefaultRevealDate is the reveal moment used when the admin never set
// one: the morning of Dec 24 of the event year.
func DefaultRevealDate(now time.Time) time.Time {
	return time.Date(now.Year(), time.December, 24, 9, 0, 0, 0, now.Location())
}

// Run shuffles all registered participants uniformly and assigns each one
// the next participant in the shuffled order, wrapping at the end. The
// result is a single cycle covering everyone: no self-assignments, no
// sub-cycles, exactly one giver and one recipient per participant.
//
// Re-running is destructive by design (it overwrites every assignment),
// so a run over an already-matched event requires confirm=true.
func (s *MatchService) Run(revealDate time.Time, confirm bool) (*MatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.store.GetEventConfig()
	if err != nil {
		return nil, err
	}
	if cfg != nil && cfg.Status == models.StatusMatched && !confirm {
		return nil, NewConflictError("event already matched; re-running overwrites all assignments and requires confirmation")
	}

	participants, err := s.store.ListRegistered()
	if err != nil {
		return nil, err
	}
	n := len(participants)
	if n < 2 {
		return nil, NewInsufficientParticipantsError("need at least 2 registered participants to match")
	}

	s.shuffle(n, func(i, j int) {
		participants[i], participants[j] = participants[j], participants[i]
	})

	assignments := make(map[string]string, n)
	for i, giver := range participants {
		assignments[giver.Token] = participants[(i+1)%n].Token
	}

	now := s.now()
	reveal := revealDate
	if reveal.IsZero() {
		if cfg != nil && !cfg.RevealDate.IsZero() {
			reveal = cfg.RevealDate
		} else {
			reveal = DefaultRevealDate(now)
		}
	}
	newCfg := &models.EventConfig{
		RevealDate:        reveal,
		Status:            models.StatusMatched,
		TotalParticipants: n,
		MatchedAt:         now,
	}

	if err := s.store.ApplyMatch(assignments, newCfg); err != nil {
		return nil, NewStoreWriteError("apply match: " + err.Error())
	}
	s.logger.Info("match complete", zap.Int("participants", n), zap.Time("reveal_date", reveal))
	return &MatchResult{Matched: n, RevealDate: reveal}, nil
}
