package services

import (
	"time"

	"go.uber.org/zap"

	"github.com/soaringjerry/Kringle/internal/models"
)

// DisclosureState is what a participant may currently learn about their
// assigned target. It is derived fresh on every query from wall-clock
// time against the stored reveal date; nothing is edge-triggered.
type DisclosureState string

const (
	StateWaiting    DisclosureState = "WAITING_FOR_MATCH"
	StateClassified DisclosureState = "CLASSIFIED"
	StateRevealed   DisclosureState = "REVEALED"
)

// Placeholders shown instead of the target's identity before the reveal.
const (
	ClassifiedName  = "CLASSIFIED AGENT"
	ClassifiedClass = "UNKNOWN"
)

// TargetView is everything a giver may see about their target. It is
// deliberately a standalone struct built field by field: the underlying
// record is never passed through, so a field added to Participant later
// cannot leak here by accident. Email, token and the target's own
// assignment are absent in every state.
type TargetView struct {
	Name  string   `json:"name"`
	Class string   `json:"class"`
	Tags  []string `json:"tags"`
	Clues []string `json:"clues"`
}

type MissionView struct {
	Status     DisclosureState `json:"status"`
	RevealDate time.Time       `json:"revealDate,omitzero"`
	Target     *TargetView     `json:"target,omitempty"`
}

type LoginResult struct {
	Name         string `json:"name"`
	IsRegistered bool   `json:"isRegistered"`
}

type MissionStore interface {
	GetParticipant(token string) (*models.Participant, error)
	GetEventConfig() (*models.EventConfig, error)
}

type MissionService struct {
	store  MissionStore
	now    func() time.Time
	logger *zap.Logger
}

func NewMissionService(store MissionStore, logger *zap.Logger) *MissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MissionService{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Login resolves a submitted token to a thin existence/registration check
// used to route the participant to the quiz or the mission view.
func (s *MissionService) Login(token string) (*LoginResult, error) {
	if token == "" {
		return nil, NewInvalidError("token required")
	}
	p, err := s.store.GetParticipant(token)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, NewNotFoundError("invalid token")
	}
	return &LoginResult{Name: p.Name, IsRegistered: p.IsRegistered}, nil
}

// Mission reports what the holder of token may currently see about their
// assigned target.
func (s *MissionService) Mission(token string) (*MissionView, error) {
	if token == "" {
		return nil, NewInvalidError("token required")
	}
	viewer, err := s.store.GetParticipant(token)
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		return nil, NewNotFoundError("invalid token")
	}
	if viewer.TargetToken == "" {
		return &MissionView{Status: StateWaiting}, nil
	}

	target, err := s.store.GetParticipant(viewer.TargetToken)
	if err != nil {
		return nil, err
	}
	if target == nil || !target.IsRegistered {
		// Operationally distinct from "not matched yet", but the viewer
		// must not be able to tell the difference.
		s.logger.Info("mission target not ready",
			zap.String("cause", "target_not_ready"),
			zap.Bool("target_exists", target != nil))
		return &MissionView{Status: StateWaiting}, nil
	}

	cfg, err := s.store.GetEventConfig()
	if err != nil {
		return nil, err
	}
	revealAt := farFutureReveal
	if cfg != nil && !cfg.RevealDate.IsZero() {
		revealAt = cfg.RevealDate
	}

	state, view := disclose(target, revealAt, s.now())
	return &MissionView{Status: state, RevealDate: revealAt, Target: view}, nil
}

// farFutureReveal keeps targets classified when no reveal date was ever
// configured.
var farFutureReveal = time.Date(2099, time.December, 25, 0, 0, 0, 0, time.UTC)

// disclose is the gate itself: a pure function of the target record, the
// reveal instant and the current time.
func disclose(target *models.Participant, revealAt, now time.Time) (DisclosureState, *TargetView) {
	view := &TargetView{
		Name:  ClassifiedName,
		Class: ClassifiedClass,
		Tags:  append([]string(nil), target.Tags...),
		Clues: append([]string(nil), target.Clues...),
	}
	if now.Before(revealAt) {
		return StateClassified, view
	}
	view.Name = target.Name
	view.Class = target.Class
	return StateRevealed, view
}
