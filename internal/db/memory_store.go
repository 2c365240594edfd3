package db

import (
	"fmt"
	"sort"
	"sync"

	"github.com/soaringjerry/Kringle/internal/models"
)

// Store is the record-store contract shared by the sqlite and in-memory
// implementations. Batch operations are atomic: either every write in
// the batch becomes visible or none of it does.
type Store interface {
	GetParticipant(token string) (*models.Participant, error)
	ListParticipants() ([]*models.Participant, error)
	ListRegistered() ([]*models.Participant, error)
	PutParticipants(ps []*models.Participant) error
	UpdateParticipant(p *models.Participant) error
	ApplyMatch(assignments map[string]string, cfg *models.EventConfig) error
	GetEventConfig() (*models.EventConfig, error)
	SetEventConfig(cfg *models.EventConfig) error
}

// MemoryStore keeps everything in process. Used for development runs and
// tests; semantics mirror the sqlite store, including copy-on-read so
// callers can never mutate stored records in place.
type MemoryStore struct {
	mu           sync.RWMutex
	participants map[string]*models.Participant
	config       *models.EventConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{participants: map[string]*models.Participant{}}
}

var _ Store = (*MemoryStore)(nil)

func copyParticipant(p *models.Participant) *models.Participant {
	cp := *p
	if p.Answers != nil {
		cp.Answers = make(map[string]string, len(p.Answers))
		for k, v := range p.Answers {
			cp.Answers[k] = v
		}
	}
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Clues = append([]string(nil), p.Clues...)
	return &cp
}

func (s *MemoryStore) GetParticipant(token string) (*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[token]
	if !ok {
		return nil, nil
	}
	return copyParticipant(p), nil
}

func (s *MemoryStore) ListParticipants() ([]*models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, copyParticipant(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (s *MemoryStore) ListRegistered() ([]*models.Participant, error) {
	all, err := s.ListParticipants()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.IsRegistered {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) PutParticipants(ps []*models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		if p.Token == "" {
			return fmt.Errorf("participant without token")
		}
	}
	for _, p := range ps {
		s.participants[p.Token] = copyParticipant(p)
	}
	return nil
}

func (s *MemoryStore) UpdateParticipant(p *models.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.Token]; !ok {
		return fmt.Errorf("participant %s not found", p.Token)
	}
	s.participants[p.Token] = copyParticipant(p)
	return nil
}

func (s *MemoryStore) ApplyMatch(assignments map[string]string, cfg *models.EventConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Validate before touching anything so a bad batch leaves no trace.
	for giver, target := range assignments {
		if _, ok := s.participants[giver]; !ok {
			return fmt.Errorf("giver %s not found", giver)
		}
		if _, ok := s.participants[target]; !ok {
			return fmt.Errorf("target %s not found", target)
		}
	}
	for giver, target := range assignments {
		p := s.participants[giver]
		p.TargetToken = target
		p.Status = models.StatusMatched
	}
	c := *cfg
	s.config = &c
	return nil
}

func (s *MemoryStore) GetEventConfig() (*models.EventConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, nil
	}
	c := *s.config
	return &c, nil
}

func (s *MemoryStore) SetEventConfig(cfg *models.EventConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cfg
	s.config = &c
	return nil
}
