package services

import (
	"testing"
	"time"

	"github.com/soaringjerry/Kringle/internal/models"
)

type stubMatchStore struct {
	registered []*models.Participant
	config     *models.EventConfig

	applied    map[string]string
	appliedCfg *models.EventConfig
	applies    int
}

func (s *stubMatchStore) ListRegistered() ([]*models.Participant, error) {
	return s.registered, nil
}

func (s *stubMatchStore) GetEventConfig() (*models.EventConfig, error) {
	if s.config == nil {
		return nil, nil
	}
	c := *s.config
	return &c, nil
}

func (s *stubMatchStore) ApplyMatch(assignments map[string]string, cfg *models.EventConfig) error {
	s.applies++
	s.applied = assignments
	c := *cfg
	s.appliedCfg = &c
	return nil
}

func registered(tokens ...string) []*models.Participant {
	out := make([]*models.Participant, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, &models.Participant{Token: tok, IsRegistered: true})
	}
	return out
}

// verifyCycle walks the assignments from any start and requires a single
// cycle covering every participant with no self-assignment.
func verifyCycle(t *testing.T, assignments map[string]string, n int) {
	t.Helper()
	if len(assignments) != n {
		t.Fatalf("want %d assignments, got %d", n, len(assignments))
	}
	var start string
	for giver, target := range assignments {
		if giver == target {
			t.Fatalf("self-assignment for %s", giver)
		}
		start = giver
	}
	seen := map[string]bool{}
	cur := start
	for i := 0; i < n; i++ {
		if seen[cur] {
			t.Fatalf("sub-cycle detected at %s after %d hops", cur, i)
		}
		seen[cur] = true
		cur = assignments[cur]
	}
	if cur != start {
		t.Fatalf("walk did not close the cycle: ended at %s", cur)
	}
}

func TestRunBuildsSingleCycle(t *testing.T) {
	store := &stubMatchStore{registered: registered("A", "B", "C", "D")}
	svc := NewMatchService(store, nil)
	// Deterministic shuffle producing the order [C, A, D, B].
	svc.shuffle = func(n int, swap func(i, j int)) {
		swap(0, 2)
		swap(1, 2)
		swap(2, 3)
	}
	svc.now = func() time.Time { return time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC) }

	res, err := svc.Run(time.Time{}, false)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Matched != 4 {
		t.Fatalf("matched = %d, want 4", res.Matched)
	}

	// Shuffled order is C, A, D, B; each gives to the next, wrapping.
	want := map[string]string{"C": "A", "A": "D", "D": "B", "B": "C"}
	for giver, target := range want {
		if store.applied[giver] != target {
			t.Fatalf("assignment %s->%s, want %s->%s", giver, store.applied[giver], giver, target)
		}
	}
	verifyCycle(t, store.applied, 4)

	if store.appliedCfg.Status != models.StatusMatched || store.appliedCfg.TotalParticipants != 4 {
		t.Fatalf("config not updated: %+v", store.appliedCfg)
	}
}

func TestRunCycleProperty(t *testing.T) {
	for n := 2; n <= 9; n++ {
		tokens := make([]string, n)
		for i := range tokens {
			tokens[i] = string(rune('A' + i))
		}
		store := &stubMatchStore{registered: registered(tokens...)}
		svc := NewMatchService(store, nil)
		if _, err := svc.Run(time.Time{}, false); err != nil {
			t.Fatalf("n=%d: Run error: %v", n, err)
		}
		verifyCycle(t, store.applied, n)
	}
}

func TestRunRejectsTooFewParticipants(t *testing.T) {
	for _, ps := range [][]*models.Participant{nil, registered("A")} {
		store := &stubMatchStore{registered: ps}
		svc := NewMatchService(store, nil)
		_, err := svc.Run(time.Time{}, false)
		se, ok := AsServiceError(err)
		if !ok || se.Code != ErrorInsufficientParticipants {
			t.Fatalf("want insufficient_participants, got %v", err)
		}
		if store.applies != 0 {
			t.Fatalf("store written despite rejection")
		}
	}
}

func TestRunRequiresConfirmWhenAlreadyMatched(t *testing.T) {
	store := &stubMatchStore{
		registered: registered("A", "B"),
		config:     &models.EventConfig{Status: models.StatusMatched},
	}
	svc := NewMatchService(store, nil)

	_, err := svc.Run(time.Time{}, false)
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorConflict {
		t.Fatalf("want conflict, got %v", err)
	}
	if store.applies != 0 {
		t.Fatalf("assignments overwritten without confirmation")
	}

	if _, err := svc.Run(time.Time{}, true); err != nil {
		t.Fatalf("confirmed re-run error: %v", err)
	}
	if store.applies != 1 {
		t.Fatalf("confirmed re-run did not apply")
	}
}

func TestRunRevealDatePrecedence(t *testing.T) {
	now := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	existing := time.Date(2025, 12, 20, 18, 0, 0, 0, time.UTC)
	explicit := time.Date(2025, 12, 31, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		param  time.Time
		config *models.EventConfig
		want   time.Time
	}{
		{"explicit date wins", explicit, &models.EventConfig{RevealDate: existing}, explicit},
		{"existing config date kept", time.Time{}, &models.EventConfig{RevealDate: existing}, existing},
		{"default when nothing set", time.Time{}, nil, DefaultRevealDate(now)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubMatchStore{registered: registered("A", "B"), config: tc.config}
			svc := NewMatchService(store, nil)
			svc.now = func() time.Time { return now }

			res, err := svc.Run(tc.param, false)
			if err != nil {
				t.Fatalf("Run error: %v", err)
			}
			if !res.RevealDate.Equal(tc.want) {
				t.Fatalf("revealDate = %v, want %v", res.RevealDate, tc.want)
			}
		})
	}
}

func TestDefaultRevealDate(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	got := DefaultRevealDate(now)
	want := time.Date(2025, 12, 24, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("DefaultRevealDate = %v, want %v", got, want)
	}
}
