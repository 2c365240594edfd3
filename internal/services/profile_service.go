package services

import (
	"context"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ProfileSource records which path produced a profile. Both paths satisfy
// the same structural contract; the fallback is not an error outcome.
type ProfileSource string

const (
	SourceGenerator ProfileSource = "generator"
	SourceFallback  ProfileSource = "fallback"
)

// Profile describes a participant for the eyes of their assigned giver:
// up to three tags and exactly three ordered clues.
type Profile struct {
	Tags   []string      `json:"tags"`
	Clues  []string      `json:"clues"`
	Source ProfileSource `json:"source,omitempty"`
}

// GenerateRequest is the contract handed to the external generator. The
// puzzle is generated locally and must appear verbatim in clue 3.
type GenerateRequest struct {
	Name       string
	Answers    map[string]string
	PuzzleCode string
	PuzzleHint string
}

// Generator is the untrusted external text generator. Its output is
// advisory only; the synthesizer validates and scrubs everything it
// returns.
type Generator interface {
	GenerateProfile(ctx context.Context, req GenerateRequest) (*Profile, error)
}

// NamePlaceholder replaces literal name occurrences inside clue text.
const NamePlaceholder = "[REDACTED]"

const defaultGenerateTimeout = 5 * time.Second

type ProfileService struct {
	gen     Generator
	timeout time.Duration

	// Registrations run concurrently; the PCG state is not safe for
	// unsynchronized use.
	mu  sync.Mutex
	rng *rand.Rand

	logger *zap.Logger
}

func NewProfileService(gen Generator, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{
		gen:     gen,
		timeout: defaultGenerateTimeout,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		logger:  logger,
	}
}

// Synthesize turns a participant's name and quiz answers into a complete
// profile. It never fails: any generator problem falls through to the
// deterministic local generator.
func (s *ProfileService) Synthesize(ctx context.Context, name string, answers map[string]string) *Profile {
	s.mu.Lock()
	puzzle, perr := NewPuzzle(name, s.rng)
	s.mu.Unlock()
	puzzleClue := "Final clue: the target's name is missing from every record we hold."
	if perr == nil {
		puzzleClue = puzzle.Clue()
	}

	profile := s.generate(ctx, name, answers, puzzle, perr == nil)
	if profile == nil {
		profile = s.fallback(name, answers, puzzleClue)
	}

	// Enforce the puzzle contract on whichever path won: clue 3 must carry
	// the encoded text so the round-trip property holds for the recipient.
	if perr == nil && !strings.Contains(profile.Clues[2], puzzle.Encoded) {
		profile.Clues[2] = puzzleClue
	}

	// The generator is untrusted for the privacy invariant, so the scrub
	// runs on both paths. The encoded puzzle text is exempt: an encoding
	// can coincidentally spell the name (NATO words, shift collisions) and
	// rewriting it would break the decode round-trip.
	encoded := ""
	if perr == nil {
		encoded = puzzle.Encoded
	}
	for i, c := range profile.Clues {
		if i == 2 {
			profile.Clues[i] = scrubAround(c, name, encoded)
			continue
		}
		profile.Clues[i] = scrubName(c, name)
	}
	for i, t := range profile.Tags {
		profile.Tags[i] = scrubName(t, name)
	}
	return profile
}

func (s *ProfileService) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// generate runs the external generator under a bounded wait and returns
// nil whenever its output cannot be used as-is.
func (s *ProfileService) generate(ctx context.Context, name string, answers map[string]string, puzzle Puzzle, havePuzzle bool) *Profile {
	if s.gen == nil {
		return nil
	}
	req := GenerateRequest{Name: name, Answers: answers}
	if havePuzzle {
		req.PuzzleCode = puzzle.Encoded
		req.PuzzleHint = puzzle.Label
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.gen.GenerateProfile(ctx, req)
	if err != nil {
		s.logger.Warn("profile generator unavailable, using fallback",
			zap.String("code", string(ErrorUpstream)), zap.Error(err))
		return nil
	}
	if p == nil || len(p.Clues) != 3 || len(p.Tags) == 0 || len(p.Tags) > 3 {
		s.logger.Warn("profile generator returned malformed profile, using fallback",
			zap.String("code", string(ErrorUpstream)))
		return nil
	}
	for _, c := range p.Clues {
		if strings.TrimSpace(c) == "" {
			s.logger.Warn("profile generator returned empty clue, using fallback",
				zap.String("code", string(ErrorUpstream)))
			return nil
		}
	}
	p.Source = SourceGenerator
	return p
}

// fallbackTagMap maps known quiz answer values to canonical tags.
var fallbackTagMap = map[string]string{
	// canteen
	"Chai":  "ChaiLover",
	"Maggi": "NoodleConnoisseur",
	"Broke": "BudgetSurvivor",
	"Feast": "Foodie",
	// spot
	"Library":   "Scholar",
	"BackBench": "BackBencher",
	"Ground":    "SportsStar",
	"Roaming":   "CorridorWanderer",
	// vibe
	"Techie": "TechBro",
	"Artist": "CreativeSoul",
	"Gamer":  "Gamer",
	"Lost":   "DegreeCollector",
	// attendance
	"Topper": "FrontRowFixture",
	"Proxy":  "GhostStudent",
	"Sleep":  "PowerNapper",
}

// fallbackTagOrder fixes which answers are consulted first so the tag set
// is stable for a given answer map.
var fallbackTagOrder = []string{"vibe", "spot", "canteen", "attendance", "exam"}

var genericTags = []string{"Student", "Campus", "SecretSanta"}

// fallback is the guaranteed-available profile generator of last resort.
// It needs no external dependency and is complete for any answer map,
// including an empty one.
func (s *ProfileService) fallback(name string, answers map[string]string, puzzleClue string) *Profile {
	tags := make([]string, 0, 3)
	for _, key := range fallbackTagOrder {
		if tag, ok := fallbackTagMap[answers[key]]; ok && len(tags) < 3 {
			tags = append(tags, tag)
		}
	}
	for len(tags) < 3 {
		tags = append(tags, genericTags[len(tags)])
	}

	spot := answers["spot"]
	if spot == "" {
		spot = "campus"
	}
	mood := map[string]string{
		"Chai": "chai-powered", "Maggi": "noodle-fueled",
		"Broke": "hydro-powered", "Feast": "well-fed",
	}[answers["canteen"]]
	if mood == "" {
		mood = "mysterious"
	}
	act := map[string]string{
		"Library": "studying in the AC", "BackBench": "napping on the back benches",
		"Ground": "running laps", "Roaming": "patrolling the corridors",
	}[answers["spot"]]
	if act == "" {
		act = "hanging around"
	}
	clue1Options := []string{
		"WANTED: a " + mood + " student usually caught " + act + ".",
		"This agent haunts the " + spot + " and is best described as " + mood + ".",
		"Look for the one " + act + " near the " + spot + ".",
	}
	clue1 := clue1Options[s.intN(len(clue1Options))]

	var clue2 string
	if hint := strings.TrimSpace(answers["reveal"]); len(hint) > 3 {
		hints := []string{
			`Rumor has it: "` + hint + `"`,
			`They once whispered that "` + hint + `"`,
			`A secret dossier mentions: "` + hint + `"`,
		}
		clue2 = hints[s.intN(len(hints))]
	} else if gift := strings.TrimSpace(answers["gift"]); gift != "" {
		clue2 = "This student is secretly obsessed with " + gift + "."
	} else {
		clue2 = "This student is secretly obsessed with surprises."
	}

	return &Profile{
		Tags:   tags[:3],
		Clues:  []string{clue1, clue2, puzzleClue},
		Source: SourceFallback,
	}
}

// scrubAround scrubs text while leaving the keep segment untouched.
func scrubAround(text, name, keep string) string {
	if keep == "" {
		return scrubName(text, name)
	}
	i := strings.Index(text, keep)
	if i < 0 {
		return scrubName(text, name)
	}
	return scrubName(text[:i], name) + keep + scrubName(text[i+len(keep):], name)
}

// scrubName replaces exact, case-insensitive occurrences of the real name
// with a neutral placeholder.
func scrubName(text, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return text
	}
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(n))
	if err != nil {
		return text
	}
	return re.ReplaceAllString(text, NamePlaceholder)
}
