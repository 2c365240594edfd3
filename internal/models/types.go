package models

import "time"

// MatchStatus tracks whether a participant has been assigned a target.
type MatchStatus string

const (
	StatusUnmatched MatchStatus = "UNMATCHED"
	StatusMatched   MatchStatus = "MATCHED"
)

// Participant is a member of the gift exchange. The token doubles as the
// login credential and the record key, so it must never appear in any
// payload describing this participant to somebody else.
type Participant struct {
	Token        string
	Name         string
	Class        string
	Email        string // delivery only; never disclosed
	IsRegistered bool
	Answers      map[string]string
	Tags         []string
	Clues        []string
	TargetToken  string // set by the matcher; empty until matched
	Status       MatchStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EventConfig is the singleton event record. RevealDate is global: every
// participant's target unlocks at the same instant.
type EventConfig struct {
	RevealDate        time.Time
	Status            MatchStatus
	TotalParticipants int
	MatchedAt         time.Time
}

// SeedEntry is one row of admin-supplied roster data.
type SeedEntry struct {
	Name  string `json:"name"`
	Class string `json:"class,omitempty"`
	Email string `json:"email,omitempty"`
}
