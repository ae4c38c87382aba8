package models

import (
	"sync"
	"time"
)

// Participant represents a user inside one planning poker session.
type Participant struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	IsObserver    bool      `json:"isObserver"`
	SelectedValue *Card     `json:"selectedValue"`
	JoinedAt      time.Time `json:"joinedAt"`
}

// SessionConfig holds session-level settings fixed at creation.
type SessionConfig struct {
	Deck            []Card `json:"deck"`
	AutoRevealHint  bool   `json:"autoRevealHint"`
	AllowSpectators bool   `json:"allowSpectators"`
}

// ConfigOverride is a partial SessionConfig applied on top of the
// defaults at creation time only.
type ConfigOverride struct {
	Deck            []Card `json:"deck,omitempty"`
	AutoRevealHint  *bool  `json:"autoRevealHint,omitempty"`
	AllowSpectators *bool  `json:"allowSpectators,omitempty"`
}

// RoundRecord captures the outcome of a revealed round before the
// next one starts.
type RoundRecord struct {
	Story       string         `json:"story"`
	Description string         `json:"description"`
	Votes       []RecordedVote `json:"votes"`
	RevealedAt  time.Time      `json:"revealedAt"`
}

// RecordedVote is one participant's vote inside a RoundRecord.
type RecordedVote struct {
	ParticipantName string `json:"participantName"`
	Value           *Card  `json:"value"`
}

// RoundResult summarizes a revealed round.
type RoundResult struct {
	Counts     map[Card]int `json:"counts"`
	Voters     int          `json:"voters"`
	Consensus  bool         `json:"consensus"`
	Average    float64      `json:"average"`
	HasAverage bool         `json:"hasAverage"`
}

// Session represents one planning poker session.
type Session struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	HostID             string         `json:"hostId"`
	Participants       []*Participant `json:"participants"`
	Status             Status         `json:"status"`
	CurrentStory       string         `json:"currentStory"`
	CurrentDescription string         `json:"currentDescription"`
	Config             SessionConfig  `json:"config"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	VoteHistory        []RoundRecord  `json:"voteHistory"`

	Mutex   sync.RWMutex           `json:"-"`
	Clients map[chan Envelope]bool `json:"-"`
}

// SessionSnapshot is a consistent, lock-free copy of a Session suitable
// for serialization.
type SessionSnapshot struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	HostID             string        `json:"hostId"`
	Participants       []Participant `json:"participants"`
	Status             Status        `json:"status"`
	CurrentStory       string        `json:"currentStory"`
	CurrentDescription string        `json:"currentDescription"`
	Config             SessionConfig `json:"config"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
	VoteHistory        []RoundRecord `json:"voteHistory"`
}
