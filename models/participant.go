package models

import (
	"time"

	"github.com/google/uuid"
)

// NewParticipant creates a participant with a fresh id and no vote.
func NewParticipant(name string, observer bool) *Participant {
	return &Participant{
		ID:         uuid.New().String(),
		Name:       name,
		IsObserver: observer,
		JoinedAt:   time.Now(),
	}
}

// HasVoted reports whether the participant selected a value this round.
func (p *Participant) HasVoted() bool {
	return p.SelectedValue != nil
}
