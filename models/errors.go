package models

import "errors"

// Common errors
var (
	ErrParticipantNotFound = errors.New("participant not found in session")
	ErrParticipantExists   = errors.New("participant already exists in session")
	ErrNotHost             = errors.New("only the session host can perform this action")
	ErrInvalidCard         = errors.New("card is not part of this session's deck")
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionClosed       = errors.New("session is completed and no longer accepts actions")
	ErrInvalidName         = errors.New("invalid participant name")
	ErrEmptyStory          = errors.New("story name must not be empty")
	ErrNotVoting           = errors.New("votes are only accepted while a round is open")
	ErrObserverVote        = errors.New("observers cannot vote")
)
