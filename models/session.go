package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewSession creates a new planning poker session with its host as the
// first participant. The config override is applied once, here; the
// resulting config is fixed for the session's lifetime.
func NewSession(name, hostName string, override *ConfigOverride) *Session {
	now := time.Now()

	config := SessionConfig{
		Deck:            DefaultDeck,
		AllowSpectators: true,
	}
	if override != nil {
		if len(override.Deck) > 0 {
			config.Deck = override.Deck
		}
		if override.AutoRevealHint != nil {
			config.AutoRevealHint = *override.AutoRevealHint
		}
		if override.AllowSpectators != nil {
			config.AllowSpectators = *override.AllowSpectators
		}
	}

	host := NewParticipant(hostName, false)

	return &Session{
		ID:           uuid.New().String(),
		Name:         name,
		HostID:       host.ID,
		Participants: []*Participant{host},
		Status:       StatusWaiting,
		Config:       config,
		CreatedAt:    now,
		UpdatedAt:    now,
		VoteHistory:  make([]RoundRecord, 0),
		Clients:      make(map[chan Envelope]bool),
	}
}

// AddParticipant appends a participant unless the session is completed,
// the id is already present, or the session rejects observers.
func (s *Session) AddParticipant(p *Participant) bool {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	if s.Status == StatusCompleted {
		return false
	}
	if p.IsObserver && !s.Config.AllowSpectators {
		return false
	}
	for _, existing := range s.Participants {
		if existing.ID == p.ID {
			return false
		}
	}

	s.Participants = append(s.Participants, p)
	s.touch()
	s.broadcastLocked()

	return true
}

// RemoveParticipant removes a participant by id. If the host leaves,
// the earliest-joined remaining participant becomes the new host.
func (s *Session) RemoveParticipant(id string) bool {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	idx := -1
	for i, p := range s.Participants {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	s.Participants = append(s.Participants[:idx], s.Participants[idx+1:]...)

	if s.HostID == id && len(s.Participants) > 0 {
		s.HostID = s.Participants[0].ID
	}

	s.touch()
	s.broadcastLocked()

	return true
}

// ParticipantCount returns the number of participants in the session.
func (s *Session) ParticipantCount() int {
	s.Mutex.RLock()
	defer s.Mutex.RUnlock()
	return len(s.Participants)
}

// LastUpdated returns the session's UpdatedAt timestamp.
func (s *Session) LastUpdated() time.Time {
	s.Mutex.RLock()
	defer s.Mutex.RUnlock()
	return s.UpdatedAt
}

// SubmitVote records a vote for a participant. Votes are accepted only
// while a round is open, only from non-observers, and only for cards in
// the session's deck.
func (s *Session) SubmitVote(participantID string, value Card) error {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	if s.Status != StatusVoting {
		return ErrNotVoting
	}

	p := s.findLocked(participantID)
	if p == nil {
		return ErrParticipantNotFound
	}
	if p.IsObserver {
		return ErrObserverVote
	}
	if !s.deckContains(value) {
		return ErrInvalidCard
	}

	v := value
	p.SelectedValue = &v
	s.broadcastLocked()

	return nil
}

// StartRound opens a new voting round. Only the host may start one, the
// story name must be non-empty, and a round can only start from the
// waiting or revealed states. Starting from revealed archives the
// previous round first.
func (s *Session) StartRound(initiatorID, story, description string) error {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	if s.HostID != initiatorID {
		return ErrNotHost
	}
	if s.Status != StatusWaiting && s.Status != StatusRevealed {
		return ErrNotVoting
	}
	story = strings.TrimSpace(story)
	if story == "" {
		return ErrEmptyStory
	}

	if s.Status == StatusRevealed {
		s.archiveRoundLocked()
	}

	for _, p := range s.Participants {
		p.SelectedValue = nil
	}
	s.CurrentStory = story
	s.CurrentDescription = description
	s.Status = StatusVoting
	s.touch()
	s.broadcastLocked()

	return nil
}

// Reveal closes the round: no further votes are accepted.
func (s *Session) Reveal(initiatorID string) error {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	if s.HostID != initiatorID {
		return ErrNotHost
	}
	if s.Status != StatusVoting {
		return ErrNotVoting
	}

	s.Status = StatusRevealed
	s.touch()
	s.broadcastLocked()

	return nil
}

// ResetRound archives the revealed round and returns the session to the
// waiting state with votes and story cleared.
func (s *Session) ResetRound(initiatorID string) error {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	if s.HostID != initiatorID {
		return ErrNotHost
	}
	if s.Status != StatusRevealed {
		return ErrNotVoting
	}

	s.archiveRoundLocked()

	for _, p := range s.Participants {
		p.SelectedValue = nil
	}
	s.CurrentStory = ""
	s.CurrentDescription = ""
	s.Status = StatusWaiting
	s.touch()
	s.broadcastLocked()

	return nil
}

// End marks the session completed. Terminal: no votes, rounds or joins
// are accepted afterwards.
func (s *Session) End(initiatorID string) error {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	if s.HostID != initiatorID {
		return ErrNotHost
	}
	if s.Status == StatusCompleted {
		return ErrSessionClosed
	}

	s.Status = StatusCompleted
	s.touch()
	s.broadcastLocked()

	return nil
}

// TransferHost hands host rights to another participant.
func (s *Session) TransferHost(initiatorID, newHostID string) error {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	if s.HostID != initiatorID {
		return ErrNotHost
	}
	if s.findLocked(newHostID) == nil {
		return ErrParticipantNotFound
	}

	s.HostID = newHostID
	s.broadcastLocked()

	return nil
}

// AllVotesIn reports whether every non-observer participant has voted.
// Advisory only; it never triggers a reveal by itself.
func (s *Session) AllVotesIn() bool {
	s.Mutex.RLock()
	defer s.Mutex.RUnlock()

	voters := 0
	for _, p := range s.Participants {
		if p.IsObserver {
			continue
		}
		if p.SelectedValue == nil {
			return false
		}
		voters++
	}
	return voters > 0
}

// Results summarizes the revealed round. The bool is false unless the
// session status is revealed or completed.
func (s *Session) Results() (RoundResult, bool) {
	s.Mutex.RLock()
	defer s.Mutex.RUnlock()

	if s.Status != StatusRevealed && s.Status != StatusCompleted {
		return RoundResult{}, false
	}

	result := RoundResult{Counts: make(map[Card]int)}

	sum := 0.0
	numeric := 0
	allVoted := true
	var unanimous *Card

	for _, p := range s.Participants {
		if p.IsObserver {
			continue
		}
		result.Voters++
		if p.SelectedValue == nil {
			allVoted = false
			continue
		}
		v := *p.SelectedValue
		result.Counts[v]++
		if unanimous == nil {
			unanimous = p.SelectedValue
		}
		if n, err := strconv.ParseFloat(string(v), 64); err == nil {
			sum += n
			numeric++
		}
	}

	if numeric > 0 {
		result.Average = sum / float64(numeric)
		result.HasAverage = true
	}
	result.Consensus = result.Voters >= 2 && allVoted &&
		len(result.Counts) == 1 && unanimous != nil && !unanimous.IsSentinel()

	return result, true
}

// Snapshot returns a consistent copy of the session for serialization.
func (s *Session) Snapshot() SessionSnapshot {
	s.Mutex.RLock()
	defer s.Mutex.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers a new client to receive session updates.
func (s *Session) Subscribe() chan Envelope {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	ch := make(chan Envelope, 10)
	s.Clients[ch] = true

	return ch
}

// Unsubscribe removes a client from receiving session updates.
func (s *Session) Unsubscribe(ch chan Envelope) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()

	if _, exists := s.Clients[ch]; exists {
		delete(s.Clients, ch)
		close(ch)
	}
}

// touch refreshes UpdatedAt. Callers must hold the write lock.
func (s *Session) touch() {
	s.UpdatedAt = time.Now()
}

func (s *Session) findLocked(id string) *Participant {
	for _, p := range s.Participants {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) deckContains(value Card) bool {
	for _, c := range s.Config.Deck {
		if c == value {
			return true
		}
	}
	return false
}

func (s *Session) archiveRoundLocked() {
	record := RoundRecord{
		Story:       s.CurrentStory,
		Description: s.CurrentDescription,
		RevealedAt:  time.Now(),
	}
	for _, p := range s.Participants {
		if p.IsObserver {
			continue
		}
		var value *Card
		if p.SelectedValue != nil {
			v := *p.SelectedValue
			value = &v
		}
		record.Votes = append(record.Votes, RecordedVote{
			ParticipantName: p.Name,
			Value:           value,
		})
	}
	s.VoteHistory = append(s.VoteHistory, record)
}

func (s *Session) snapshotLocked() SessionSnapshot {
	snap := SessionSnapshot{
		ID:                 s.ID,
		Name:               s.Name,
		HostID:             s.HostID,
		Status:             s.Status,
		CurrentStory:       s.CurrentStory,
		CurrentDescription: s.CurrentDescription,
		Config:             s.Config,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	snap.Participants = make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		copied := *p
		if p.SelectedValue != nil {
			v := *p.SelectedValue
			copied.SelectedValue = &v
		}
		snap.Participants = append(snap.Participants, copied)
	}
	snap.VoteHistory = append([]RoundRecord(nil), s.VoteHistory...)
	return snap
}

// broadcastLocked fans a session-updated message out to all subscribed
// clients without blocking on any of them. Callers hold the write lock.
func (s *Session) broadcastLocked() {
	envelope := NewEnvelope(MsgSessionUpdated, SessionUpdatedPayload{Session: s.snapshotLocked()})
	for client := range s.Clients {
		select {
		case client <- envelope:
		default:
			// Client is not keeping up; it will resync on reconnect.
		}
	}
}
