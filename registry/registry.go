package registry

import (
	"log"
	"sync"
	"time"

	"github.com/LTG-OPs/planning-poker/models"
)

// Policy controls session reclamation and join-code allocation.
type Policy struct {
	SweepInterval   time.Duration
	MaxInactivity   time.Duration
	DeleteWhenEmpty bool
	JoinCodeLength  int
}

// DefaultPolicy returns the standard reclamation policy: sweep every
// minute, evict sessions idle for more than 30 minutes, delete empty
// sessions, 6-character join codes.
func DefaultPolicy() Policy {
	return Policy{
		SweepInterval:   time.Minute,
		MaxInactivity:   30 * time.Minute,
		DeleteWhenEmpty: true,
		JoinCodeLength:  6,
	}
}

// Registry is the process-wide directory of live sessions. It owns the
// session map and the join-code map; every read-then-write path holds
// the registry lock so concurrent creates and joins cannot race.
type Registry struct {
	mutex     sync.RWMutex
	sessions  map[string]*models.Session
	joinCodes map[string]string
	policy    Policy
	now       func() time.Time
	sweepStop chan struct{}
}

// New creates an empty registry. The reclamation loop starts lazily
// with the first session and stops when the last one is deleted.
func New(policy Policy) *Registry {
	if policy.JoinCodeLength <= 0 {
		policy.JoinCodeLength = 6
	}
	return &Registry{
		sessions:  make(map[string]*models.Session),
		joinCodes: make(map[string]string),
		policy:    policy,
		now:       time.Now,
	}
}

// CreateSession allocates a session with hostName as its first
// participant, reserves a unique join code, and ensures the
// reclamation loop is running.
func (r *Registry) CreateSession(name, hostName string, override *models.ConfigOverride) (*models.Session, *models.Participant, string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	session := models.NewSession(name, hostName, override)
	code := r.generateJoinCodeLocked()

	r.sessions[session.ID] = session
	r.joinCodes[code] = session.ID
	r.startCleanupLocked()

	return session, session.Participants[0], code
}

// SessionByJoinCode looks a session up by its join code. Input is
// trimmed and uppercased before the lookup.
func (r *Registry) SessionByJoinCode(code string) (*models.Session, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, ok := r.joinCodes[NormalizeJoinCode(code)]
	if !ok {
		return nil, false
	}
	session, ok := r.sessions[id]
	return session, ok
}

// SessionByID looks a session up by its internal id.
func (r *Registry) SessionByID(id string) (*models.Session, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	session, ok := r.sessions[id]
	return session, ok
}

// JoinCode is the reverse lookup from session id to join code. Linear
// scan; the registry holds tens to low thousands of codes.
func (r *Registry) JoinCode(sessionID string) (string, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for code, id := range r.joinCodes {
		if id == sessionID {
			return code, true
		}
	}
	return "", false
}

// JoinSession adds a new participant to the session behind the code.
// It fails when the code resolves to no session or the session rejects
// the join.
func (r *Registry) JoinSession(code, participantName string, asObserver bool) (*models.Session, *models.Participant, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	id, ok := r.joinCodes[NormalizeJoinCode(code)]
	if !ok {
		return nil, nil, false
	}
	session, ok := r.sessions[id]
	if !ok {
		return nil, nil, false
	}

	participant := models.NewParticipant(participantName, asObserver)
	if !session.AddParticipant(participant) {
		return nil, nil, false
	}

	return session, participant, true
}

// LeaveSession removes a participant from its session. When the
// delete-when-empty policy is on and the session becomes empty, the
// session is deleted as part of this call rather than waiting for the
// next sweep.
func (r *Registry) LeaveSession(sessionID, participantID string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	if !session.RemoveParticipant(participantID) {
		return false
	}

	if r.policy.DeleteWhenEmpty && session.ParticipantCount() == 0 {
		r.deleteSessionLocked(sessionID)
	}

	return true
}

// DeleteSession removes a session and releases its join code.
// Idempotent: deleting an unknown id returns false. Deleting the last
// session stops the reclamation loop.
func (r *Registry) DeleteSession(sessionID string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	r.deleteSessionLocked(sessionID)
	return true
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.sessions)
}

// StartCleanup starts the reclamation loop if it is not running.
func (r *Registry) StartCleanup() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.startCleanupLocked()
}

// StopCleanup stops the reclamation loop and cancels its timer.
func (r *Registry) StopCleanup() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.stopCleanupLocked()
}

// Sweep deletes sessions that are empty (when the policy says so) or
// idle beyond the inactivity threshold, and returns how many went.
// Each session is evaluated independently; deleting one never affects
// the rest of the pass.
func (r *Registry) Sweep() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}

	deleted := 0
	for _, id := range ids {
		session, ok := r.sessions[id]
		if !ok {
			continue
		}
		if r.policy.DeleteWhenEmpty && session.ParticipantCount() == 0 {
			r.deleteSessionLocked(id)
			deleted++
			continue
		}
		if now.Sub(session.LastUpdated()) > r.policy.MaxInactivity {
			r.deleteSessionLocked(id)
			deleted++
		}
	}

	return deleted
}

// Reset drops all sessions and codes and stops the reclamation loop.
// For test isolation.
func (r *Registry) Reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.stopCleanupLocked()
	r.sessions = make(map[string]*models.Session)
	r.joinCodes = make(map[string]string)
}

// deleteSessionLocked removes a session and its join code and stops
// the reclamation loop when nothing is left to sweep.
func (r *Registry) deleteSessionLocked(sessionID string) {
	delete(r.sessions, sessionID)
	for code, id := range r.joinCodes {
		if id == sessionID {
			delete(r.joinCodes, code)
			break
		}
	}
	if len(r.sessions) == 0 {
		r.stopCleanupLocked()
	}
}

func (r *Registry) startCleanupLocked() {
	if r.sweepStop != nil {
		return
	}
	stop := make(chan struct{})
	r.sweepStop = stop
	go r.cleanupLoop(stop)
}

func (r *Registry) stopCleanupLocked() {
	if r.sweepStop != nil {
		close(r.sweepStop)
		r.sweepStop = nil
	}
}

func (r *Registry) cleanupLoop(stop chan struct{}) {
	ticker := time.NewTicker(r.policy.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Printf("reclaimed %d idle or empty sessions", n)
			}
		case <-stop:
			return
		}
	}
}
