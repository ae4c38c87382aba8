package registry

import "github.com/LTG-OPs/planning-poker/models"

// Snapshot is a point-in-time view of the registry for diagnostics.
// It is not a durability mechanism; sessions live only in memory.
type Snapshot struct {
	Sessions  []models.SessionSnapshot `json:"sessions"`
	JoinCodes map[string]string        `json:"joinCodes"`
}

// Snapshot captures every live session and the full code mapping.
func (r *Registry) Snapshot() Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snap := Snapshot{
		Sessions:  make([]models.SessionSnapshot, 0, len(r.sessions)),
		JoinCodes: make(map[string]string, len(r.joinCodes)),
	}
	for _, session := range r.sessions {
		snap.Sessions = append(snap.Sessions, session.Snapshot())
	}
	for code, id := range r.joinCodes {
		snap.JoinCodes[code] = id
	}
	return snap
}
