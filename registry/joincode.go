package registry

import (
	"crypto/rand"
	"strings"
)

// joinCodeAlphabet excludes visually ambiguous characters (0/O, 1/I/L)
// so codes survive being read aloud or scribbled on a whiteboard.
const joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// joinCodeAttempts bounds collision retries at one code width before
// the code space is widened by one character.
const joinCodeAttempts = 100

// NormalizeJoinCode canonicalizes user input: trimmed, uppercased.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// generateJoinCodeLocked draws random codes until one is free. The
// retry loop is iterative and bounded per width; if a width is somehow
// exhausted the code grows a character and retries. Callers hold the
// registry lock, so a returned code cannot be claimed twice.
func (r *Registry) generateJoinCodeLocked() string {
	length := r.policy.JoinCodeLength
	for {
		for attempt := 0; attempt < joinCodeAttempts; attempt++ {
			code := randomJoinCode(length)
			if _, taken := r.joinCodes[code]; !taken {
				return code
			}
		}
		length++
	}
}

func randomJoinCode(length int) string {
	buf := make([]byte, length)
	_, _ = rand.Read(buf)
	for i := range buf {
		buf[i] = joinCodeAlphabet[int(buf[i])%len(joinCodeAlphabet)]
	}
	return string(buf)
}
