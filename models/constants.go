package models

// Card represents a planning poker card value
type Card string

// Available planning poker cards
const (
	Zero     Card = "0"
	One      Card = "1"
	Two      Card = "2"
	Three    Card = "3"
	Five     Card = "5"
	Eight    Card = "8"
	Thirteen Card = "13"
	Twenty   Card = "20"
	Forty    Card = "40"
	Hundred  Card = "100"
	Question Card = "?"
	Coffee   Card = "coffee"
)

// DefaultDeck is the card set a session allows unless overridden at creation.
var DefaultDeck = []Card{Zero, One, Two, Three, Five, Eight, Thirteen, Twenty, Forty, Hundred, Question, Coffee}

// IsSentinel reports whether the card is a non-numeric placeholder
// ("?" or "coffee"). Sentinels never count toward consensus.
func (c Card) IsSentinel() bool {
	return c == Question || c == Coffee
}

// Status represents a session's position in its lifecycle.
type Status string

// Possible session statuses
const (
	StatusWaiting   Status = "waiting"
	StatusVoting    Status = "voting"
	StatusRevealed  Status = "revealed"
	StatusCompleted Status = "completed"
)
