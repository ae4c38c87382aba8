package models

import (
	"encoding/json"
	"time"
)

// MessageType identifies a wire message. The set is closed: the
// dispatcher rejects anything it does not recognize.
type MessageType string

// Client -> server message types
const (
	MsgCreateSession MessageType = "create-session"
	MsgJoinSession   MessageType = "join-session"
	MsgLeaveSession  MessageType = "leave-session"
	MsgSubmitVote    MessageType = "submit-vote"
	MsgReveal        MessageType = "reveal"
	MsgStartRound    MessageType = "start-round"
	MsgResetRound    MessageType = "reset-round"
	MsgEndSession    MessageType = "end-session"
	MsgTransferHost  MessageType = "transfer-host"
	MsgPing          MessageType = "ping"
)

// Server -> client message types
const (
	MsgSessionUpdated MessageType = "session-updated"
	MsgError          MessageType = "error"
	MsgPong           MessageType = "pong"
)

// Envelope is the wire wrapper for every message in both directions.
// Timestamp is in integer milliseconds.
type Envelope struct {
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// NewEnvelope wraps a payload with the current timestamp.
func NewEnvelope(t MessageType, payload any) Envelope {
	return Envelope{
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Frame is an inbound envelope whose payload is still raw JSON; the
// dispatcher decodes it once the type is known.
type Frame struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// Payloads for client -> server messages.

type CreateSessionPayload struct {
	Name     string          `json:"name"`
	HostName string          `json:"hostName"`
	Config   *ConfigOverride `json:"config,omitempty"`
}

type JoinSessionPayload struct {
	JoinCode   string `json:"joinCode"`
	Name       string `json:"name"`
	IsObserver bool   `json:"isObserver"`
}

type LeaveSessionPayload struct {
	SessionID     string `json:"sessionId"`
	ParticipantID string `json:"participantId"`
}

type SubmitVotePayload struct {
	SessionID     string `json:"sessionId"`
	ParticipantID string `json:"participantId"`
	Value         Card   `json:"value"`
}

type StartRoundPayload struct {
	SessionID     string `json:"sessionId"`
	ParticipantID string `json:"participantId"`
	Story         string `json:"story"`
	Description   string `json:"description"`
}

type TransferHostPayload struct {
	SessionID     string `json:"sessionId"`
	ParticipantID string `json:"participantId"`
	NewHostID     string `json:"newHostId"`
}

// SessionActionPayload covers reveal, reset-round and end-session,
// which only need to identify the actor.
type SessionActionPayload struct {
	SessionID     string `json:"sessionId"`
	ParticipantID string `json:"participantId"`
}

// ErrorPayload is the payload of an error message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// SessionUpdatedPayload is the payload of a session-updated message.
type SessionUpdatedPayload struct {
	Session  SessionSnapshot `json:"session"`
	JoinCode string          `json:"joinCode,omitempty"`
}
