package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/LTG-OPs/planning-poker/models"
)

// Package-level WebSocket upgrader
var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

const keepAliveInterval = 15 * time.Second

// wsClient is one upgraded connection. It binds to at most one session
// at a time; binding happens either through resume query parameters or
// through a create-session/join-session message.
type wsClient struct {
	handler *SessionHandler
	conn    *websocket.Conn

	out  chan models.Envelope
	done chan struct{}
	once sync.Once

	mu            sync.Mutex
	session       *models.Session
	participantID string
	sub           chan models.Envelope
}

// WebSocket upgrades the connection and runs the read and write pumps.
// Clients may resume an existing membership with sessionId and
// participantId query parameters.
func (h *SessionHandler) WebSocket(c *gin.Context) {
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		standardResponse(c, http.StatusInternalServerError, "error", nil, "Could not upgrade to WebSocket")
		return
	}
	defer conn.Close()

	client := &wsClient{
		handler: h,
		conn:    conn,
		out:     make(chan models.Envelope, 16),
		done:    make(chan struct{}),
	}

	if sessionID := c.Query("sessionId"); sessionID != "" {
		if session, ok := h.registry.SessionByID(sessionID); ok {
			client.bind(session, c.Query("participantId"))
			client.sendSessionState(session)
		}
	}

	go client.readPump()
	client.writePump()
}

// writePump is the single writer for the connection: direct replies,
// session broadcasts and keep-alive pings all flow through it.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case envelope := <-c.out:
			if err := c.conn.WriteJSON(envelope); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump parses inbound envelopes and dispatches them. A dropped
// connection removes the participant from its session, mirroring an
// explicit leave.
func (c *wsClient) readPump() {
	defer func() {
		c.leaveBoundSession()
		c.shutdown()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Printf("ws: discarding malformed frame: %v", err)
			c.sendError("malformed message envelope")
			continue
		}

		c.dispatch(frame)
	}
}

// dispatch routes one inbound frame by its declared type. The type set
// is closed; anything else is answered with an error message.
func (c *wsClient) dispatch(frame models.Frame) {
	switch frame.Type {
	case models.MsgPing:
		c.send(models.NewEnvelope(models.MsgPong, nil))

	case models.MsgCreateSession:
		var payload models.CreateSessionPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.Name == "" || payload.HostName == "" {
			c.sendError("create-session requires name and hostName")
			return
		}
		session, _, _ := c.handler.registry.CreateSession(payload.Name, payload.HostName, payload.Config)
		c.bind(session, session.HostID)
		c.sendSessionState(session)

	case models.MsgJoinSession:
		var payload models.JoinSessionPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.Name == "" {
			c.sendError("join-session requires joinCode and name")
			return
		}
		session, participant, ok := c.handler.registry.JoinSession(payload.JoinCode, payload.Name, payload.IsObserver)
		if !ok {
			c.sendError(models.ErrSessionNotFound.Error())
			return
		}
		c.bind(session, participant.ID)
		c.sendSessionState(session)

	case models.MsgLeaveSession:
		var payload models.LeaveSessionPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.sendError("malformed leave-session payload")
			return
		}
		c.unbind()
		if !c.handler.registry.LeaveSession(payload.SessionID, payload.ParticipantID) {
			c.sendError(models.ErrSessionNotFound.Error())
		}

	case models.MsgSubmitVote:
		var payload models.SubmitVotePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.sendError("malformed submit-vote payload")
			return
		}
		c.withSession(payload.SessionID, func(session *models.Session) error {
			return session.SubmitVote(payload.ParticipantID, payload.Value)
		})

	case models.MsgStartRound:
		var payload models.StartRoundPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.sendError("malformed start-round payload")
			return
		}
		c.withSession(payload.SessionID, func(session *models.Session) error {
			return session.StartRound(payload.ParticipantID, payload.Story, payload.Description)
		})

	case models.MsgReveal:
		var payload models.SessionActionPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.sendError("malformed reveal payload")
			return
		}
		c.withSession(payload.SessionID, func(session *models.Session) error {
			return session.Reveal(payload.ParticipantID)
		})

	case models.MsgResetRound:
		var payload models.SessionActionPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.sendError("malformed reset-round payload")
			return
		}
		c.withSession(payload.SessionID, func(session *models.Session) error {
			return session.ResetRound(payload.ParticipantID)
		})

	case models.MsgEndSession:
		var payload models.SessionActionPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.sendError("malformed end-session payload")
			return
		}
		c.withSession(payload.SessionID, func(session *models.Session) error {
			return session.End(payload.ParticipantID)
		})

	case models.MsgTransferHost:
		var payload models.TransferHostPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.sendError("malformed transfer-host payload")
			return
		}
		c.withSession(payload.SessionID, func(session *models.Session) error {
			return session.TransferHost(payload.ParticipantID, payload.NewHostID)
		})

	default:
		c.sendError("unknown message type: " + string(frame.Type))
	}
}

// withSession resolves a session id and runs op against it, converting
// a failure into an error message back to this client only.
func (c *wsClient) withSession(sessionID string, op func(*models.Session) error) {
	session, ok := c.handler.registry.SessionByID(sessionID)
	if !ok {
		c.sendError(models.ErrSessionNotFound.Error())
		return
	}
	if err := op(session); err != nil {
		c.sendError(err.Error())
	}
}

// bind subscribes this connection to a session's broadcasts.
func (c *wsClient) bind(session *models.Session, participantID string) {
	c.unbind()

	sub := session.Subscribe()

	c.mu.Lock()
	c.session = session
	c.participantID = participantID
	c.sub = sub
	c.mu.Unlock()

	go func() {
		for envelope := range sub {
			select {
			case c.out <- envelope:
			case <-c.done:
				return
			}
		}
	}()
}

// unbind detaches the connection from its session, if any.
func (c *wsClient) unbind() {
	c.mu.Lock()
	session, sub := c.session, c.sub
	c.session, c.participantID, c.sub = nil, "", nil
	c.mu.Unlock()

	if session != nil && sub != nil {
		session.Unsubscribe(sub)
	}
}

// leaveBoundSession removes the participant when the transport drops
// without an explicit leave-session message.
func (c *wsClient) leaveBoundSession() {
	c.mu.Lock()
	session, participantID, sub := c.session, c.participantID, c.sub
	c.session, c.participantID, c.sub = nil, "", nil
	c.mu.Unlock()

	if session == nil {
		return
	}
	if sub != nil {
		session.Unsubscribe(sub)
	}
	if participantID != "" {
		c.handler.registry.LeaveSession(session.ID, participantID)
	}
}

func (c *wsClient) sendSessionState(session *models.Session) {
	joinCode, _ := c.handler.registry.JoinCode(session.ID)
	c.send(models.NewEnvelope(models.MsgSessionUpdated, models.SessionUpdatedPayload{
		Session:  session.Snapshot(),
		JoinCode: joinCode,
	}))
}

func (c *wsClient) sendError(message string) {
	c.send(models.NewEnvelope(models.MsgError, models.ErrorPayload{Message: message}))
}

func (c *wsClient) send(envelope models.Envelope) {
	select {
	case c.out <- envelope:
	case <-c.done:
	}
}

func (c *wsClient) shutdown() {
	c.once.Do(func() { close(c.done) })
}
