package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LTG-OPs/planning-poker/models"
	"github.com/LTG-OPs/planning-poker/registry"
)

// standardResponse sends a consistent JSON response
func standardResponse(c *gin.Context, code int, status string, data interface{}, err string) {
	response := gin.H{"status": status}

	if data != nil {
		response["data"] = data
	}

	if err != "" {
		response["error"] = err
	}

	c.JSON(code, response)
}

// SessionHandler handles all session-related requests
type SessionHandler struct {
	registry *registry.Registry
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(reg *registry.Registry) *SessionHandler {
	return &SessionHandler{
		registry: reg,
	}
}

// CreateSession handles session creation requests
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req struct {
		Name     string                 `json:"name" binding:"required"`
		HostName string                 `json:"hostName" binding:"required"`
		Config   *models.ConfigOverride `json:"config"`
	}

	if err := c.BindJSON(&req); err != nil {
		standardResponse(c, http.StatusBadRequest, "error", nil, models.ErrInvalidName.Error())
		return
	}

	session, host, joinCode := h.registry.CreateSession(req.Name, req.HostName, req.Config)

	standardResponse(c, http.StatusCreated, "created", gin.H{
		"sessionId":     session.ID,
		"participantId": host.ID,
		"joinCode":      joinCode,
	}, "")
}

// JoinSession handles requests to join a session by join code
func (h *SessionHandler) JoinSession(c *gin.Context) {
	var req struct {
		JoinCode   string `json:"joinCode" binding:"required"`
		Name       string `json:"name" binding:"required"`
		IsObserver bool   `json:"isObserver"`
	}

	if err := c.BindJSON(&req); err != nil {
		standardResponse(c, http.StatusBadRequest, "error", nil, models.ErrInvalidName.Error())
		return
	}

	session, participant, ok := h.registry.JoinSession(req.JoinCode, req.Name, req.IsObserver)
	if !ok {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrSessionNotFound.Error())
		return
	}

	standardResponse(c, http.StatusOK, "joined", gin.H{
		"sessionId":     session.ID,
		"participantId": participant.ID,
	}, "")
}

// LeaveSession handles requests to leave a session
func (h *SessionHandler) LeaveSession(c *gin.Context) {
	sessionID := c.Param("id")
	participantID := c.Query("participantId")

	if participantID == "" {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Invalid participant ID")
		return
	}

	if ok := h.registry.LeaveSession(sessionID, participantID); !ok {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrSessionNotFound.Error())
		return
	}

	standardResponse(c, http.StatusOK, "left", nil, "")
}

// GetSession handles requests to get session information
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID := c.Param("id")

	session, ok := h.registry.SessionByID(sessionID)
	if !ok {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrSessionNotFound.Error())
		return
	}

	joinCode, _ := h.registry.JoinCode(sessionID)

	c.JSON(http.StatusOK, models.SessionUpdatedPayload{
		Session:  session.Snapshot(),
		JoinCode: joinCode,
	})
}

// SubmitVote handles vote submission requests
func (h *SessionHandler) SubmitVote(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		ParticipantID string      `json:"participantId" binding:"required"`
		Value         models.Card `json:"value" binding:"required"`
	}

	if err := c.BindJSON(&req); err != nil {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Invalid request format")
		return
	}

	session, ok := h.registry.SessionByID(sessionID)
	if !ok {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrSessionNotFound.Error())
		return
	}

	if err := session.SubmitVote(req.ParticipantID, req.Value); err != nil {
		standardResponse(c, http.StatusBadRequest, "error", nil, err.Error())
		return
	}

	standardResponse(c, http.StatusOK, "vote_submitted", nil, "")
}

// StartRound handles requests to open a new voting round
func (h *SessionHandler) StartRound(c *gin.Context) {
	sessionID := c.Param("id")
	var req struct {
		ParticipantID string `json:"participantId" binding:"required"`
		Story         string `json:"story" binding:"required"`
		Description   string `json:"description"`
	}

	if err := c.BindJSON(&req); err != nil {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Invalid request format")
		return
	}

	session, ok := h.registry.SessionByID(sessionID)
	if !ok {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrSessionNotFound.Error())
		return
	}

	if err := session.StartRound(req.ParticipantID, req.Story, req.Description); err != nil {
		standardResponse(c, http.StatusForbidden, "error", nil, err.Error())
		return
	}

	standardResponse(c, http.StatusOK, "round_started", nil, "")
}

// Reveal handles requests to reveal all votes
func (h *SessionHandler) Reveal(c *gin.Context) {
	sessionID := c.Param("id")
	participantID := c.Query("participantId")

	if participantID == "" {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Invalid participant ID")
		return
	}

	session, ok := h.registry.SessionByID(sessionID)
	if !ok {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrSessionNotFound.Error())
		return
	}

	if err := session.Reveal(participantID); err != nil {
		standardResponse(c, http.StatusForbidden, "error", nil, err.Error())
		return
	}

	results, _ := session.Results()

	standardResponse(c, http.StatusOK, "revealed", gin.H{"results": results}, "")
}

// ResetRound handles requests to reset voting after a reveal
func (h *SessionHandler) ResetRound(c *gin.Context) {
	sessionID := c.Param("id")
	participantID := c.Query("participantId")

	if participantID == "" {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Invalid participant ID")
		return
	}

	session, ok := h.registry.SessionByID(sessionID)
	if !ok {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrSessionNotFound.Error())
		return
	}

	if err := session.ResetRound(participantID); err != nil {
		standardResponse(c, http.StatusForbidden, "error", nil, err.Error())
		return
	}

	standardResponse(c, http.StatusOK, "round_reset", nil, "")
}

// EndSession handles requests to mark a session completed
func (h *SessionHandler) EndSession(c *gin.Context) {
	sessionID := c.Param("id")
	participantID := c.Query("participantId")

	if participantID == "" {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Invalid participant ID")
		return
	}

	session, ok := h.registry.SessionByID(sessionID)
	if !ok {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrSessionNotFound.Error())
		return
	}

	if err := session.End(participantID); err != nil {
		standardResponse(c, http.StatusForbidden, "error", nil, err.Error())
		return
	}

	standardResponse(c, http.StatusOK, "ended", nil, "")
}

// TransferHost handles requests to hand host rights to another participant
func (h *SessionHandler) TransferHost(c *gin.Context) {
	sessionID := c.Param("id")
	participantID := c.Query("participantId")

	var req struct {
		NewHostID string `json:"newHostId" binding:"required"`
	}

	if err := c.BindJSON(&req); err != nil {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Invalid request format")
		return
	}

	if participantID == "" {
		standardResponse(c, http.StatusBadRequest, "error", nil, "Invalid participant ID")
		return
	}

	session, ok := h.registry.SessionByID(sessionID)
	if !ok {
		standardResponse(c, http.StatusNotFound, "error", nil, models.ErrSessionNotFound.Error())
		return
	}

	if err := session.TransferHost(participantID, req.NewHostID); err != nil {
		standardResponse(c, http.StatusForbidden, "error", nil, err.Error())
		return
	}

	standardResponse(c, http.StatusOK, "host_transferred", nil, "")
}

// RegistrySnapshot dumps the registry for diagnostics
func (h *SessionHandler) RegistrySnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Snapshot())
}
