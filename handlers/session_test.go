package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LTG-OPs/planning-poker/models"
	"github.com/LTG-OPs/planning-poker/registry"
)

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg := registry.New(registry.Policy{
		SweepInterval:   time.Hour,
		MaxInactivity:   30 * time.Minute,
		DeleteWhenEmpty: true,
		JoinCodeLength:  6,
	})
	t.Cleanup(reg.StopCleanup)

	router := gin.New()
	RegisterRoutes(router, NewSessionHandler(reg))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, reg
}

type apiResponse struct {
	Status string                 `json:"status"`
	Data   map[string]interface{} `json:"data"`
	Error  string                 `json:"error"`
}

func postJSON(t *testing.T, url string, body interface{}) (int, apiResponse) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestCreateSessionEndpoint(t *testing.T) {
	srv, reg := newTestServer(t)

	code, resp := postJSON(t, srv.URL+"/api/sessions", gin.H{
		"name":     "Sprint 1",
		"hostName": "Alice",
	})

	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "created", resp.Status)
	assert.Len(t, resp.Data["joinCode"], 6)

	session, ok := reg.SessionByID(resp.Data["sessionId"].(string))
	require.True(t, ok)
	assert.Equal(t, "Sprint 1", session.Name)
}

func TestCreateSessionValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	code, resp := postJSON(t, srv.URL+"/api/sessions", gin.H{"name": "Sprint 1"})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "error", resp.Status)
}

func TestJoinSessionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	_, created := postJSON(t, srv.URL+"/api/sessions", gin.H{
		"name":     "Sprint 1",
		"hostName": "Alice",
	})
	joinCode := created.Data["joinCode"].(string)

	code, joined := postJSON(t, srv.URL+"/api/sessions/join", gin.H{
		"joinCode": joinCode,
		"name":     "Bob",
	})

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, created.Data["sessionId"], joined.Data["sessionId"])
	assert.NotEmpty(t, joined.Data["participantId"])
}

func TestJoinSessionUnknownCode(t *testing.T) {
	srv, _ := newTestServer(t)

	code, resp := postJSON(t, srv.URL+"/api/sessions/join", gin.H{
		"joinCode": "NOSUCH",
		"name":     "Bob",
	})

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, models.ErrSessionNotFound.Error(), resp.Error)
}

func TestFullRoundOverREST(t *testing.T) {
	srv, reg := newTestServer(t)

	_, created := postJSON(t, srv.URL+"/api/sessions", gin.H{
		"name":     "Sprint 1",
		"hostName": "Alice",
	})
	sessionID := created.Data["sessionId"].(string)
	aliceID := created.Data["participantId"].(string)
	joinCode := created.Data["joinCode"].(string)
	require.Len(t, joinCode, 6)

	_, joined := postJSON(t, srv.URL+"/api/sessions/join", gin.H{
		"joinCode": joinCode,
		"name":     "Bob",
	})
	bobID := joined.Data["participantId"].(string)

	session, ok := reg.SessionByID(sessionID)
	require.True(t, ok)
	assert.Equal(t, 2, session.ParticipantCount())

	base := srv.URL + "/api/sessions/" + sessionID

	code, _ := postJSON(t, base+"/round", gin.H{
		"participantId": aliceID,
		"story":         "STORY-42",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StatusVoting, session.Snapshot().Status)

	code, _ = postJSON(t, base+"/vote", gin.H{"participantId": aliceID, "value": "5"})
	require.Equal(t, http.StatusOK, code)
	code, _ = postJSON(t, base+"/vote", gin.H{"participantId": bobID, "value": "5"})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, session.AllVotesIn())

	code, revealed := postJSON(t, base+"/reveal?participantId="+aliceID, gin.H{})
	require.Equal(t, http.StatusOK, code)

	results := revealed.Data["results"].(map[string]interface{})
	assert.Equal(t, true, results["consensus"])

	snap := session.Snapshot()
	assert.Equal(t, models.StatusRevealed, snap.Status)
}

func TestRevealRequiresHost(t *testing.T) {
	srv, _ := newTestServer(t)

	_, created := postJSON(t, srv.URL+"/api/sessions", gin.H{
		"name":     "Sprint 1",
		"hostName": "Alice",
	})
	sessionID := created.Data["sessionId"].(string)
	aliceID := created.Data["participantId"].(string)
	joinCode := created.Data["joinCode"].(string)

	_, joined := postJSON(t, srv.URL+"/api/sessions/join", gin.H{
		"joinCode": joinCode,
		"name":     "Bob",
	})
	bobID := joined.Data["participantId"].(string)

	base := srv.URL + "/api/sessions/" + sessionID
	code, _ := postJSON(t, base+"/round", gin.H{"participantId": aliceID, "story": "STORY-42"})
	require.Equal(t, http.StatusOK, code)

	code, resp := postJSON(t, base+"/reveal?participantId="+bobID, gin.H{})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, models.ErrNotHost.Error(), resp.Error)
}

func TestLeaveSessionEndpointDeletesEmpty(t *testing.T) {
	srv, reg := newTestServer(t)

	_, created := postJSON(t, srv.URL+"/api/sessions", gin.H{
		"name":     "Sprint 1",
		"hostName": "Alice",
	})
	sessionID := created.Data["sessionId"].(string)
	aliceID := created.Data["participantId"].(string)

	code, _ := postJSON(t, srv.URL+"/api/sessions/"+sessionID+"/leave?participantId="+aliceID, gin.H{})
	require.Equal(t, http.StatusOK, code)

	_, ok := reg.SessionByID(sessionID)
	assert.False(t, ok)
}

func TestGetSessionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	_, created := postJSON(t, srv.URL+"/api/sessions", gin.H{
		"name":     "Sprint 1",
		"hostName": "Alice",
	})
	sessionID := created.Data["sessionId"].(string)

	resp, err := http.Get(srv.URL + "/api/sessions/" + sessionID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload models.SessionUpdatedPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, sessionID, payload.Session.ID)
	assert.Equal(t, created.Data["joinCode"], payload.JoinCode)
}

func TestGetSessionNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/sessions/nosuch")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransferHostEndpoint(t *testing.T) {
	srv, reg := newTestServer(t)

	_, created := postJSON(t, srv.URL+"/api/sessions", gin.H{
		"name":     "Sprint 1",
		"hostName": "Alice",
	})
	sessionID := created.Data["sessionId"].(string)
	aliceID := created.Data["participantId"].(string)
	joinCode := created.Data["joinCode"].(string)

	_, joined := postJSON(t, srv.URL+"/api/sessions/join", gin.H{
		"joinCode": joinCode,
		"name":     "Bob",
	})
	bobID := joined.Data["participantId"].(string)

	code, _ := postJSON(t, srv.URL+"/api/sessions/"+sessionID+"/host?participantId="+aliceID,
		gin.H{"newHostId": bobID})
	require.Equal(t, http.StatusOK, code)

	session, ok := reg.SessionByID(sessionID)
	require.True(t, ok)
	assert.Equal(t, bobID, session.Snapshot().HostID)
}

func TestRegistrySnapshotEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	_, created := postJSON(t, srv.URL+"/api/sessions", gin.H{
		"name":     "Sprint 1",
		"hostName": "Alice",
	})

	resp, err := http.Get(srv.URL + "/api/debug/registry")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap registry.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	require.Len(t, snap.Sessions, 1)
	assert.Equal(t, created.Data["sessionId"], snap.JoinCodes[created.Data["joinCode"].(string)])
}
