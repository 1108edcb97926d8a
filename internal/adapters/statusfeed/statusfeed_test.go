package statusfeed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealthz_ReturnsLatestHeartbeat(t *testing.T) {
	s := New(":0", nil)
	hb := Heartbeat{Networks: 3, Handshakes: 2, CrackedKeys: 1, Scans: 5, Vulnerabilities: 4, EnumerationActive: true, ActiveCaptures: 1}
	s.Publish(hb)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got Heartbeat
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Networks)
	assert.Equal(t, 2, got.Handshakes)
	assert.Equal(t, 1, got.CrackedKeys)
	assert.Equal(t, 5, got.Scans)
	assert.Equal(t, 4, got.Vulnerabilities)
	assert.True(t, got.EnumerationActive)
	assert.Equal(t, 1, got.ActiveCaptures)
}

func TestMetricsEndpoint_Serves(t *testing.T) {
	s := New(":0", nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebSocket_ReceivesSnapshotOnConnectAndPublishedUpdates(t *testing.T) {
	s := New(":0", nil)
	s.Publish(Heartbeat{Networks: 1})

	server := httptest.NewServer(s.router())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var snapshot Heartbeat
	require.NoError(t, json.Unmarshal(msg, &snapshot))
	assert.Equal(t, 1, snapshot.Networks)

	s.Publish(Heartbeat{Networks: 7, CrackedKeys: 2})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	var update Heartbeat
	require.NoError(t, json.Unmarshal(msg, &update))
	assert.Equal(t, 7, update.Networks)
	assert.Equal(t, 2, update.CrackedKeys)

	s.mu.Lock()
	clientCount := len(s.clients)
	s.mu.Unlock()
	assert.Equal(t, 1, clientCount)
}
