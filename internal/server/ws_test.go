package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbcode/internal/orchestrator"
)

func dialWS(t *testing.T, srv *Server) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		_ = conn.Close()
		ts.Close()
	}
}

func TestWebSocketReceivesTaskEvents(t *testing.T) {
	manager := orchestrator.NewManager(nil)
	srv := newTestServer(t, Deps{Manager: manager})

	conn, cleanup := dialWS(t, srv)
	defer cleanup()

	require.Eventually(t, func() bool {
		return srv.hub.ConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	task, err := manager.Create(orchestrator.CreateTaskRequest{Title: "observable", Assignee: orchestrator.RoleImplementer})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event orchestrator.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, orchestrator.EventTaskCreated, event.Type)
	assert.Equal(t, task.ID, event.TaskID)
	require.NotNil(t, event.Task)
	assert.Equal(t, "observable", event.Task.Title)
}

func TestWebSocketClientRemovedOnDisconnect(t *testing.T) {
	manager := orchestrator.NewManager(nil)
	srv := newTestServer(t, Deps{Manager: manager})

	conn, cleanup := dialWS(t, srv)
	defer cleanup()

	require.Eventually(t, func() bool {
		return srv.hub.ConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return srv.hub.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	manager := orchestrator.NewManager(nil)
	srv := newTestServer(t, Deps{Manager: manager})

	conn, cleanup := dialWS(t, srv)
	defer cleanup()

	require.Eventually(t, func() bool {
		return srv.hub.ConnectionCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	srv.hub.Close()
	assert.Zero(t, srv.hub.ConnectionCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "server side closed the socket")
}
