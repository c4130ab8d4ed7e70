package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger, nil)
	router := chi.NewRouter()
	hub.Register(router)
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, clientID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?clientId=" + clientID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubDeliversOnlyToAddressedClient(t *testing.T) {
	hub, server := newTestServer(t)
	alice := dial(t, server, "alice")
	bob := dial(t, server, "bob")
	require.Eventually(t, func() bool {
		return hub.Connected("alice") == 1 && hub.Connected("bob") == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, hub.Send("alice", Message{Type: "generation.chunk", TaskID: "t1", Content: "hi"}))
	assert.Zero(t, hub.Send("carol", Message{Type: "generation.chunk"}))

	var got Message
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, alice.ReadJSON(&got))
	assert.Equal(t, Message{Type: "generation.chunk", TaskID: "t1", Content: "hi"}, got)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, _, err := bob.ReadMessage()
	assert.Error(t, err)
}

func TestHubFansOutToEveryTab(t *testing.T) {
	hub, server := newTestServer(t)
	tabs := []*websocket.Conn{dial(t, server, "alice"), dial(t, server, "alice")}
	require.Eventually(t, func() bool { return hub.Connected("alice") == 2 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, hub.Send("alice", Message{Type: "generation.done", TaskID: "t1"}))
	for _, tab := range tabs {
		var got Message
		require.NoError(t, tab.SetReadDeadline(time.Now().Add(time.Second)))
		require.NoError(t, tab.ReadJSON(&got))
		assert.Equal(t, "generation.done", got.Type)
	}
}

func TestHubForgetsClosedSockets(t *testing.T) {
	hub, server := newTestServer(t)
	conn := dial(t, server, "alice")
	require.Eventually(t, func() bool { return hub.Connected("alice") == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connected("alice") == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubRequiresClientID(t *testing.T) {
	_, server := newTestServer(t)
	resp, err := http.Get(server.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:5173"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://localhost:5173")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}
