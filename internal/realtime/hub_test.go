package realtime

import (
	"context"
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

func startHubServer(t *testing.T, hub *Hub, userID string) (*websocket.Conn, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	upgrader := Upgrader()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(ctx, userID, conn)
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Connections(userID) == 1 }, time.Second, 10*time.Millisecond)

	return conn, func() {
		_ = conn.Close()
		cancel()
		srv.Close()
	}
}

func TestHubPublishDeliversToUser(t *testing.T) {
	hub := NewHub(Config{WriteTimeout: time.Second, PingInterval: time.Second}, nil)
	conn, cleanup := startHubServer(t, hub, "u1")
	defer cleanup()

	hub.Publish("someone-else", Message{Type: "notification", Data: "ignored"})
	hub.Publish("u1", Message{Type: "notification", Data: map[string]string{"title": "Schedule updated"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, "Schedule updated", msg.Data["title"])
}

func TestHubRemovesClosedConnections(t *testing.T) {
	hub := NewHub(Config{WriteTimeout: time.Second, PingInterval: time.Second}, nil)
	conn, cleanup := startHubServer(t, hub, "u2")
	defer cleanup()

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections("u2") == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish("u2", Message{Type: "notification"})
}
