package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, options Options) (*Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(nil)
	hub.SetSnapshot(func() []Message {
		return []Message{NewMessage("case_state", map[string]interface{}{"loading": false})}
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()

	router := gin.New()
	router.GET("/ws", NewHandler(hub, options).HandleWebSocket)
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		cancel()
		<-done
		server.Close()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func readMessage(t *testing.T, conn *gorilla.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubSendsWelcomeAndSnapshot(t *testing.T) {
	hub, url := startHub(t, Options{})

	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, "welcome", readMessage(t, conn).Type)
	assert.Equal(t, "case_state", readMessage(t, conn).Type)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast("sos_state", map[string]interface{}{"phase": "countdown"})
	msg := readMessage(t, conn)
	assert.Equal(t, "sos_state", msg.Type)
	assert.Equal(t, "countdown", msg.Data.(map[string]interface{})["phase"])
}

func TestHubAnswersPingAndSync(t *testing.T) {
	_, url := startHub(t, Options{})

	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, "pong", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{"type":"sync"}`)))
	assert.Equal(t, "case_state", readMessage(t, conn).Type)
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub, url := startHub(t, Options{})

	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHandlerRejectsUnknownOrigin(t *testing.T) {
	_, url := startHub(t, Options{AllowedOrigins: []string{"http://localhost:3000"}})

	header := map[string][]string{"Origin": {"http://evil.test"}}
	_, resp, err := gorilla.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestBroadcastAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	for i := 0; i < 100; i++ {
		hub.Broadcast("case_state", nil)
	}
}
