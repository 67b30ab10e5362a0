package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resq/internal/gateway"
)

type fakeRealtime struct {
	server *httptest.Server
	joins  chan realtimeMessage
	conns  chan *websocket.Conn
}

func newFakeRealtime(t *testing.T) *fakeRealtime {
	t.Helper()
	f := &fakeRealtime{
		joins: make(chan realtimeMessage, 8),
		conns: make(chan *websocket.Conn, 4),
	}
	upgrader := websocket.Upgrader{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.URL.Query().Get("apikey"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg realtimeMessage
			if json.Unmarshal(data, &msg) == nil && msg.Event == eventJoin {
				f.joins <- msg
			}
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeRealtime) url() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func newRealtimeTestClient(f *fakeRealtime) *Client {
	return NewClient(&Config{
		URL:               "http://unused.test",
		AnonKey:           "anon-key",
		RealtimeURL:       f.url(),
		HeartbeatInterval: time.Hour,
		ReconnectMin:      10 * time.Millisecond,
		ReconnectMax:      20 * time.Millisecond,
	}, nil)
}

func TestSubscribeJoinsAndDispatches(t *testing.T) {
	f := newFakeRealtime(t)
	c := newRealtimeTestClient(f)

	events := make(chan gateway.ChangeEvent, 4)
	unsubscribe, err := c.Subscribe(context.Background(), gateway.TableReports, func(e gateway.ChangeEvent) {
		events <- e
	})
	require.NoError(t, err)
	defer unsubscribe()

	var join realtimeMessage
	select {
	case join = <-f.joins:
	case <-time.After(2 * time.Second):
		t.Fatal("no join received")
	}
	assert.Equal(t, "realtime:public:tbl_reports", join.Topic)
	assert.Contains(t, string(join.Payload), `"table":"tbl_reports"`)

	conn := <-f.conns
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(
		`{"topic":"realtime:public:tbl_reports","event":"postgres_changes","payload":{"data":{"type":"UPDATE","table":"tbl_reports"}},"ref":null}`)))
	// Replies are not change events.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(
		`{"topic":"realtime:public:tbl_reports","event":"phx_reply","payload":{"status":"ok"},"ref":"1"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(
		`{"topic":"realtime:public:tbl_reports","event":"INSERT","payload":{},"ref":null}`)))

	select {
	case e := <-events:
		assert.Equal(t, gateway.EventUpdate, e.Type)
		assert.Equal(t, gateway.TableReports, e.Table)
	case <-time.After(2 * time.Second):
		t.Fatal("no event dispatched")
	}
	select {
	case e := <-events:
		assert.Equal(t, gateway.EventInsert, e.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no legacy event dispatched")
	}
}

func TestRealtimeReconnectsAndRejoins(t *testing.T) {
	f := newFakeRealtime(t)
	c := newRealtimeTestClient(f)

	unsubscribe, err := c.Subscribe(context.Background(), gateway.TableReports, func(gateway.ChangeEvent) {})
	require.NoError(t, err)
	defer unsubscribe()

	<-f.joins
	first := <-f.conns
	first.Close()

	select {
	case join := <-f.joins:
		assert.Equal(t, "realtime:public:tbl_reports", join.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not rejoin after reconnect")
	}
}

func TestUnsubscribeStopsConnection(t *testing.T) {
	f := newFakeRealtime(t)
	c := newRealtimeTestClient(f)

	unsubscribe, err := c.Subscribe(context.Background(), gateway.TableReports, func(gateway.ChangeEvent) {})
	require.NoError(t, err)
	<-f.joins

	unsubscribe()
	unsubscribe()

	c.realtime.mu.Lock()
	defer c.realtime.mu.Unlock()
	assert.Nil(t, c.realtime.cancel)
	assert.Empty(t, c.realtime.subs)
}

func TestSubscribeDialFailure(t *testing.T) {
	c := NewClient(&Config{URL: "http://unused.test", RealtimeURL: "ws://127.0.0.1:1/socket"}, nil)

	_, err := c.Subscribe(context.Background(), gateway.TableReports, func(gateway.ChangeEvent) {})
	require.Error(t, err)
}

func TestChangeType(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  gateway.EventType
		ok    bool
	}{
		{"postgres changes", `{"event":"postgres_changes","payload":{"data":{"type":"delete"}}}`, gateway.EventDelete, true},
		{"postgres changes without type", `{"event":"postgres_changes","payload":{}}`, gateway.EventAny, true},
		{"legacy update", `{"event":"UPDATE","payload":{}}`, gateway.EventUpdate, true},
		{"heartbeat reply", `{"event":"phx_reply","payload":{}}`, "", false},
		{"presence", `{"event":"presence_state","payload":{}}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg realtimeMessage
			require.NoError(t, json.Unmarshal([]byte(tt.frame), &msg))
			got, ok := changeType(msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
