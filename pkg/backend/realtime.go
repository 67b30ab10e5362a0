package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"resq/internal/gateway"
	"resq/pkg/logger"
)

const (
	realtimeWriteWait = 10 * time.Second

	eventJoin            = "phx_join"
	eventLeave           = "phx_leave"
	eventHeartbeat       = "heartbeat"
	eventPostgresChanges = "postgres_changes"
)

type realtimeMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
}

type changePayload struct {
	Data struct {
		Type  string `json:"type"`
		Table string `json:"table"`
	} `json:"data"`
	Type  string `json:"type"`
	Table string `json:"table"`
}

type subscription struct {
	table   string
	onEvent func(gateway.ChangeEvent)
}

// realtimeClient multiplexes table subscriptions over one websocket and
// reconnects with exponential backoff until the last subscriber leaves.
type realtimeClient struct {
	endpoint     string
	apiKey       string
	token        func() string
	dialer       *websocket.Dialer
	heartbeat    time.Duration
	reconnectMin time.Duration
	reconnectMax time.Duration
	log          *logger.Logger

	mu     sync.Mutex
	subs   map[int]subscription
	nextID int
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}

	writeMu sync.Mutex
	ref     uint64
}

func newRealtimeClient(endpoint, apiKey string, token func() string, config *Config, log *logger.Logger) *realtimeClient {
	rc := &realtimeClient{
		endpoint:     endpoint,
		apiKey:       apiKey,
		token:        token,
		dialer:       &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		heartbeat:    config.HeartbeatInterval,
		reconnectMin: config.ReconnectMin,
		reconnectMax: config.ReconnectMax,
		log:          log.WithField("channel", "realtime"),
		subs:         make(map[int]subscription),
	}
	if rc.heartbeat <= 0 {
		rc.heartbeat = 30 * time.Second
	}
	if rc.reconnectMin <= 0 {
		rc.reconnectMin = time.Second
	}
	if rc.reconnectMax < rc.reconnectMin {
		rc.reconnectMax = 30 * time.Second
	}
	return rc
}

func (rc *realtimeClient) subscribe(ctx context.Context, table string, onEvent func(gateway.ChangeEvent)) (func(), error) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.cancel == nil {
		conn, err := rc.dial(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to realtime: %w", err)
		}
		runCtx, cancel := context.WithCancel(context.Background())
		rc.conn = conn
		rc.cancel = cancel
		rc.done = make(chan struct{})
		go rc.run(runCtx, conn, rc.done)
	}

	joined := rc.tableJoinedLocked(table)
	id := rc.nextID
	rc.nextID++
	rc.subs[id] = subscription{table: table, onEvent: onEvent}

	if !joined && rc.conn != nil {
		if err := rc.send(rc.conn, topicFor(table), eventJoin, joinPayload(table)); err != nil {
			rc.log.WithError(err).WithField("table", table).Warn("Realtime join failed, will retry on reconnect")
		}
	}

	var once sync.Once
	return func() { once.Do(func() { rc.unsubscribe(id) }) }, nil
}

func (rc *realtimeClient) unsubscribe(id int) {
	rc.mu.Lock()
	sub, ok := rc.subs[id]
	if !ok {
		rc.mu.Unlock()
		return
	}
	delete(rc.subs, id)

	if len(rc.subs) > 0 {
		if !rc.tableJoinedLocked(sub.table) && rc.conn != nil {
			_ = rc.send(rc.conn, topicFor(sub.table), eventLeave, json.RawMessage(`{}`))
		}
		rc.mu.Unlock()
		return
	}

	cancel, done := rc.cancel, rc.done
	rc.cancel, rc.done, rc.conn = nil, nil, nil
	rc.mu.Unlock()

	cancel()
	<-done
}

func (rc *realtimeClient) run(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	backoff := rc.reconnectMin
	for {
		err := rc.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		rc.log.WithError(err).Warn("Realtime connection lost")

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, rc.reconnectMax)

			conn, err = rc.dial(ctx)
			if err == nil {
				break
			}
			rc.log.WithError(err).Debug("Realtime reconnect failed")
		}

		rc.mu.Lock()
		if ctx.Err() != nil {
			rc.mu.Unlock()
			conn.Close()
			return
		}
		rc.conn = conn
		rc.mu.Unlock()
		backoff = rc.reconnectMin
		rc.log.Info("Realtime connection restored")
	}
}

func (rc *realtimeClient) serve(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	rc.mu.Lock()
	tables := rc.tablesLocked()
	rc.mu.Unlock()
	for _, table := range tables {
		if err := rc.send(conn, topicFor(table), eventJoin, joinPayload(table)); err != nil {
			return err
		}
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			rc.dispatch(data)
		}
	}()

	ticker := time.NewTicker(rc.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			rc.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(realtimeWriteWait))
			rc.writeMu.Unlock()
			conn.Close()
			<-readErr
			return nil
		case <-ticker.C:
			if err := rc.send(conn, "phoenix", eventHeartbeat, json.RawMessage(`{}`)); err != nil {
				conn.Close()
				<-readErr
				return err
			}
		case err := <-readErr:
			return err
		}
	}
}

func (rc *realtimeClient) dispatch(data []byte) {
	var msg realtimeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		rc.log.WithError(err).Debug("Ignoring malformed realtime frame")
		return
	}

	eventType, ok := changeType(msg)
	if !ok {
		return
	}
	table := tableFromTopic(msg.Topic)

	rc.mu.Lock()
	var handlers []func(gateway.ChangeEvent)
	for _, sub := range rc.subs {
		if sub.table == table {
			handlers = append(handlers, sub.onEvent)
		}
	}
	rc.mu.Unlock()

	event := gateway.ChangeEvent{Table: table, Type: eventType, Received: time.Now()}
	for _, h := range handlers {
		h(event)
	}
}

func (rc *realtimeClient) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(rc.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime url: %w", err)
	}
	q := u.Query()
	if rc.apiKey != "" {
		q.Set("apikey", rc.apiKey)
	}
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()

	header := http.Header{}
	if token := rc.token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := rc.dialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (rc *realtimeClient) send(conn *websocket.Conn, topic, event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	rc.writeMu.Lock()
	defer rc.writeMu.Unlock()
	rc.ref++
	ref := strconv.FormatUint(rc.ref, 10)
	msg := realtimeMessage{Topic: topic, Event: event, Payload: raw, Ref: &ref}

	conn.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
	return conn.WriteJSON(msg)
}

func (rc *realtimeClient) tableJoinedLocked(table string) bool {
	for _, sub := range rc.subs {
		if sub.table == table {
			return true
		}
	}
	return false
}

func (rc *realtimeClient) tablesLocked() []string {
	seen := make(map[string]bool)
	var tables []string
	for _, sub := range rc.subs {
		if !seen[sub.table] {
			seen[sub.table] = true
			tables = append(tables, sub.table)
		}
	}
	return tables
}

func joinPayload(table string) interface{} {
	return map[string]interface{}{
		"config": map[string]interface{}{
			"postgres_changes": []map[string]string{
				{"event": string(gateway.EventAny), "schema": "public", "table": table},
			},
		},
	}
}

func topicFor(table string) string {
	return "realtime:public:" + table
}

func tableFromTopic(topic string) string {
	if i := strings.LastIndex(topic, ":"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

func changeType(msg realtimeMessage) (gateway.EventType, bool) {
	switch msg.Event {
	case string(gateway.EventInsert), string(gateway.EventUpdate), string(gateway.EventDelete):
		return gateway.EventType(msg.Event), true
	case eventPostgresChanges:
		var payload changePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return gateway.EventAny, true
		}
		t := payload.Data.Type
		if t == "" {
			t = payload.Type
		}
		if t == "" {
			return gateway.EventAny, true
		}
		return gateway.EventType(strings.ToUpper(t)), true
	}
	return "", false
}
