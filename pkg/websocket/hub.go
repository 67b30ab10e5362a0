package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"resq/pkg/logger"
)

// Hub fans state snapshots out to every connected UI client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	snapshot   func() []Message
	stopped    chan struct{}
	log        *logger.Logger
	mutex      sync.RWMutex
}

type Message struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		log:        log.WithComponent("ws_hub"),
	}
}

// SetSnapshot installs the messages replayed to clients on connect and on
// a "sync" request. Call it before Run.
func (h *Hub) SetSnapshot(fn func() []Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.snapshot = fn
}

func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mutex.Lock()
		for client := range h.clients {
			delete(h.clients, client)
			close(client.send)
		}
		h.mutex.Unlock()
		close(h.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.sendToAll(message)
		}
	}
}

// Broadcast queues a message for every client. It drops the message once
// the hub has stopped.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	payload, err := json.Marshal(NewMessage(msgType, data))
	if err != nil {
		h.log.WithError(err).WithField("type", msgType).Error("Failed to encode websocket message")
		return
	}

	select {
	case h.broadcast <- payload:
	case <-h.stopped:
	}
}

func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true
	h.log.WithField("remote", client.remote).Info("UI client connected")

	h.sendToClient(client, NewMessage("welcome", map[string]interface{}{
		"message": "Connected successfully",
	}))
	h.sendSnapshotLocked(client)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.log.WithField("remote", client.remote).Info("UI client disconnected")
	}
}

func (h *Hub) sendToAll(message []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) sendSnapshot(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.clients[client] {
		h.sendSnapshotLocked(client)
	}
}

func (h *Hub) sendSnapshotLocked(client *Client) {
	if h.snapshot == nil {
		return
	}
	for _, msg := range h.snapshot() {
		h.sendToClient(client, msg)
	}
}

// sendToClient must be called with the mutex held.
func (h *Hub) sendToClient(client *Client, message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.log.WithError(err).Error("Failed to encode websocket message")
		return
	}
	select {
	case client.send <- data:
	default:
		if h.clients[client] {
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func NewMessage(msgType string, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: getCurrentTimestamp(),
		Data:      data,
	}
}

func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
