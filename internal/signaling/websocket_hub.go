package signaling

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okieraised/sensor-watchdog/internal/common"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"go.uber.org/zap"
)

const broadcastBuffer = 64

type WebsocketHub struct {
	agentID    string
	logger     *log.Logger
	clients    map[*WebsocketClient]bool // Registered clients.
	broadcast  chan common.AlertMessage  // Outbound alert messages.
	register   chan *WebsocketClient     // Register requests from the clients.
	unregister chan *WebsocketClient     // Unregistered clients.
	done       chan struct{}
	headerID   atomic.Int64
	connected  atomic.Int64
}

func NewWebsocketHub(agentID string, logger *log.Logger) *WebsocketHub {
	if logger == nil {
		logger = log.Nop()
	}
	return &WebsocketHub{
		agentID:    agentID,
		logger:     logger,
		clients:    make(map[*WebsocketClient]bool),
		broadcast:  make(chan common.AlertMessage, broadcastBuffer),
		register:   make(chan *WebsocketClient),
		unregister: make(chan *WebsocketClient),
		done:       make(chan struct{}),
	}
}

// Register hands client to the hub. It returns false once the hub has stopped.
func (h *WebsocketHub) Register(client *WebsocketClient) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *WebsocketHub) Unregister(client *WebsocketClient) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast stamps msg with the next header id and queues it for every
// subscribed client. It never blocks; when the queue is full msg is dropped.
func (h *WebsocketHub) Broadcast(msg common.AlertMessage) {
	msg.Header.HeaderID = h.headerID.Add(1)
	if msg.Header.AgentID == "" {
		msg.Header.AgentID = h.agentID
	}
	if msg.Header.Timestamp.IsZero() {
		msg.Header.Timestamp = time.Now().UTC()
	}

	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("Websocket broadcast queue full, dropping message",
			zap.String("sensor", msg.Payload.Sensor),
			zap.String("type", string(msg.Payload.Type)),
		)
	}
}

// ClientCount returns the number of registered clients.
func (h *WebsocketHub) ClientCount() int {
	return int(h.connected.Load())
}

// Run serves registrations and broadcasts until ctx is done, then closes every client.
func (h *WebsocketHub) Run(ctx context.Context) error {
	h.logger.Info("Starting to listen for new clients and messages")
	defer func() {
		close(h.done)
		for client := range h.clients {
			h.RemoveClient(client)
		}
	}()

	for {
		select {
		case client := <-h.register:
			h.RegisterNewClient(client)
		case client := <-h.unregister:
			h.RemoveClient(client)
		case message := <-h.broadcast:
			h.HandleMessage(message)
		case <-ctx.Done():
			h.logger.Info("Shutting down alert websocket hub")
			return nil
		}
	}
}

func (h *WebsocketHub) RegisterNewClient(client *WebsocketClient) {
	if _, ok := h.clients[client]; !ok {
		h.logger.Debug(fmt.Sprintf("Registering new client with id [%s]", client.ID.String()))
		h.clients[client] = true
		h.connected.Store(int64(len(h.clients)))
	} else {
		h.logger.Debug(fmt.Sprintf("Client with id [%s] already registered", client.ID.String()))
	}
	h.logger.Debug(fmt.Sprintf("There are [%d] clients connected", len(h.clients)))
}

func (h *WebsocketHub) RemoveClient(client *WebsocketClient) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		h.connected.Store(int64(len(h.clients)))
		client.Close()
		h.logger.Debug(fmt.Sprintf("Client with id [%s] disconnected", client.ID.String()))
	}
}

func (h *WebsocketHub) HandleMessage(message common.AlertMessage) {
	h.logger.Debug("Publishing alert to subscribed clients",
		zap.Int64("header_id", message.Header.HeaderID),
		zap.String("sensor", message.Payload.Sensor),
	)
	for client := range h.clients {
		if !client.Wants(message) {
			continue
		}
		if !client.Send(message) {
			h.RemoveClient(client)
		}
	}
}
