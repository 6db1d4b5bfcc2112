package signaling

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/okieraised/sensor-watchdog/internal/common"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 16
)

// MessageHandler handles a validated request from a client.
type MessageHandler func(c *WebsocketClient, msg common.AlertMessage)

type WebsocketClient struct {
	ID      uuid.UUID
	Conn    *websocket.Conn
	send    chan common.AlertMessage
	onMsgFn MessageHandler
	hub     *WebsocketHub
	logger  *log.Logger
	writeMu sync.Mutex
	closed  chan struct{}

	mu       sync.Mutex
	isClosed bool
	sensors  map[string]struct{}
}

// NewWebsocketClient creates a new websocket client
func NewWebsocketClient(id uuid.UUID, conn *websocket.Conn, hub *WebsocketHub) *WebsocketClient {
	c := &WebsocketClient{
		ID:     id,
		Conn:   conn,
		send:   make(chan common.AlertMessage, sendBuffer),
		hub:    hub,
		logger: hub.logger.With(zap.String("client_id", id.String())),
		closed: make(chan struct{}),
	}
	c.onMsgFn = handleSubscribe

	go c.pingLoop()

	return c
}

func (c *WebsocketClient) SetMessageHandler(fn MessageHandler) {
	c.onMsgFn = fn
}

// Subscribe narrows delivery to sensors. An empty list means every sensor.
func (c *WebsocketClient) Subscribe(sensors []string) {
	filter := make(map[string]struct{}, len(sensors))
	for _, s := range sensors {
		filter[s] = struct{}{}
	}
	c.mu.Lock()
	c.sensors = filter
	c.mu.Unlock()
}

// Wants reports whether msg matches the client's subscription.
func (c *WebsocketClient) Wants(msg common.AlertMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return msg.Matches(c.sensors)
}

// Send queues msg without blocking. It returns false when the client is closed
// or its buffer is full.
func (c *WebsocketClient) Send(msg common.AlertMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Info(fmt.Sprintf("client %s's send buffer is full, dropping message", c.ID))
		return false
	}
}

func (c *WebsocketClient) Read() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Info(errors.Wrap(err, "failed to set read deadline").Error())
	}
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Info(errors.Wrap(err, "failed to set read deadline").Error())
		}
		return nil
	})

	for {
		var msg common.AlertMessage
		if err := c.Conn.ReadJSON(&msg); err != nil {
			c.logger.Info(errors.Wrap(err, "failed to read message").Error())
			break
		}
		if err := msg.Validate(); err != nil {
			c.logger.Info(errors.Wrap(err, "ignoring client message").Error())
			continue
		}
		if c.onMsgFn != nil {
			c.onMsgFn(c, msg)
		}
	}
}

func (c *WebsocketClient) Write() {
	for message := range c.send {
		if err := c.WriteJSON(message); err != nil {
			c.logger.Info(errors.Wrap(err, "failed to send message").Error())
			return
		}
	}
	// Channel closed -> send close frame
	if err := c.safeWrite(websocket.CloseMessage, []byte{}); err != nil {
		c.logger.Debug(errors.Wrap(err, "failed to send close message").Error())
	}
}

func (c *WebsocketClient) safeWrite(msgType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.Conn.WriteMessage(msgType, data)
}

func (c *WebsocketClient) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.Conn.WriteJSON(v)
}

func (c *WebsocketClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.safeWrite(websocket.PingMessage, nil); err != nil {
				c.logger.Error(errors.Wrap(err, fmt.Sprintf("client [%s] ping error", c.ID.String())).Error())
				_ = c.Conn.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Close stops the ping loop and lets Write flush and send a close frame. Safe to call twice.
func (c *WebsocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return
	}
	c.isClosed = true
	close(c.closed)
	close(c.send)
}

// handleSubscribe applies a Subscribe request and echoes it back as acknowledgement.
func handleSubscribe(c *WebsocketClient, msg common.AlertMessage) {
	if msg.Payload.Type != constants.MsgTypeSubscribe {
		return
	}
	c.Subscribe(msg.Payload.Sensors)
	c.logger.Debug("Client subscription updated", zap.Strings("sensors", msg.Payload.Sensors))

	ack := msg
	ack.Header.AgentID = c.hub.agentID
	ack.Header.Timestamp = time.Now().UTC()
	c.Send(ack)
}
