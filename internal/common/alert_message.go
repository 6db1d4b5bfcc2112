package common

import (
	"time"

	"github.com/google/uuid"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/pkg/errors"
)

// AlertMessage is the websocket envelope for alert events and client requests.
type AlertMessage struct {
	Header  Header       `json:"header"`
	Payload AlertPayload `json:"payload"`
}

type Header struct {
	HeaderID    int64     `json:"headerId"`          // monotonic per hub
	Version     string    `json:"version"`           // message version, e.g. "1.0.0"
	AgentID     string    `json:"agentId,omitempty"` // unique ID of the watchdog instance
	Timestamp   time.Time `json:"timestamp"`
	MessageType string    `json:"messageType"`
}

type AlertPayload struct {
	TransactionID  uuid.UUID             `json:"transactionId"`
	Type           constants.MessageType `json:"type"`
	Sensor         string                `json:"sensor,omitempty"`
	Name           string                `json:"name,omitempty"`
	Value          any                   `json:"value,omitempty"`
	TimeoutSeconds float64               `json:"timeoutSeconds,omitempty"`
	Text           string                `json:"text,omitempty"`
	At             time.Time             `json:"at,omitempty"`
	// Sensors narrows a Subscribe request; empty means every sensor.
	Sensors []string `json:"sensors,omitempty"`
}

// Validate checks a message received from a websocket client.
func (m *AlertMessage) Validate() error {
	if m.Header.MessageType != constants.MsgHeaderTypeAlert {
		return errors.Errorf("invalid message type: %s", m.Header.MessageType)
	}
	if m.Payload.Type != constants.MsgTypeSubscribe {
		return errors.Errorf("unsupported request: %s", m.Payload.Type)
	}
	return nil
}

// Matches reports whether a client subscribed to sensors should receive m.
func (m *AlertMessage) Matches(sensors map[string]struct{}) bool {
	if len(sensors) == 0 {
		return true
	}
	_, ok := sensors[m.Payload.Sensor]
	return ok
}
