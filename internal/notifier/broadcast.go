package notifier

import (
	"context"

	"github.com/google/uuid"
	"github.com/okieraised/sensor-watchdog/internal/common"
	"github.com/okieraised/sensor-watchdog/internal/constants"
)

// Hub receives messages for every connected websocket client.
type Hub interface {
	Broadcast(msg common.AlertMessage)
}

type Broadcast struct {
	hub Hub
}

func NewBroadcast(hub Hub) *Broadcast {
	return &Broadcast{hub: hub}
}

func (b *Broadcast) Name() string { return "broadcast" }

func (b *Broadcast) Notify(_ context.Context, evt Event) error {
	msgType := constants.MsgTypeAlertTriggered
	if evt.Kind == KindResolved {
		msgType = constants.MsgTypeAlertResolved
	}
	b.hub.Broadcast(common.AlertMessage{
		Header: common.Header{
			Version:     "1.0.0",
			Timestamp:   evt.At,
			MessageType: constants.MsgHeaderTypeAlert,
		},
		Payload: common.AlertPayload{
			TransactionID:  uuid.New(),
			Type:           msgType,
			Sensor:         evt.Sensor,
			Name:           evt.Name,
			Value:          evt.Value,
			TimeoutSeconds: evt.Timeout.Seconds(),
			Text:           ChatText(evt),
			At:             evt.At,
		},
	})
	return nil
}
