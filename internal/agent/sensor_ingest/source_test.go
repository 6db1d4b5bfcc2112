package sensor_ingest

import (
	"context"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

type fakeMQTT struct {
	subscribed   chan mqtt.MessageHandler
	unsubscribed chan string
}

func (f *fakeMQTT) Subscribe(_ string, _ byte, h mqtt.MessageHandler) error {
	f.subscribed <- h
	return nil
}

func (f *fakeMQTT) Unsubscribe(topic string) error {
	f.unsubscribed <- topic
	return nil
}

func TestMQTTSourceForwardsPayloadCopies(t *testing.T) {
	t.Parallel()

	sub := &fakeMQTT{subscribed: make(chan mqtt.MessageHandler, 1), unsubscribed: make(chan string, 1)}
	src := NewMQTTSource("devices/fridges", 1, sub, nil)
	assert.Equal(t, "mqtt:devices/fridges", src.Name())

	got := make(chan []byte, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, func(p []byte) bool { got <- p; return true })
	}()

	handler := <-sub.subscribed
	buf := []byte(`{"left_top":1}`)
	handler(nil, &fakeMessage{topic: "devices/fridges", payload: buf})
	buf[2] = 'X'

	assert.Equal(t, `{"left_top":1}`, string(<-got))

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, "devices/fridges", <-sub.unsubscribed)
}

type fakeNATS struct {
	handlers chan nats.MsgHandler
}

func (f *fakeNATS) Subscribe(_ string, cb nats.MsgHandler) (*nats.Subscription, error) {
	f.handlers <- cb
	return &nats.Subscription{}, nil
}

func TestNATSSourceForwardsPayloads(t *testing.T) {
	t.Parallel()

	conn := &fakeNATS{handlers: make(chan nats.MsgHandler, 1)}
	src := NewNATSSource("devices.fridges", conn, nil)
	assert.Equal(t, "nats:devices.fridges", src.Name())

	got := make(chan []byte, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- src.Run(ctx, func(p []byte) bool { got <- p; return true })
	}()

	cb := <-conn.handlers
	cb(&nats.Msg{Subject: "devices.fridges", Data: []byte(`{"beer":0}`)})
	assert.Equal(t, `{"beer":0}`, string(<-got))

	cancel()
	require.NoError(t, <-done)
}
