package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/okieraised/sensor-watchdog/internal/common"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/local_cache"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	topic   string
	payload string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, payload: string(payload)})
	return p.err
}

type countingNotifier struct {
	name  string
	calls int
	err   error
}

func (c *countingNotifier) Notify(context.Context, Event) error {
	c.calls++
	return c.err
}

func (c *countingNotifier) Name() string { return c.name }

func triggered() Event {
	return Event{
		Kind:    KindTriggered,
		Sensor:  "left_top",
		Name:    "left fridge",
		Value:   float64(1),
		Timeout: 5 * time.Second,
		At:      time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func resolved() Event {
	evt := triggered()
	evt.Kind = KindResolved
	evt.Value = float64(0)
	return evt
}

func TestTexts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "left fridge has been open for more than 5 seconds.", ChatText(triggered()))
	assert.Equal(t, "left fridge has been closed again.", ChatText(resolved()))
	assert.Equal(t, "Close the left fridge you dunce.", SpeechText(triggered()))
	assert.Equal(t, "Thank you for closing left fridge.", SpeechText(resolved()))

	evt := triggered()
	evt.Timeout = 1500 * time.Millisecond
	assert.Equal(t, "left fridge has been open for more than 1.5 seconds.", ChatText(evt))
}

func TestTelegramPublishesCommand(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	n := NewTelegram(pub, constants.MqttDefaultChatTopic, -1004242)
	require.NoError(t, n.Notify(context.Background(), triggered()))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "chat/outgoing", pub.msgs[0].topic)
	assert.JSONEq(t,
		`{"command":"sendMessage","payload":{"chat_id":-1004242,"text":"left fridge has been open for more than 5 seconds."}}`,
		pub.msgs[0].payload,
	)
}

func TestSpeakerPublishesText(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	n := NewSpeaker(pub, constants.MqttDefaultSpeakTopic)
	require.NoError(t, n.Notify(context.Background(), resolved()))

	assert.Equal(t, []published{{topic: "billy/speak", payload: "Thank you for closing left fridge."}}, pub.msgs)
}

type fakeHub struct {
	msgs []common.AlertMessage
}

func (h *fakeHub) Broadcast(msg common.AlertMessage) { h.msgs = append(h.msgs, msg) }

func TestBroadcast(t *testing.T) {
	t.Parallel()

	hub := &fakeHub{}
	require.NoError(t, NewBroadcast(hub).Notify(context.Background(), resolved()))

	require.Len(t, hub.msgs, 1)
	msg := hub.msgs[0]
	assert.Equal(t, constants.MsgHeaderTypeAlert, msg.Header.MessageType)
	assert.Equal(t, constants.MsgTypeAlertResolved, msg.Payload.Type)
	assert.Equal(t, "left_top", msg.Payload.Sensor)
	assert.Equal(t, float64(5), msg.Payload.TimeoutSeconds)
}

type fakePutter struct {
	key  string
	body []byte
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.key = *in.Key
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestArchive(t *testing.T) {
	t.Parallel()

	api := &fakePutter{}
	a := NewArchive(api, "events", "alerts")
	evt := triggered()
	require.NoError(t, a.Notify(context.Background(), evt))

	assert.Equal(t, "alerts/2024/03/01/left_top-triggered-1709287200000000000.json", api.key)
	var got Event
	require.NoError(t, json.Unmarshal(api.body, &got))
	assert.Equal(t, evt.Sensor, got.Sensor)
	assert.Equal(t, evt.Kind, got.Kind)
	assert.True(t, evt.At.Equal(got.At))
}

func TestMultiContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	reg := metrics.NewRegistry()
	bad := &countingNotifier{name: "bad", err: errors.New("down")}
	good := &countingNotifier{name: "good"}
	m := NewMulti(nil, reg.Metrics, bad, good)

	err := m.Notify(context.Background(), triggered())
	assert.Error(t, err)
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.Metrics.NotifyErrors.WithLabelValues("bad")))
}

func TestDedupSuppressesRepeats(t *testing.T) {
	t.Parallel()

	cache, err := local_cache.New(local_cache.WithNumCounters(1_000), local_cache.WithMaxCost(100))
	require.NoError(t, err)
	defer cache.Close()

	inner := &countingNotifier{name: "inner"}
	d := NewDedup(inner, cache, time.Minute)

	require.NoError(t, d.Notify(context.Background(), triggered()))
	require.NoError(t, d.Notify(context.Background(), triggered()))
	require.NoError(t, d.Notify(context.Background(), resolved()))
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "inner", d.Name())
}

func TestDedupIsPerSink(t *testing.T) {
	t.Parallel()

	cache, err := local_cache.New(local_cache.WithNumCounters(1_000), local_cache.WithMaxCost(100))
	require.NoError(t, err)
	defer cache.Close()

	chat := &countingNotifier{name: "telegram"}
	speech := &countingNotifier{name: "speaker"}
	m := NewMulti(nil, nil,
		NewDedup(chat, cache, time.Minute),
		NewDedup(speech, cache, time.Minute),
	)

	require.NoError(t, m.Notify(context.Background(), triggered()))
	require.NoError(t, m.Notify(context.Background(), triggered()))
	assert.Equal(t, 1, chat.calls)
	assert.Equal(t, 1, speech.calls)
}

func TestDedupDisabled(t *testing.T) {
	t.Parallel()

	inner := &countingNotifier{name: "inner"}
	assert.Same(t, Notifier(inner), NewDedup(inner, nil, time.Minute))
	assert.Same(t, Notifier(inner), NewDedup(inner, nil, 0))
}

func TestNop(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Nop{}.Notify(context.Background(), triggered()))
	assert.Equal(t, "nop", Nop{}.Name())
}
