package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/okieraised/sensor-watchdog/internal/common"
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*WebsocketHub, string) {
	t.Helper()

	hub := NewWebsocketHub("agent-1", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Run(ctx)
	}()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewWebsocketClient(uuid.New(), conn, hub)
		if !hub.Register(client) {
			_ = conn.Close()
			return
		}
		go client.Write()
		go client.Read()
	}))

	t.Cleanup(func() {
		cancel()
		<-done
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, hub *WebsocketHub, url string, want int) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.ClientCount() == want }, time.Second, 10*time.Millisecond)
	return conn
}

func alert(sensor string) common.AlertMessage {
	return common.AlertMessage{
		Header: common.Header{Version: "1.0.0", MessageType: constants.MsgHeaderTypeAlert},
		Payload: common.AlertPayload{
			TransactionID: uuid.New(),
			Type:          constants.MsgTypeAlertTriggered,
			Sensor:        sensor,
		},
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) common.AlertMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg common.AlertMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestBroadcastReachesClients(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t)
	first := dial(t, hub, url, 1)
	second := dial(t, hub, url, 2)

	hub.Broadcast(alert("left_top"))

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readMessage(t, conn)
		assert.Equal(t, int64(1), msg.Header.HeaderID)
		assert.Equal(t, "agent-1", msg.Header.AgentID)
		assert.False(t, msg.Header.Timestamp.IsZero())
		assert.Equal(t, "left_top", msg.Payload.Sensor)
	}
}

func TestSubscribeFiltersSensors(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)

	req := common.AlertMessage{
		Header:  common.Header{Version: "1.0.0", MessageType: constants.MsgHeaderTypeAlert},
		Payload: common.AlertPayload{Type: constants.MsgTypeSubscribe, Sensors: []string{"right_top"}},
	}
	require.NoError(t, conn.WriteJSON(req))

	ack := readMessage(t, conn)
	assert.Equal(t, constants.MsgTypeSubscribe, ack.Payload.Type)
	assert.Equal(t, []string{"right_top"}, ack.Payload.Sensors)

	hub.Broadcast(alert("left_top"))
	hub.Broadcast(alert("right_top"))

	msg := readMessage(t, conn)
	assert.Equal(t, "right_top", msg.Payload.Sensor)
	assert.Equal(t, int64(2), msg.Header.HeaderID)
}

func TestInvalidRequestIsIgnored(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)

	require.NoError(t, conn.WriteJSON(map[string]any{"header": map[string]any{"messageType": "telemetry"}}))
	hub.Broadcast(alert("left_top"))

	msg := readMessage(t, conn)
	assert.Equal(t, constants.MsgTypeAlertTriggered, msg.Payload.Type)
	assert.Equal(t, 1, hub.ClientCount())
}

func TestDisconnectUnregisters(t *testing.T) {
	t.Parallel()

	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastAfterStopDoesNotBlock(t *testing.T) {
	t.Parallel()

	hub := NewWebsocketHub("agent-1", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, hub.Run(ctx))

	for i := 0; i < broadcastBuffer*2; i++ {
		hub.Broadcast(alert("left_top"))
	}
	assert.False(t, hub.Register(&WebsocketClient{}))
}
