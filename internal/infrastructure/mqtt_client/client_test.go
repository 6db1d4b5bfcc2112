package mqtt_client

import (
	"testing"
	"time"

	"github.com/okieraised/sensor-watchdog/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestIsSecureScheme(t *testing.T) {
	assert.True(t, isSecureScheme("mqtts://broker:8883"))
	assert.True(t, isSecureScheme("SSL://broker:8883"))
	assert.False(t, isSecureScheme("tcp://broker:1883"))
}

func TestReadDuration(t *testing.T) {
	viper.Set(config.MqttWriteTimeout, "750ms")
	viper.Set(config.MqttPingTimeout, 3)
	defer viper.Set(config.MqttWriteTimeout, nil)
	defer viper.Set(config.MqttPingTimeout, nil)

	assert.Equal(t, 750*time.Millisecond, readDuration(config.MqttWriteTimeout, time.Second))
	assert.Equal(t, 3*time.Second, readDuration(config.MqttPingTimeout, time.Second))
	assert.Equal(t, time.Minute, readDuration(config.MqttKeepAliveDuration, time.Minute))
}

func TestPublishWithoutClient(t *testing.T) {
	assert.False(t, IsConnected())
	assert.ErrorIs(t, Publish("chat/outgoing", 0, false, []byte("x")), ErrNotConnected)
	assert.ErrorIs(t, Publisher{}.Publish("billy/speak", []byte("x")), ErrNotConnected)
}

func TestSubscribeBeforeConnectIsDeferred(t *testing.T) {
	assert.NoError(t, Subscribe("devices/fridges", 1, nil))
	subsMu.Lock()
	_, ok := subs["devices/fridges"]
	subsMu.Unlock()
	assert.True(t, ok)

	assert.NoError(t, Unsubscribe("devices/fridges"))
	subsMu.Lock()
	_, ok = subs["devices/fridges"]
	subsMu.Unlock()
	assert.False(t, ok)
}

func TestConnectionListeners(t *testing.T) {
	var got []bool
	AddConnectionListener(func(connected bool) { got = append(got, connected) })
	notifyListeners(true)
	notifyListeners(false)
	assert.Equal(t, []bool{true, false}, got)
}

func TestNewMQTTClientEmptyEndpoint(t *testing.T) {
	assert.Error(t, NewMQTTClient("", "sensor-watchdog"))
}
