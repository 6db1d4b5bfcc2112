package common

import (
	"testing"

	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/stretchr/testify/assert"
)

func TestAlertMessageValidate(t *testing.T) {
	msg := AlertMessage{
		Header:  Header{MessageType: constants.MsgHeaderTypeAlert},
		Payload: AlertPayload{Type: constants.MsgTypeSubscribe, Sensors: []string{"left_top"}},
	}
	assert.NoError(t, msg.Validate())

	msg.Payload.Type = constants.MsgTypeAlertTriggered
	assert.Error(t, msg.Validate())

	msg.Header.MessageType = "telemetry"
	assert.Error(t, msg.Validate())
}

func TestAlertMessageMatches(t *testing.T) {
	msg := AlertMessage{Payload: AlertPayload{Sensor: "beer"}}
	assert.True(t, msg.Matches(nil))
	assert.True(t, msg.Matches(map[string]struct{}{"beer": {}}))
	assert.False(t, msg.Matches(map[string]struct{}{"left_top": {}}))
}
