package constants

type MessageType string

const (
	MsgTypeAlertTriggered MessageType = "AlertTriggered"
	MsgTypeAlertResolved  MessageType = "AlertResolved"
	MsgTypeSubscribe      MessageType = "Subscribe"
)

type MessageHeaderType string

const (
	MsgHeaderTypeAlert = "alert"
)

// Display names of the fridge compartments.
var DefaultSensorNames = map[string]string{
	"left_bottom":  "left freezer",
	"left_top":     "left fridge",
	"right_bottom": "right freezer",
	"right_top":    "right fridge",
	"beer":         "community fridge",
}
