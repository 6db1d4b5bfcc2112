package constants

import "time"

const (
	AgentDefaultHTTPPort       = 8080
	AgentDefaultGRPCPort       = 7070
	AgentDefaultMonitoringPort = 6060
)

const (
	DefaultHTTPRequestTimeout = 10
	GraceWaitPeriod           = 10 * time.Second
)

const (
	MqttDefaultWriteTimeout         = 10 * time.Second
	MqttDefaultKeepAlive            = 30 * time.Second
	MqttDefaultPingTimeout          = 5 * time.Second
	MqttDefaultMaxReconnectInterval = 30 * time.Second
	MqttDefaultConnectTimeout       = 10 * time.Second
	MqttDefaultConnectRetryInterval = 10 * time.Second
	MqttDefaultBrokerPort           = 1883
	MqttDefaultClientID             = "sensor-watchdog"
	MqttDefaultSensorTopic          = "devices/fridges"
	MqttDefaultChatTopic            = "chat/outgoing"
	MqttDefaultSpeakTopic           = "billy/speak"
)

const (
	NatsDefaultClientName    = "sensor-watchdog"
	NatsDefaultSensorSubject = "devices.fridges"
	NatsDefaultReconnectWait = 2 * time.Second
	NatsMaxConnectBackoff    = 30 * time.Second
)

const (
	MonitorDefaultSensor        = "left_top"
	MonitorDefaultTimeout       = 5 * time.Second
	MonitorDefaultArmedValue    = 1
	MonitorDefaultPayloadFormat = "json"
	MonitorDefaultQueueSize     = 256
)

const (
	S3DefaultPrefix = "alerts"
)

const (
	TracingDefaultServiceName = "sensor-watchdog"
)
