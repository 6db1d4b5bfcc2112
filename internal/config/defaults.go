package config

import (
	"github.com/okieraised/sensor-watchdog/internal/constants"
	"github.com/spf13/viper"
)

// SetDefaults registers the fallback value of every key that has one.
func SetDefaults() {
	viper.SetDefault(AgentLogLevel, "info")
	viper.SetDefault(AgentHTTPMode, "release")
	viper.SetDefault(AgentEnableMQTT, true)

	viper.SetDefault(MqttBrokerPort, constants.MqttDefaultBrokerPort)
	viper.SetDefault(MqttClientId, constants.MqttDefaultClientID)
	viper.SetDefault(MqttSensorTopic, constants.MqttDefaultSensorTopic)
	viper.SetDefault(MqttChatTopic, constants.MqttDefaultChatTopic)
	viper.SetDefault(MqttSpeakTopic, constants.MqttDefaultSpeakTopic)

	viper.SetDefault(NatsClientName, constants.NatsDefaultClientName)
	viper.SetDefault(NatsSensorSubject, constants.NatsDefaultSensorSubject)

	viper.SetDefault(S3Prefix, constants.S3DefaultPrefix)

	viper.SetDefault(TracingServiceName, constants.TracingDefaultServiceName)

	viper.SetDefault(MonitorSensors, constants.MonitorDefaultSensor)
	viper.SetDefault(MonitorDefaultTimeout, constants.MonitorDefaultTimeout.String())
	viper.SetDefault(MonitorArmedValue, constants.MonitorDefaultArmedValue)
	viper.SetDefault(MonitorPayloadFormat, constants.MonitorDefaultPayloadFormat)
	viper.SetDefault(MonitorQueueSize, constants.MonitorDefaultQueueSize)

	viper.SetDefault(NotifierEnableTelegram, true)
	viper.SetDefault(NotifierEnableSpeaker, true)
	viper.SetDefault(NotifierEnableBroadcast, true)
}
