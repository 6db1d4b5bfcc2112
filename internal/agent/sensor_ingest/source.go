package sensor_ingest

import (
	"context"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/mqtt_client"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Source feeds raw payloads from a transport to sink until ctx is done.
type Source interface {
	Run(ctx context.Context, sink func(payload []byte) bool) error
	Name() string
}

// MQTTSubscriber is the subscription surface of the mqtt client package.
type MQTTSubscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

type mqttPackageSubscriber struct{}

func (mqttPackageSubscriber) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	return mqtt_client.Subscribe(topic, qos, handler)
}

func (mqttPackageSubscriber) Unsubscribe(topic string) error {
	return mqtt_client.Unsubscribe(topic)
}

type MQTTSource struct {
	topic  string
	qos    byte
	sub    MQTTSubscriber
	logger *log.Logger
}

// NewMQTTSource subscribes through sub, or through the shared mqtt client when sub is nil.
func NewMQTTSource(topic string, qos byte, sub MQTTSubscriber, logger *log.Logger) *MQTTSource {
	if sub == nil {
		sub = mqttPackageSubscriber{}
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &MQTTSource{topic: topic, qos: qos, sub: sub, logger: logger}
}

func (s *MQTTSource) Name() string { return "mqtt:" + s.topic }

func (s *MQTTSource) Run(ctx context.Context, sink func([]byte) bool) error {
	err := s.sub.Subscribe(s.topic, s.qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.logger.Debug("Received sensor payload",
			zap.String("topic", msg.Topic()),
			zap.Int("bytes", len(msg.Payload())),
		)
		// paho may reuse the buffer after the handler returns
		payload := append([]byte(nil), msg.Payload()...)
		sink(payload)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to subscribe to %s", s.topic)
	}
	s.logger.Info("Subscribed to sensor topic", zap.String("topic", s.topic))

	<-ctx.Done()
	if err := s.sub.Unsubscribe(s.topic); err != nil {
		s.logger.Warn("Failed to unsubscribe from sensor topic", zap.String("topic", s.topic), zap.Error(err))
	}
	return nil
}

// NATSSubscriber is satisfied by *nats.Conn.
type NATSSubscriber interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
}

type NATSSource struct {
	subject string
	conn    NATSSubscriber
	logger  *log.Logger
}

func NewNATSSource(subject string, conn NATSSubscriber, logger *log.Logger) *NATSSource {
	if logger == nil {
		logger = log.Nop()
	}
	return &NATSSource{subject: subject, conn: conn, logger: logger}
}

func (s *NATSSource) Name() string { return "nats:" + s.subject }

func (s *NATSSource) Run(ctx context.Context, sink func([]byte) bool) error {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		s.logger.Debug("Received sensor payload",
			zap.String("subject", msg.Subject),
			zap.Int("bytes", len(msg.Data)),
		)
		sink(msg.Data)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to subscribe to %s", s.subject)
	}
	s.logger.Info("Subscribed to sensor subject", zap.String("subject", s.subject))

	<-ctx.Done()
	if sub != nil && sub.IsValid() {
		if err := sub.Unsubscribe(); err != nil {
			s.logger.Warn("Failed to unsubscribe from sensor subject", zap.String("subject", s.subject), zap.Error(err))
		}
	}
	return nil
}
