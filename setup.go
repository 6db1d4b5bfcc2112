package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/okieraised/sensor-watchdog/internal/agent/sensor_ingest"
	"github.com/okieraised/sensor-watchdog/internal/config"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/local_cache"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/metrics"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/mqtt_client"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/nats_client"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/s3_client"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/tracer_client"
	"github.com/okieraised/sensor-watchdog/internal/notifier"
	"github.com/okieraised/sensor-watchdog/internal/server/grpc_server"
	"github.com/okieraised/sensor-watchdog/internal/signaling"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// transports tracks which inbound transports are enabled and drives gRPC health from them.
type transports struct {
	mu      sync.Mutex
	enabled []string
	health  *grpc_server.Health
}

func (t *transports) enable(name string) {
	t.mu.Lock()
	t.enabled = append(t.enabled, name)
	t.mu.Unlock()
}

// Status reports every enabled transport by name.
func (t *transports) Status() map[string]bool {
	t.mu.Lock()
	enabled := append([]string(nil), t.enabled...)
	t.mu.Unlock()

	out := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		switch name {
		case "mqtt":
			out[name] = mqtt_client.IsConnected()
		case "nats":
			out[name] = nats_client.IsConnected()
		}
	}
	return out
}

// refresh reports SERVING only while at least one transport is enabled and all are connected.
func (t *transports) refresh() {
	status := t.Status()
	serving := len(status) > 0
	for _, up := range status {
		serving = serving && up
	}
	t.health.SetServing(serving)
}

type clients struct {
	transports *transports
	closers    []func(ctx context.Context) error
}

func (c *clients) Close(ctx context.Context) error {
	var err error
	for i := len(c.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.closers[i](ctx))
	}
	return err
}

// setupClients connects every enabled external service.
func setupClients(ctx context.Context, health *grpc_server.Health) (*clients, error) {
	c := &clients{transports: &transports{health: health}}

	if viper.GetBool(config.AgentEnableS3) {
		log.Default().Info("Started initializing client connection to external S3 storage")
		err := s3_client.NewS3Client(
			ctx,
			s3_client.WithRegion(viper.GetString(config.S3Region)),
			s3_client.WithEndpoint(viper.GetString(config.S3Endpoint), viper.GetBool(config.S3UsePathStyle)),
			s3_client.WithStaticCredentials(viper.GetString(config.S3AccessKey), viper.GetString(config.S3SecretKey), ""),
			s3_client.WithRetry(5, 30*time.Second),
			s3_client.WithHTTPClient(
				&http.Client{
					Transport: &http.Transport{
						TLSClientConfig: &tls.Config{
							InsecureSkipVerify: viper.GetBool(config.S3TLSInsecureSkipVerify), // #nosec G402
						},
					},
				},
			),
		)
		if err != nil {
			return c, errors.Wrap(err, "failed to initialize client connection to external S3 storage")
		}
		log.Default().Info("Finished initializing client connection to external S3 storage")
	}

	if viper.GetBool(config.AgentEnableMQTT) {
		endpoint := config.MQTTEndpoint()
		log.Default().Info("Started initializing client connection to MQTT broker", zap.String("endpoint", endpoint))
		err := mqtt_client.NewMQTTClient(
			endpoint,
			viper.GetString(config.MqttClientId),
			mqtt_client.WithConnectionLostHandler(func(_ mqtt.Client, err error) {
				log.Default().Warn("Lost connection to MQTT broker", zap.Error(err))
			}),
		)
		if err != nil {
			return c, errors.Wrap(err, "failed to initialize client connection to MQTT broker")
		}
		c.transports.enable("mqtt")
		mqtt_client.AddConnectionListener(func(bool) { c.transports.refresh() })
		c.closers = append(c.closers, func(context.Context) error {
			mqtt_client.Disconnect(250 * time.Millisecond)
			return nil
		})
		log.Default().Info("Finished initializing client connection to MQTT broker")
	}

	if viper.GetBool(config.AgentEnableNATS) {
		log.Default().Info("Started initializing client connection to NATS")
		err := nats_client.NewNATSClient(
			ctx,
			viper.GetString(config.NatsURL),
			nats_client.WithName(viper.GetString(config.NatsClientName)),
			nats_client.WithConnectionHandler(func(bool) { c.transports.refresh() }),
		)
		if err != nil {
			return c, errors.Wrap(err, "failed to initialize client connection to NATS")
		}
		c.transports.enable("nats")
		c.closers = append(c.closers, func(context.Context) error { return nats_client.Close() })
		log.Default().Info("Finished initializing client connection to NATS")
	}
	c.transports.refresh()

	if viper.GetBool(config.AgentEnableTracing) {
		log.Default().Info("Started initializing OTEL tracer")
		shutdown, err := tracer_client.NewTracerClient(
			tracer_client.WithEndpoint(viper.GetString(config.TracingEndpoint)),
			tracer_client.WithInsecure(viper.GetBool(config.TracingInsecure)),
			tracer_client.WithServiceName(viper.GetString(config.TracingServiceName)),
			tracer_client.WithNamespace(viper.GetString(config.TracingNamespace)),
		)
		if err != nil {
			return c, errors.Wrap(err, "failed to initialize OTEL tracer")
		}
		c.closers = append(c.closers, shutdown)
		log.Default().Info("Finished initializing OTEL tracer")
	}

	log.Default().Info("Started initializing local cache")
	if err := local_cache.NewLocalCache(); err != nil {
		return c, errors.Wrap(err, "failed to initialize local cache")
	}
	c.closers = append(c.closers, func(context.Context) error {
		local_cache.Cache().Close()
		return nil
	})
	log.Default().Info("Finished initializing local cache")

	return c, nil
}

// buildNotifier assembles the enabled alert sinks, each behind the dedup window.
func buildNotifier(settings config.MonitorSettings, hub *signaling.WebsocketHub, m *metrics.Metrics) notifier.Notifier {
	var sinks []notifier.Notifier
	publisher := mqtt_client.Publisher{QoS: byte(viper.GetInt(config.MqttQoS))}

	if viper.GetBool(config.AgentEnableMQTT) {
		if viper.GetBool(config.NotifierEnableTelegram) {
			if settings.TelegramChatID == 0 {
				log.Default().Warn("Telegram notifications enabled without a chat id, skipping")
			} else {
				sinks = append(sinks, notifier.NewTelegram(publisher, viper.GetString(config.MqttChatTopic), settings.TelegramChatID))
			}
		}
		if viper.GetBool(config.NotifierEnableSpeaker) {
			sinks = append(sinks, notifier.NewSpeaker(publisher, viper.GetString(config.MqttSpeakTopic)))
		}
	}
	if viper.GetBool(config.NotifierEnableBroadcast) {
		sinks = append(sinks, notifier.NewBroadcast(hub))
	}
	if viper.GetBool(config.AgentEnableS3) && viper.GetBool(config.NotifierEnableArchive) {
		bucket := viper.GetString(config.S3Bucket)
		if bucket == "" {
			log.Default().Warn("Alert archive enabled without a bucket, skipping")
		} else {
			sinks = append(sinks, notifier.NewArchive(s3_client.Client(), bucket, viper.GetString(config.S3Prefix)))
		}
	}

	for i, sink := range sinks {
		sinks[i] = notifier.NewDedup(sink, local_cache.Cache(), settings.DedupWindow)
	}

	names := make([]string, 0, len(sinks))
	for _, sink := range sinks {
		names = append(names, sink.Name())
	}
	log.Default().Info(fmt.Sprintf("Alert notifications go to %d sinks", len(sinks)), zap.Strings("sinks", names))

	return notifier.NewMulti(log.Default().Named("notifier"), m, sinks...)
}

// buildSources returns the inbound sensor transports that were connected.
func buildSources(c *clients) []sensor_ingest.Source {
	var sources []sensor_ingest.Source
	lg := log.Default().Named("sensor_source")
	for name := range c.transports.Status() {
		switch name {
		case "mqtt":
			sources = append(sources, sensor_ingest.NewMQTTSource(
				viper.GetString(config.MqttSensorTopic),
				byte(viper.GetInt(config.MqttQoS)),
				nil,
				lg,
			))
		case "nats":
			sources = append(sources, sensor_ingest.NewNATSSource(
				viper.GetString(config.NatsSensorSubject),
				nats_client.Client(),
				lg,
			))
		}
	}
	return sources
}
