package sensor_ingest

import (
	"context"
	"runtime/debug"

	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Updater is the write side of the sensor state store.
type Updater interface {
	Update(sensor string, value Value) error
}

type Options struct {
	Logger    *log.Logger
	Metrics   *metrics.Metrics
	QueueSize int
}

type Option func(*Options)

func WithLogger(l *log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

func WithQueueSize(n int) Option {
	return func(o *Options) { o.QueueSize = n }
}

// Ingestor applies decoded sensor payloads to the store. Payloads are queued by
// transport callbacks and applied one at a time by Run, so updates are never
// delivered concurrently.
type Ingestor struct {
	store   Updater
	decoder Decoder
	sensors []string
	logger  *log.Logger
	metrics *metrics.Metrics
	queue   chan []byte
}

func NewIngestor(store Updater, decoder Decoder, sensors []string, opts ...Option) *Ingestor {
	conf := Options{QueueSize: 256}
	for _, fn := range opts {
		if fn != nil {
			fn(&conf)
		}
	}
	if conf.Logger == nil {
		conf.Logger = log.Nop()
	}
	if conf.QueueSize <= 0 {
		conf.QueueSize = 1
	}

	return &Ingestor{
		store:   store,
		decoder: decoder,
		sensors: append([]string(nil), sensors...),
		logger:  conf.Logger,
		metrics: conf.Metrics,
		queue:   make(chan []byte, conf.QueueSize),
	}
}

// Enqueue hands payload to the worker. It never blocks: when the queue is full the
// payload is dropped and false is returned.
func (in *Ingestor) Enqueue(payload []byte) bool {
	select {
	case in.queue <- payload:
		return true
	default:
		in.logger.Warn("Ingest queue full, dropping sensor payload", zap.Int("bytes", len(payload)))
		if in.metrics != nil {
			in.metrics.IngestDropped.Inc()
		}
		return false
	}
}

// Run applies queued payloads until ctx is done.
func (in *Ingestor) Run(ctx context.Context) error {
	in.logger.Info("Starting sensor ingest worker",
		zap.Strings("sensors", in.sensors),
		zap.String("format", in.decoder.Format()),
	)
	for {
		select {
		case <-ctx.Done():
			in.logger.Info("Shutting down sensor ingest worker")
			return nil
		case payload := <-in.queue:
			if err := in.Handle(ctx, payload); err != nil {
				in.logger.Warn("Discarding sensor payload", zap.Error(err))
			}
		}
	}
}

// Handle decodes payload and updates every monitored sensor it carries. A missing
// sensor is skipped. A failure applying one sensor is logged and does not stop
// the others; only a payload that cannot be decoded is returned as an error.
func (in *Ingestor) Handle(_ context.Context, payload []byte) error {
	readings, err := in.decoder.Decode(payload)
	if err != nil {
		in.reject("decode")
		return err
	}

	for _, sensor := range in.sensors {
		raw, ok := readings[sensor]
		if !ok {
			in.logger.Debug("Sensor missing from payload", zap.String("sensor", sensor))
			continue
		}
		value, err := Normalize(raw)
		if err != nil {
			in.reject("value")
			in.logger.Warn("Ignoring sensor reading",
				zap.String("sensor", sensor),
				zap.Error(err),
			)
			continue
		}
		if err := in.apply(sensor, value); err != nil {
			in.reject("callback")
			in.logger.Error("Failed to apply sensor reading",
				zap.String("sensor", sensor),
				zap.Any("value", value),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (in *Ingestor) apply(sensor string, value Value) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic while updating sensor: %v\n%s", p, debug.Stack())
		}
	}()
	return in.store.Update(sensor, value)
}

func (in *Ingestor) reject(reason string) {
	if in.metrics != nil {
		in.metrics.IngestErrors.WithLabelValues(reason).Inc()
	}
}
