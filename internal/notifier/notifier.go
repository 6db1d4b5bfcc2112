package notifier

import (
	"context"
	"time"

	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/metrics"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Kind string

const (
	KindTriggered Kind = "triggered"
	KindResolved  Kind = "resolved"
)

// Event describes an alert raised or cleared for one sensor.
type Event struct {
	Kind    Kind          `json:"kind"`
	Sensor  string        `json:"sensor"`
	Name    string        `json:"name"`
	Value   any           `json:"value"`
	Timeout time.Duration `json:"timeout"`
	At      time.Time     `json:"at"`
}

// Notifier delivers alert events to one downstream channel.
type Notifier interface {
	Notify(ctx context.Context, evt Event) error
	Name() string
}

// Publisher sends a payload to a topic on the message bus.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
func (Nop) Name() string                        { return "nop" }

// Multi fans an event out to every notifier. A failing notifier does not stop
// the others; all failures are logged and returned together.
type Multi struct {
	notifiers []Notifier
	logger    *log.Logger
	metrics   *metrics.Metrics
}

func NewMulti(logger *log.Logger, m *metrics.Metrics, notifiers ...Notifier) *Multi {
	if logger == nil {
		logger = log.Nop()
	}
	return &Multi{notifiers: notifiers, logger: logger, metrics: m}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Notify(ctx context.Context, evt Event) error {
	var errs error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, evt); err != nil {
			m.logger.Error("Failed to deliver alert event",
				zap.String("sink", n.Name()),
				zap.String("sensor", evt.Sensor),
				zap.String("kind", string(evt.Kind)),
				zap.Error(err),
			)
			if m.metrics != nil {
				m.metrics.NotifyErrors.WithLabelValues(n.Name()).Inc()
			}
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Len reports how many notifiers receive events.
func (m *Multi) Len() int { return len(m.notifiers) }
