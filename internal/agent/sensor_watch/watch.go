package sensor_watch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okieraised/sensor-watchdog/internal/agent/alert_supervisor"
	"github.com/okieraised/sensor-watchdog/internal/agent/sensor_ingest"
	"github.com/okieraised/sensor-watchdog/internal/agent/state_store"
	"github.com/okieraised/sensor-watchdog/internal/config"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/log"
	"github.com/okieraised/sensor-watchdog/internal/infrastructure/metrics"
	"github.com/okieraised/sensor-watchdog/internal/notifier"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrNoRule = errors.New("no alert rule for sensor")

type (
	Store      = state_store.Store[string, sensor_ingest.Value]
	Supervisor = alert_supervisor.Supervisor[string, sensor_ingest.Value]
)

type Options struct {
	Logger        *log.Logger
	Metrics       *metrics.Metrics
	Scheduler     alert_supervisor.Scheduler
	Clock         func() time.Time
	NotifyTimeout time.Duration
	QueueSize     int
}

type Option func(*Options)

func WithLogger(l *log.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Options) { o.Metrics = m }
}

func WithScheduler(s alert_supervisor.Scheduler) Option {
	return func(o *Options) { o.Scheduler = s }
}

func WithClock(clock func() time.Time) Option {
	return func(o *Options) { o.Clock = clock }
}

// WithNotifyTimeout bounds each notification delivery.
func WithNotifyTimeout(d time.Duration) Option {
	return func(o *Options) { o.NotifyTimeout = d }
}

// WithQueueSize sets how many alert events may wait for delivery before rule
// callbacks start to block.
func WithQueueSize(n int) Option {
	return func(o *Options) { o.QueueSize = n }
}

// Watch owns the sensor state store and one alert rule per monitored sensor.
// Alert events are delivered in order by a single background worker, so slow
// sinks never hold a rule lock or the caller of Update.
type Watch struct {
	settings      config.MonitorSettings
	armed         sensor_ingest.Value
	store         *Store
	supervisor    *Supervisor
	notifier      notifier.Notifier
	logger        *log.Logger
	metrics       *metrics.Metrics
	clock         func() time.Time
	notifyTimeout time.Duration

	mu       sync.Mutex
	stopped  bool
	events   chan notifier.Event
	done     chan struct{}
	stopOnce sync.Once
}

func New(settings config.MonitorSettings, n notifier.Notifier, opts ...Option) (*Watch, error) {
	conf := Options{Clock: time.Now, NotifyTimeout: 15 * time.Second, QueueSize: 64}
	for _, fn := range opts {
		if fn != nil {
			fn(&conf)
		}
	}
	if conf.Logger == nil {
		conf.Logger = log.Nop()
	}
	if n == nil {
		n = notifier.Nop{}
	}
	if conf.QueueSize <= 0 {
		conf.QueueSize = 1
	}

	armed, err := sensor_ingest.NormalizeSetting(settings.ArmedValue)
	if err != nil {
		return nil, errors.Wrap(err, "invalid armed value")
	}

	w := &Watch{
		settings:      settings,
		armed:         armed,
		notifier:      n,
		logger:        conf.Logger,
		metrics:       conf.Metrics,
		clock:         conf.Clock,
		notifyTimeout: conf.NotifyTimeout,
		events:        make(chan notifier.Event, conf.QueueSize),
		done:          make(chan struct{}),
	}

	w.store = state_store.New[string, sensor_ingest.Value](state_store.WithClock(conf.Clock))

	supOpts := []alert_supervisor.Option{
		alert_supervisor.WithLogger(conf.Logger.Named("alert_supervisor").Logger),
		alert_supervisor.WithClock(conf.Clock),
		alert_supervisor.WithFailureHandler(func(err error) {
			w.logger.Error("Alert check failed", zap.Error(err))
		}),
	}
	if conf.Scheduler != nil {
		supOpts = append(supOpts, alert_supervisor.WithScheduler(conf.Scheduler))
	}
	w.supervisor = alert_supervisor.New[string, sensor_ingest.Value](w.store, supOpts...)

	for _, sensor := range settings.Sensors {
		sensor := sensor
		if w.metrics != nil {
			w.store.AddCallback(sensor, state_store.ChangeHandlerFunc[string, sensor_ingest.Value](
				func(state_store.Change[string, sensor_ingest.Value]) error {
					w.metrics.SensorTransitions.WithLabelValues(sensor).Inc()
					return nil
				}),
			)
		}
		w.supervisor.SetAlert(sensor, armed, settings.TimeoutFor(sensor), w.onTriggered, w.onResolved)
	}

	go w.deliver()
	return w, nil
}

// Update records a reading. It satisfies sensor_ingest.Updater.
func (w *Watch) Update(sensor string, value sensor_ingest.Value) error {
	if w.metrics != nil {
		w.metrics.SensorUpdates.WithLabelValues(sensor).Inc()
	}
	return w.store.Update(sensor, value)
}

func (w *Watch) Settings() config.MonitorSettings { return w.settings }

// Stop cancels every pending alert check, then waits for queued alert events
// to be delivered. It is safe to call more than once.
func (w *Watch) Stop() {
	w.stopOnce.Do(func() {
		w.supervisor.Stop()

		w.mu.Lock()
		w.stopped = true
		close(w.events)
		w.mu.Unlock()

		<-w.done
	})
}

func (w *Watch) onTriggered(sensor string, value sensor_ingest.Value) error {
	if w.metrics != nil {
		w.metrics.AlertsTriggered.WithLabelValues(sensor).Inc()
		w.metrics.AlertsActive.WithLabelValues(sensor).Set(1)
	}
	w.notify(notifier.KindTriggered, sensor, value)
	return nil
}

func (w *Watch) onResolved(sensor string, value sensor_ingest.Value) error {
	if w.metrics != nil {
		w.metrics.AlertsResolved.WithLabelValues(sensor).Inc()
		w.metrics.AlertsActive.WithLabelValues(sensor).Set(0)
	}
	w.notify(notifier.KindResolved, sensor, value)
	return nil
}

// notify queues the event for the delivery worker. It blocks only while the
// queue is full.
func (w *Watch) notify(kind notifier.Kind, sensor string, value sensor_ingest.Value) {
	evt := notifier.Event{
		Kind:    kind,
		Sensor:  sensor,
		Name:    w.settings.DisplayName(sensor),
		Value:   value,
		Timeout: w.settings.TimeoutFor(sensor),
		At:      w.clock(),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		w.logger.Warn("Alert event after stop, dropping",
			zap.String("sensor", sensor),
			zap.String("kind", string(kind)),
		)
		return
	}
	w.events <- evt
}

// deliver never fails the caller: delivery problems are logged by the notifier chain.
func (w *Watch) deliver() {
	defer close(w.done)
	for evt := range w.events {
		ctx, cancel := context.WithTimeout(context.Background(), w.notifyTimeout)
		if err := w.notifier.Notify(ctx, evt); err != nil {
			w.logger.Warn("Alert notification incomplete",
				zap.String("sensor", evt.Sensor),
				zap.String("kind", string(evt.Kind)),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// SensorView is the API representation of a sensor record.
type SensorView struct {
	Sensor    string    `json:"sensor"`
	Name      string    `json:"name"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
	Monitored bool      `json:"monitored"`
}

// AlertView is the API representation of an alert rule.
type AlertView struct {
	Sensor         string     `json:"sensor"`
	Name           string     `json:"name"`
	ArmedValue     any        `json:"armed_value"`
	TimeoutSeconds float64    `json:"timeout_seconds"`
	Phase          string     `json:"phase"`
	Pending        bool       `json:"pending"`
	Triggered      bool       `json:"triggered"`
	ArmedAt        *time.Time `json:"armed_at,omitempty"`
	TriggeredAt    *time.Time `json:"triggered_at,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
}

func (w *Watch) isMonitored(sensor string) bool {
	for _, s := range w.settings.Sensors {
		if s == sensor {
			return true
		}
	}
	return false
}

func (w *Watch) sensorView(sensor string, rec state_store.Record[sensor_ingest.Value]) SensorView {
	return SensorView{
		Sensor:    sensor,
		Name:      w.settings.DisplayName(sensor),
		Value:     rec.Value,
		UpdatedAt: rec.UpdatedAt,
		Monitored: w.isMonitored(sensor),
	}
}

// Sensors lists every sensor that has reported, ordered by id.
func (w *Watch) Sensors() []SensorView {
	snap := w.store.Snapshot()
	out := make([]SensorView, 0, len(snap))
	for sensor, rec := range snap {
		out = append(out, w.sensorView(sensor, rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sensor < out[j].Sensor })
	return out
}

// Sensor returns one sensor record or an error wrapping state_store.ErrNotFound.
func (w *Watch) Sensor(sensor string) (SensorView, error) {
	rec, err := w.store.Get(sensor)
	if err != nil {
		return SensorView{}, err
	}
	return w.sensorView(sensor, rec), nil
}

// Alerts lists every rule, ordered by sensor.
func (w *Watch) Alerts() []AlertView {
	statuses := w.supervisor.Statuses()
	out := make([]AlertView, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, w.alertView(st))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sensor < out[j].Sensor })
	return out
}

// Alert returns the rules installed for sensor or ErrNoRule.
func (w *Watch) Alert(sensor string) ([]AlertView, error) {
	statuses := w.supervisor.Status(sensor)
	if len(statuses) == 0 {
		return nil, errors.Wrapf(ErrNoRule, "sensor %s", sensor)
	}
	out := make([]AlertView, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, w.alertView(st))
	}
	return out, nil
}

func (w *Watch) alertView(st alert_supervisor.Status[string, sensor_ingest.Value]) AlertView {
	return AlertView{
		Sensor:         st.Sensor,
		Name:           w.settings.DisplayName(st.Sensor),
		ArmedValue:     st.ArmedValue,
		TimeoutSeconds: st.Timeout.Seconds(),
		Phase:          string(st.Phase),
		Pending:        st.Pending,
		Triggered:      st.Triggered,
		ArmedAt:        timePtr(st.ArmedAt),
		TriggeredAt:    timePtr(st.TriggeredAt),
		ResolvedAt:     timePtr(st.ResolvedAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
