package alert_supervisor

import (
	"sync"
	"time"

	"github.com/okieraised/sensor-watchdog/internal/agent/state_store"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Phase is the supervision state of a single rule.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseArmed     Phase = "armed"
	PhaseTriggered Phase = "triggered"
)

// Callback is invoked when an alert triggers or resolves.
type Callback[K comparable, V comparable] func(sensor K, value V) error

// Status is a point-in-time view of a rule.
type Status[K comparable, V comparable] struct {
	Sensor      K
	ArmedValue  V
	Timeout     time.Duration
	Phase       Phase
	Pending     bool
	Triggered   bool
	ArmedAt     time.Time
	TriggeredAt time.Time
	ResolvedAt  time.Time
}

type Options struct {
	Scheduler Scheduler
	Logger    *zap.Logger
	Clock     func() time.Time
	OnFailure FailureHandler
}

type Option func(*Options)

func WithScheduler(s Scheduler) Option {
	return func(o *Options) { o.Scheduler = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithClock(clock func() time.Time) Option {
	return func(o *Options) { o.Clock = clock }
}

// WithFailureHandler receives errors returned by onTriggered callbacks, which run
// on the scheduler rather than on the caller of Update.
func WithFailureHandler(fn FailureHandler) Option {
	return func(o *Options) { o.OnFailure = fn }
}

// Supervisor owns the alert rules registered against a state store.
type Supervisor[K comparable, V comparable] struct {
	store     state_store.Reader[K, V]
	scheduler Scheduler
	logger    *zap.Logger
	clock     func() time.Time
	onFailure FailureHandler

	mu    sync.RWMutex
	rules map[K][]*rule[K, V]
}

func New[K comparable, V comparable](store state_store.Reader[K, V], opts ...Option) *Supervisor[K, V] {
	conf := Options{}
	for _, fn := range opts {
		if fn != nil {
			fn(&conf)
		}
	}
	if conf.Logger == nil {
		conf.Logger = zap.NewNop()
	}
	if conf.Clock == nil {
		conf.Clock = time.Now
	}
	if conf.OnFailure == nil {
		logger := conf.Logger
		conf.OnFailure = func(err error) {
			logger.Error("Deferred alert check failed", zap.Error(err))
		}
	}
	if conf.Scheduler == nil {
		conf.Scheduler = NewRealScheduler(conf.OnFailure)
	}

	return &Supervisor[K, V]{
		store:     store,
		scheduler: conf.Scheduler,
		logger:    conf.Logger,
		clock:     conf.Clock,
		onFailure: conf.OnFailure,
		rules:     make(map[K][]*rule[K, V]),
	}
}

// SetAlert installs a rule that calls onTriggered once armed has been held by sensor
// for timeout, and onResolved the first time sensor leaves armed after triggering.
// Calling it twice for the same sensor installs two independent rules.
func (s *Supervisor[K, V]) SetAlert(sensor K, armed V, timeout time.Duration, onTriggered, onResolved Callback[K, V]) {
	r := &rule[K, V]{
		sup:         s,
		sensor:      sensor,
		armed:       armed,
		timeout:     timeout,
		onTriggered: onTriggered,
		onResolved:  onResolved,
	}

	s.mu.Lock()
	s.rules[sensor] = append(s.rules[sensor], r)
	s.mu.Unlock()

	s.logger.Info("Alert rule installed",
		zap.Any("sensor", sensor),
		zap.Any("armed_value", armed),
		zap.Duration("timeout", timeout),
	)
	s.store.AddCallback(sensor, state_store.ChangeHandlerFunc[K, V](r.onChange))
}

// Status returns the status of every rule installed for sensor.
func (s *Supervisor[K, V]) Status(sensor K) []Status[K, V] {
	s.mu.RLock()
	rules := s.rules[sensor]
	s.mu.RUnlock()

	out := make([]Status[K, V], 0, len(rules))
	for _, r := range rules {
		out = append(out, r.status())
	}
	return out
}

// Statuses returns the status of every installed rule.
func (s *Supervisor[K, V]) Statuses() []Status[K, V] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Status[K, V]
	for _, rules := range s.rules {
		for _, r := range rules {
			out = append(out, r.status())
		}
	}
	return out
}

// Stop cancels every pending deferred check.
func (s *Supervisor[K, V]) Stop() {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rules := range s.rules {
		for _, r := range rules {
			r.mu.Lock()
			r.cancelLocked()
			r.mu.Unlock()
		}
	}
}

type rule[K comparable, V comparable] struct {
	sup         *Supervisor[K, V]
	sensor      K
	armed       V
	timeout     time.Duration
	onTriggered Callback[K, V]
	onResolved  Callback[K, V]

	// mu serializes the change callback with deferred check firings.
	mu          sync.Mutex
	pending     Timer
	generation  uint64
	triggered   bool
	armedAt     time.Time
	triggeredAt time.Time
	resolvedAt  time.Time
}

func (r *rule[K, V]) onChange(change state_store.Change[K, V]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if change.Current == r.armed {
		r.armLocked()
		return nil
	}

	r.cancelLocked()
	if !r.triggered {
		return nil
	}

	r.triggered = false
	r.resolvedAt = r.sup.clock()
	r.sup.logger.Info("Alert resolved",
		zap.Any("sensor", r.sensor),
		zap.Any("value", change.Current),
	)
	if r.onResolved == nil {
		return nil
	}
	if err := r.onResolved(r.sensor, change.Current); err != nil {
		return errors.Wrap(err, "alert resolved callback")
	}
	return nil
}

func (r *rule[K, V]) armLocked() {
	r.cancelLocked()
	r.generation++
	gen := r.generation
	r.armedAt = r.sup.clock()
	r.pending = r.sup.scheduler.AfterFunc(r.timeout, func() {
		r.fire(gen)
	})
}

func (r *rule[K, V]) cancelLocked() {
	if r.pending == nil {
		return
	}
	r.pending.Stop()
	r.pending = nil
	r.armedAt = time.Time{}
}

func (r *rule[K, V]) fire(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation || r.pending == nil {
		// superseded by a later arm or cancelled after firing started
		return
	}
	r.pending = nil

	// the current stored value is authoritative, not the value seen at arm time
	rec, err := r.sup.store.Get(r.sensor)
	if err != nil || rec.Value != r.armed {
		return
	}
	if r.triggered {
		return
	}

	r.triggered = true
	r.triggeredAt = r.sup.clock()
	r.sup.logger.Info("Alert triggered",
		zap.Any("sensor", r.sensor),
		zap.Any("armed_value", r.armed),
		zap.Duration("timeout", r.timeout),
	)
	if r.onTriggered == nil {
		return
	}
	if err := r.onTriggered(r.sensor, r.armed); err != nil {
		r.sup.onFailure(errors.Wrapf(err, "alert triggered callback for sensor %v", r.sensor))
	}
}

func (r *rule[K, V]) status() Status[K, V] {
	r.mu.Lock()
	defer r.mu.Unlock()

	phase := PhaseIdle
	switch {
	case r.triggered:
		phase = PhaseTriggered
	case r.pending != nil:
		phase = PhaseArmed
	}

	return Status[K, V]{
		Sensor:      r.sensor,
		ArmedValue:  r.armed,
		Timeout:     r.timeout,
		Phase:       phase,
		Pending:     r.pending != nil,
		Triggered:   r.triggered,
		ArmedAt:     r.armedAt,
		TriggeredAt: r.triggeredAt,
		ResolvedAt:  r.resolvedAt,
	}
}
