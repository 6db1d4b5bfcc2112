package state_store

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Get for a sensor that has never been updated.
	ErrNotFound = errors.New("sensor state not found")
	// ErrCallbackFailure wraps an error returned by a change handler during Update.
	ErrCallbackFailure = errors.New("sensor change callback failed")
)

// CallbackError reports which change handler failed. It matches ErrCallbackFailure
// with errors.Is and unwraps to the handler's own error.
type CallbackError struct {
	Sensor any
	Index  int
	Err    error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%v: handler %d for sensor %v: %v", ErrCallbackFailure, e.Index, e.Sensor, e.Err)
}

func (e *CallbackError) Unwrap() error { return e.Err }

func (e *CallbackError) Cause() error { return e.Err }

func (e *CallbackError) Is(target error) bool { return target == ErrCallbackFailure }

// Record is the last known state of a sensor.
type Record[V comparable] struct {
	Value     V
	UpdatedAt time.Time
}

// Change describes a transition delivered to change handlers.
// HadPrevious is false on the very first update of a sensor.
type Change[K comparable, V comparable] struct {
	Sensor      K
	Previous    V
	HadPrevious bool
	Current     V
	At          time.Time
}

// ChangeHandler receives sensor transitions.
type ChangeHandler[K comparable, V comparable] interface {
	OnChange(change Change[K, V]) error
}

// ChangeHandlerFunc adapts a plain function to ChangeHandler.
type ChangeHandlerFunc[K comparable, V comparable] func(change Change[K, V]) error

func (f ChangeHandlerFunc[K, V]) OnChange(change Change[K, V]) error {
	return f(change)
}

// Reader is the read side of the store used by alert supervision.
type Reader[K comparable, V comparable] interface {
	Get(sensor K) (Record[V], error)
	AddCallback(sensor K, handler ChangeHandler[K, V])
}

type Options struct {
	Clock func() time.Time
}

type Option func(*Options)

// WithClock overrides the time source used for UpdatedAt.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		if clock != nil {
			o.Clock = clock
		}
	}
}

// Store keeps the latest value per sensor and notifies handlers on transitions.
type Store[K comparable, V comparable] struct {
	clock func() time.Time

	mu        sync.RWMutex
	records   map[K]Record[V]
	callbacks map[K][]ChangeHandler[K, V]
}

func New[K comparable, V comparable](opts ...Option) *Store[K, V] {
	conf := Options{Clock: time.Now}
	for _, fn := range opts {
		fn(&conf)
	}

	return &Store[K, V]{
		clock:     conf.Clock,
		records:   make(map[K]Record[V]),
		callbacks: make(map[K][]ChangeHandler[K, V]),
	}
}

// Update records value for sensor. Handlers registered for sensor run
// synchronously, in registration order, when the value differs from the previous
// one or when the sensor had no record yet. The record is written before any
// handler runs; the first handler error stops delivery and is returned.
func (s *Store[K, V]) Update(sensor K, value V) error {
	s.mu.Lock()
	prev, hadPrev := s.records[sensor]
	now := s.clock()
	if hadPrev && now.Before(prev.UpdatedAt) {
		now = prev.UpdatedAt
	}
	s.records[sensor] = Record[V]{Value: value, UpdatedAt: now}

	if hadPrev && prev.Value == value {
		s.mu.Unlock()
		return nil
	}

	// copied so handlers run without holding the lock
	handlers := append([]ChangeHandler[K, V](nil), s.callbacks[sensor]...)
	s.mu.Unlock()

	change := Change[K, V]{
		Sensor:      sensor,
		Previous:    prev.Value,
		HadPrevious: hadPrev,
		Current:     value,
		At:          now,
	}
	for idx, h := range handlers {
		if err := h.OnChange(change); err != nil {
			return &CallbackError{Sensor: sensor, Index: idx, Err: err}
		}
	}

	return nil
}

// Get returns the last recorded state of sensor.
func (s *Store[K, V]) Get(sensor K) (Record[V], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sensor]
	if !ok {
		return Record[V]{}, errors.Wrapf(ErrNotFound, "sensor %v", sensor)
	}
	return rec, nil
}

// AddCallback appends handler to the sensor's handler list.
func (s *Store[K, V]) AddCallback(sensor K, handler ChangeHandler[K, V]) {
	if handler == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callbacks[sensor] = append(s.callbacks[sensor], handler)
}

// Snapshot returns a copy of all records.
func (s *Store[K, V]) Snapshot() map[K]Record[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[K]Record[V], len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}
