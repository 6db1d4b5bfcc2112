package alert_supervisor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okieraised/sensor-watchdog/internal/agent/state_store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeScheduler records deferred checks and fires them on demand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(_ time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// fireLive runs every timer that has not been stopped.
func (s *fakeScheduler) fireLive() {
	s.mu.Lock()
	timers := append([]*fakeTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

type collector struct {
	mu        sync.Mutex
	triggered []int
	resolved  []int
}

func (c *collector) onTriggered(_ string, v int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggered = append(c.triggered, v)
	return nil
}

func (c *collector) onResolved(_ string, v int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolved = append(c.resolved, v)
	return nil
}

func (c *collector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.triggered), len(c.resolved)
}

func newFixture(t *testing.T) (*state_store.Store[string, int], *Supervisor[string, int], *fakeScheduler, *collector) {
	t.Helper()
	store := state_store.New[string, int]()
	sched := &fakeScheduler{}
	sup := New[string, int](store, WithScheduler(sched))
	col := &collector{}
	sup.SetAlert("sensor1", 1, 2*time.Second, col.onTriggered, col.onResolved)
	return store, sup, sched, col
}

func TestSetAlertInitiallyIdle(t *testing.T) {
	t.Parallel()

	_, sup, sched, col := newFixture(t)
	trig, res := col.counts()
	assert.Zero(t, trig)
	assert.Zero(t, res)
	assert.Zero(t, sched.count())

	st := sup.Status("sensor1")
	require.Len(t, st, 1)
	assert.Equal(t, PhaseIdle, st[0].Phase)
	assert.Equal(t, 2*time.Second, st[0].Timeout)
}

func TestDepartureBeforeTimeoutNeverTriggers(t *testing.T) {
	t.Parallel()

	store, sup, sched, col := newFixture(t)
	require.NoError(t, store.Update("sensor1", 1))
	assert.Equal(t, PhaseArmed, sup.Status("sensor1")[0].Phase)

	require.NoError(t, store.Update("sensor1", 0))
	sched.fireLive()

	trig, res := col.counts()
	assert.Zero(t, trig)
	assert.Zero(t, res)
	assert.Equal(t, PhaseIdle, sup.Status("sensor1")[0].Phase)
}

func TestTriggerThenResolve(t *testing.T) {
	t.Parallel()

	store, sup, sched, col := newFixture(t)
	require.NoError(t, store.Update("sensor1", 1))
	sched.fireLive()

	trig, res := col.counts()
	assert.Equal(t, 1, trig)
	assert.Zero(t, res)
	assert.Equal(t, []int{1}, col.triggered)
	assert.Equal(t, PhaseTriggered, sup.Status("sensor1")[0].Phase)

	require.NoError(t, store.Update("sensor1", 0))
	trig, res = col.counts()
	assert.Equal(t, 1, trig)
	assert.Equal(t, 1, res)
	assert.Equal(t, []int{0}, col.resolved)
	assert.Equal(t, PhaseIdle, sup.Status("sensor1")[0].Phase)

	require.NoError(t, store.Update("sensor1", 2))
	_, res = col.counts()
	assert.Equal(t, 1, res)
}

func TestRepeatedArmedValueIsNoOp(t *testing.T) {
	t.Parallel()

	store, _, sched, col := newFixture(t)
	require.NoError(t, store.Update("sensor1", 1))
	sched.fireLive()
	require.NoError(t, store.Update("sensor1", 1))
	assert.Equal(t, 1, sched.count())

	require.NoError(t, store.Update("sensor1", 0))
	trig, res := col.counts()
	assert.Equal(t, 1, trig)
	assert.Equal(t, 1, res)
}

func TestFlappingWhileTriggeredResolvesOnce(t *testing.T) {
	t.Parallel()

	store, sup, sched, col := newFixture(t)
	require.NoError(t, store.Update("sensor1", 1))
	sched.fireLive()

	// leave and come back: resolves, then re-arms
	require.NoError(t, store.Update("sensor1", 0))
	require.NoError(t, store.Update("sensor1", 1))
	trig, res := col.counts()
	assert.Equal(t, 1, trig)
	assert.Equal(t, 1, res)
	assert.Equal(t, PhaseArmed, sup.Status("sensor1")[0].Phase)

	sched.fireLive()
	trig, _ = col.counts()
	assert.Equal(t, 2, trig)

	require.NoError(t, store.Update("sensor1", 0))
	_, res = col.counts()
	assert.Equal(t, 2, res)
}

func TestReArmWhileTriggeredDoesNotRetrigger(t *testing.T) {
	t.Parallel()

	store := state_store.New[string, int]()
	sched := &fakeScheduler{}
	sup := New[string, int](store, WithScheduler(sched))
	col := &collector{}
	sup.SetAlert("sensor1", 1, time.Second, col.onTriggered, col.onResolved)

	require.NoError(t, store.Update("sensor1", 1))
	sched.fireLive()

	r := sup.rules["sensor1"][0]
	r.mu.Lock()
	r.armLocked()
	r.mu.Unlock()
	assert.Equal(t, PhaseTriggered, sup.Status("sensor1")[0].Phase)
	assert.True(t, sup.Status("sensor1")[0].Pending)

	sched.fireLive()
	trig, res := col.counts()
	assert.Equal(t, 1, trig)
	assert.Zero(t, res)

	require.NoError(t, store.Update("sensor1", 0))
	trig, res = col.counts()
	assert.Equal(t, 1, trig)
	assert.Equal(t, 1, res)
}

func TestStaleTimerDoesNotTrigger(t *testing.T) {
	t.Parallel()

	store, _, sched, col := newFixture(t)
	require.NoError(t, store.Update("sensor1", 1))

	sched.mu.Lock()
	stale := sched.timers[0]
	sched.mu.Unlock()

	// cancellation loses the race: the firing still runs after the departure
	require.NoError(t, store.Update("sensor1", 0))
	stale.fn()

	trig, res := col.counts()
	assert.Zero(t, trig)
	assert.Zero(t, res)
}

// overrideReader serves a fixed value for one sensor without notifying handlers.
type overrideReader struct {
	*state_store.Store[string, int]

	mu       sync.Mutex
	override *int
}

func (r *overrideReader) set(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.override = &v
}

func (r *overrideReader) Get(sensor string) (state_store.Record[int], error) {
	r.mu.Lock()
	override := r.override
	r.mu.Unlock()
	if override != nil {
		return state_store.Record[int]{Value: *override, UpdatedAt: time.Now()}, nil
	}
	return r.Store.Get(sensor)
}

func TestFiringRereadsCurrentValue(t *testing.T) {
	t.Parallel()

	reader := &overrideReader{Store: state_store.New[string, int]()}
	sched := &fakeScheduler{}
	sup := New[string, int](reader, WithScheduler(sched))
	col := &collector{}
	sup.SetAlert("sensor1", 1, time.Second, col.onTriggered, col.onResolved)

	require.NoError(t, reader.Update("sensor1", 1))
	reader.set(0)
	sched.fireLive()

	trig, _ := col.counts()
	assert.Zero(t, trig)
	assert.Equal(t, PhaseIdle, sup.Status("sensor1")[0].Phase)
}

func TestDuplicateRulesNotifyTwice(t *testing.T) {
	t.Parallel()

	store := state_store.New[string, int]()
	sched := &fakeScheduler{}
	sup := New[string, int](store, WithScheduler(sched))
	col := &collector{}
	sup.SetAlert("sensor1", 1, time.Second, col.onTriggered, col.onResolved)
	sup.SetAlert("sensor1", 1, time.Second, col.onTriggered, col.onResolved)

	require.NoError(t, store.Update("sensor1", 1))
	sched.fireLive()
	require.NoError(t, store.Update("sensor1", 0))

	trig, res := col.counts()
	assert.Equal(t, 2, trig)
	assert.Equal(t, 2, res)
	assert.Len(t, sup.Status("sensor1"), 2)
	assert.Len(t, sup.Statuses(), 2)
}

func TestNilCallbacksAreAllowed(t *testing.T) {
	t.Parallel()

	store := state_store.New[string, int]()
	sched := &fakeScheduler{}
	sup := New[string, int](store, WithScheduler(sched))
	sup.SetAlert("sensor1", 1, time.Second, nil, nil)

	require.NoError(t, store.Update("sensor1", 1))
	sched.fireLive()
	assert.Equal(t, PhaseTriggered, sup.Status("sensor1")[0].Phase)
	require.NoError(t, store.Update("sensor1", 0))
	assert.Equal(t, PhaseIdle, sup.Status("sensor1")[0].Phase)
}

func TestResolvedCallbackErrorPropagatesToUpdate(t *testing.T) {
	t.Parallel()

	store := state_store.New[string, int]()
	sched := &fakeScheduler{}
	sup := New[string, int](store, WithScheduler(sched))
	boom := errors.New("sink down")
	sup.SetAlert("sensor1", 1, time.Second, nil, func(string, int) error { return boom })

	require.NoError(t, store.Update("sensor1", 1))
	sched.fireLive()

	err := store.Update("sensor1", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, state_store.ErrCallbackFailure)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, PhaseIdle, sup.Status("sensor1")[0].Phase)
}

func TestTriggeredCallbackErrorGoesToFailureHandler(t *testing.T) {
	t.Parallel()

	store := state_store.New[string, int]()
	sched := &fakeScheduler{}
	var failures []error
	sup := New[string, int](store,
		WithScheduler(sched),
		WithFailureHandler(func(err error) { failures = append(failures, err) }),
	)
	boom := errors.New("sink down")
	sup.SetAlert("sensor1", 1, time.Second, func(string, int) error { return boom }, nil)

	require.NoError(t, store.Update("sensor1", 1))
	sched.fireLive()

	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0], boom)
	assert.Equal(t, PhaseTriggered, sup.Status("sensor1")[0].Phase)
}

func TestStopCancelsPendingChecks(t *testing.T) {
	t.Parallel()

	store, sup, sched, col := newFixture(t)
	require.NoError(t, store.Update("sensor1", 1))
	sup.Stop()
	sched.fireLive()

	trig, _ := col.counts()
	assert.Zero(t, trig)
}

func TestRealSchedulerScenario(t *testing.T) {
	t.Parallel()

	store := state_store.New[string, int]()
	sup := New[string, int](store)
	col := &collector{}
	timeout := 100 * time.Millisecond
	sup.SetAlert("sensor1", 1, timeout, col.onTriggered, col.onResolved)

	require.NoError(t, store.Update("sensor1", 1))
	trig, res := col.counts()
	assert.Zero(t, trig)
	assert.Zero(t, res)

	require.Eventually(t, func() bool {
		trig, _ := col.counts()
		return trig == 1
	}, 2*time.Second, 10*time.Millisecond)
	_, res = col.counts()
	assert.Zero(t, res)

	require.NoError(t, store.Update("sensor1", 0))
	trig, res = col.counts()
	assert.Equal(t, 1, trig)
	assert.Equal(t, 1, res)
}

func TestRealSchedulerShortOpenNeverTriggers(t *testing.T) {
	t.Parallel()

	store := state_store.New[string, int]()
	sup := New[string, int](store)
	col := &collector{}
	sup.SetAlert("sensor1", 1, 200*time.Millisecond, col.onTriggered, col.onResolved)

	require.NoError(t, store.Update("sensor1", 1))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, store.Update("sensor1", 0))
	time.Sleep(400 * time.Millisecond)

	trig, res := col.counts()
	assert.Zero(t, trig)
	assert.Zero(t, res)
}

func TestRealSchedulerRecoversPanics(t *testing.T) {
	t.Parallel()

	failures := make(chan error, 1)
	sched := NewRealScheduler(func(err error) { failures <- err })
	sched.AfterFunc(time.Millisecond, func() { panic("rule exploded") })

	select {
	case err := <-failures:
		assert.Contains(t, err.Error(), "rule exploded")
	case <-time.After(2 * time.Second):
		t.Fatal("panic was not reported")
	}
}
