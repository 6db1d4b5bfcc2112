package alert_supervisor

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Timer is a handle to a pending deferred check.
type Timer interface {
	// Stop cancels the check. It does not wait for a firing already in progress.
	Stop() bool
}

// Scheduler runs fn once after d elapses unless the returned Timer is stopped first.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// FailureHandler receives errors and recovered panics raised while a deferred
// check runs on the scheduler's goroutine.
type FailureHandler func(err error)

// RealScheduler schedules with time.AfterFunc. Each firing runs on its own goroutine
// and recovers panics so one misbehaving rule cannot take the process down.
type RealScheduler struct {
	OnFailure FailureHandler
}

func NewRealScheduler(onFailure FailureHandler) *RealScheduler {
	return &RealScheduler{OnFailure: onFailure}
}

func (s *RealScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() {
		defer func() {
			if p := recover(); p != nil {
				if s.OnFailure != nil {
					s.OnFailure(fmt.Errorf("deferred check panicked: %v\n%s", p, debug.Stack()))
				}
			}
		}()
		fn()
	})
}
