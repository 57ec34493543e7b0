package state

import (
	"fmt"
	"math/rand/v2"
	"time"
)

type Pair[Ty1, Ty2 any] struct {
	V1 Ty1
	V2 Ty2
}

// Dispatch Dispatches the function to run on the main loop without waiting for it to complete
func (e *Env) Dispatch(fun func(*State) error) {
	defer func() {
		if r := recover(); r != nil {
			e.Cancel(fmt.Errorf("panic: %v", r))
		}
	}()
	e.DispatchChannel <- fun
}

// DispatchWait Dispatches the function to run on the main loop and wait for it to complete
func (e *Env) DispatchWait(fun func(*State) (any, error)) (any, error) {
	ret := make(chan Pair[any, error])
	e.Dispatch(func(s *State) error {
		res, err := fun(s)
		ret <- Pair[any, error]{res, err}
		return err
	})
	select {
	case res := <-ret:
		return res.V1, res.V2
	case <-e.Context.Done():
		return nil, e.Context.Err()
	}
}

func (e *Env) ScheduleTask(fun func(*State) error, delay time.Duration) {
	time.AfterFunc(delay, func() {
		e.Dispatch(fun)
	})
}

func (e *Env) repeatedTask(fun func(*State) error, delay time.Duration) {
	for e.Context.Err() == nil {
		e.Dispatch(fun)
		time.Sleep(delay)
	}
}

func (e *Env) RepeatTask(fun func(*State) error, delay time.Duration) {
	go e.repeatedTask(fun, delay)
}

// UpdateScheduler decides when broadcasts may fire. The periodic deadline is
// re-armed with jitter every time it is consumed; triggered broadcasts are
// gated by a minimum spacing strictly below the periodic interval.
type UpdateScheduler struct {
	interval     time.Duration
	minTriggered time.Duration

	nextPeriodic  time.Time
	lastTriggered time.Time
}

// NewUpdateScheduler arms the first periodic deadline at now, so a freshly
// started router sends its full table immediately.
func NewUpdateScheduler(interval time.Duration, now time.Time) *UpdateScheduler {
	return &UpdateScheduler{
		interval:     interval,
		minTriggered: interval / time.Duration(TriggeredSpacingDivisor),
		nextPeriodic: now,
	}
}

func (u *UpdateScheduler) jitteredInterval() time.Duration {
	j := (rand.Float64()*2 - 1) * PeriodicJitterFraction
	return time.Duration(float64(u.interval) * (1 + j))
}

// PeriodicDue reports whether a full broadcast is due, consuming the deadline
// and re-arming it when so.
func (u *UpdateScheduler) PeriodicDue(now time.Time) bool {
	if now.Before(u.nextPeriodic) {
		return false
	}
	u.nextPeriodic = now.Add(u.jitteredInterval())
	return true
}

// TriggeredAllowed reports whether enough time has passed since the last
// triggered broadcast.
func (u *UpdateScheduler) TriggeredAllowed(now time.Time) bool {
	return now.Sub(u.lastTriggered) >= u.minTriggered
}

func (u *UpdateScheduler) MarkTriggered(now time.Time) {
	u.lastTriggered = now
}
