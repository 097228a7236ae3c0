/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package clock provides the monotonic time and one-shot delayed message
// delivery capability shared by every component in the launch pipeline.
package clock

import (
	"time"

	utilclock "k8s.io/utils/clock"
)

// Clock is the first-class time dependency injected into every component
// that checks a deadline or schedules a timer. It is satisfied by
// k8s.io/utils/clock.Clock so production code uses RealClock and tests use
// clock/testing.FakeClock.
type Clock = utilclock.Clock

// RealClock is the production implementation, a thin alias so callers don't
// need to import k8s.io/utils/clock directly.
func RealClock() Clock {
	return utilclock.RealClock{}
}

// Timestamp is an absolute point in time, as used throughout the spec for
// deadlines and backoff boundaries (matchingDeadline, savingDeadline,
// backOffUntil).
type Timestamp = time.Time

// CancelFunc stops a scheduled one-shot message. Calling it after the
// timer has already fired is a no-op.
type CancelFunc func()

// AfterFunc schedules fn to run once, after d has elapsed according to clk.
// It returns a CancelFunc that prevents fn from running if it hasn't fired
// yet. Implementations in this package never block the caller's goroutine:
// fn always runs on its own goroutine, the same way a launcher's self-sent
// timeout message is delivered asynchronously to its message loop.
func AfterFunc(clk Clock, d time.Duration, fn func()) CancelFunc {
	timer := clk.NewTimer(d)
	stop := make(chan struct{})
	go func() {
		select {
		case <-timer.C():
			fn()
		case <-stop:
			timer.Stop()
		}
	}()
	return func() {
		close(stop)
	}
}

// AtFunc schedules fn to run once clk.Now() reaches t. If t is already in
// the past, fn runs almost immediately (on the next tick), matching the
// recheck-backoff timer's behavior when a delayUpdate names a time at or
// before now.
func AtFunc(clk Clock, t Timestamp, fn func()) CancelFunc {
	d := t.Sub(clk.Now())
	if d < 0 {
		d = 0
	}
	return AfterFunc(clk, d, fn)
}
