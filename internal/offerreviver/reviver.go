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

// Package offerreviver is the OfferReviver collaborator spec.md §4.1
// references: a launcher whose app carries constraints calls
// reviveOffers() whenever one of its tasks terminates, because a
// constraint that was unsatisfiable a moment ago can suddenly be
// satisfiable elsewhere. The debounce here is modeled directly on the
// reference repo's Batcher[T] (pkg's vendored
// sigs.k8s.io/karpenter/pkg/controllers/provisioning/batcher.go): repeated
// Trigger calls within an idle window collapse into one batching round,
// and repeated reviveOffers calls here collapse into one upstream revive.
package offerreviver

import (
	"context"
	"time"

	"github.com/launchd/launchd/internal/clock"
)

// Reviver asks the resource master to re-send offers sooner than it
// otherwise would, so launchers whose constraints may now be satisfiable
// get another chance without waiting out a long decline.
type Reviver interface {
	ReviveOffers()
}

// Debounced collapses bursts of ReviveOffers calls arriving within window
// into a single call to the underlying driver hook, upstream to the
// resource master.
type Debounced struct {
	clk    clock.Clock
	window time.Duration
	upstream func()

	trigger chan struct{}
}

// NewDebounced starts the debounce loop in the background; it stops when
// ctx is done.
func NewDebounced(ctx context.Context, clk clock.Clock, window time.Duration, upstream func()) *Debounced {
	d := &Debounced{
		clk:      clk,
		window:   window,
		upstream: upstream,
		trigger:  make(chan struct{}, 1),
	}
	go d.loop(ctx)
	return d
}

func (d *Debounced) ReviveOffers() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

func (d *Debounced) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.trigger:
			timer := d.clk.NewTimer(d.window)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C():
			}
			d.drainPending()
			d.upstream()
		}
	}
}

func (d *Debounced) drainPending() {
	select {
	case <-d.trigger:
	default:
	}
}
