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

// Package offermatcher multiplexes one inbound offer across every
// currently-subscribed launcher within a bounded deadline (spec.md §4.2).
// Dispatch is sequential by design: spec.md is explicit that a single
// launcher's task factory must have seen the resources already consumed
// by earlier launchers in the same round, and "a simple sequential
// dispatch suffices and matches the source's observed behavior" — the
// same tradeoff the reference orchestrator's own batching primitives make
// in favor of predictable resource accounting over raw fan-out
// concurrency.
package offermatcher

import (
	"context"
	"sort"
	"sync"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/launchd/launchd/internal/clock"
	"github.com/launchd/launchd/internal/model"
)

// Manager is the Offer Matcher Manager.
type Manager struct {
	clk clock.Clock

	mu          sync.Mutex
	subscribers map[string]model.MatchOfferer
}

func New(clk clock.Clock) *Manager {
	return &Manager{clk: clk, subscribers: map[string]model.MatchOfferer{}}
}

// Subscribe registers appID's launcher as a candidate for future offer
// rounds. Idempotent.
func (m *Manager) Subscribe(appID string, l model.MatchOfferer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers[appID] = l
}

// Unsubscribe removes appID from future offer rounds. Idempotent.
func (m *Manager) Unsubscribe(appID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, appID)
}

type subscriberEntry struct {
	appID   string
	matcher model.MatchOfferer
}

// snapshot takes a consistent view of the subscriber set for one round,
// ordered by app id. Subscribe/Unsubscribe calls that race with an
// in-flight round only become visible in the next round, per spec.md
// §4.2's contract (c).
func (m *Manager) snapshot() []subscriberEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]subscriberEntry, 0, len(m.subscribers))
	for appID, l := range m.subscribers {
		out = append(out, subscriberEntry{appID: appID, matcher: l})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].appID < out[j].appID })
	return out
}

// MatchOffer polls every launcher subscribed at the start of this round,
// sequentially in app-id order, stopping as soon as the deadline passes. Each launcher
// sees the offer's resources net of whatever earlier launchers in this
// round already consumed.
func (m *Manager) MatchOffer(ctx context.Context, deadline time.Time, offer model.Offer) model.MatchedTasks {
	entries := m.snapshot()
	remaining := offer
	var tasks []model.TaskWithSource
	resendThisOffer := false

	for _, e := range entries {
		if m.clk.Now().After(deadline) {
			log.FromContext(ctx).WithValues("offer", offer.ID).V(1).Info("offer matching deadline reached, ending round early")
			// this and the remaining entries never got a chance to see
			// this offer; resend it
			// next round rather than treating their silence as "nothing to
			// launch".
			resendThisOffer = true
			break
		}
		task, ok := e.matcher.MatchOffer(ctx, deadline, remaining)
		if !ok {
			continue
		}
		tasks = append(tasks, task)
		remaining.Resources = subtract(remaining.Resources, task.LaunchSpec.Resources)
	}
	return model.MatchedTasks{OfferID: offer.ID, Tasks: tasks, ResendThisOffer: resendThisOffer}
}

func subtract(a, b model.Resources) model.Resources {
	return model.Resources{
		CPUs:   a.CPUs - b.CPUs,
		MemMB:  a.MemMB - b.MemMB,
		DiskMB: a.DiskMB - b.DiskMB,
		Ports:  a.Ports - b.Ports,
	}
}
