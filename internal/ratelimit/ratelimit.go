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

// Package ratelimit is the per-application exponential backoff described in
// spec.md §4 item 3: answers getDelay(app) and pushes delayUpdate(app,
// until) notifications. The backoff curve itself is delegated to
// k8s.io/client-go/util/workqueue's exponential-failure rate limiter, the
// same primitive the reference orchestrator's controllers use for
// requeue backoff; the set of apps currently serving a backoff window is
// kept in a TTL cache modeled on the reference repo's
// UnavailableOfferings cache (cache/unavailableofferings.go). A lapsed
// window is picked up lazily by the next GetDelay call, the same way a
// launcher's own recheck timer re-evaluates rather than waiting on a
// pushed notification (spec.md §4.1).
package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"k8s.io/client-go/util/workqueue"

	"github.com/launchd/launchd/internal/clock"
)

// DelayUpdate is pushed whenever Backoff extends an app's backoff boundary
// or Reset clears it. A window that lapses on its own pushes nothing.
type DelayUpdate struct {
	AppID string
	Until time.Time
}

// RateLimiter answers GetDelay and publishes DelayUpdate notifications to
// every channel returned by Subscribe. Backoff(appID) registers a failure and extends the app's
// backoff window; Reset(appID) clears it (used when an app is purged or
// upgraded, per spec.md §4.1's AddTasks handling).
type RateLimiter struct {
	clk     clock.Clock
	limiter workqueue.TypedRateLimiter[string]
	ttl     time.Duration

	backoffCache *gocache.Cache

	mu   sync.Mutex
	subs []chan DelayUpdate
}

const cleanupInterval = 5 * time.Second

// New constructs a RateLimiter whose backoff curve starts at baseDelay and
// is capped at maxDelay, matching
// workqueue.NewTypedItemExponentialFailureRateLimiter's own parameters.
func New(clk clock.Clock, baseDelay, maxDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		clk:          clk,
		limiter:      workqueue.NewTypedItemExponentialFailureRateLimiter[string](baseDelay, maxDelay),
		ttl:          maxDelay,
		backoffCache: gocache.New(maxDelay, cleanupInterval),
	}
}

// GetDelay returns the current backoffUntil for app, or the zero time if
// the app isn't currently backing off.
func (r *RateLimiter) GetDelay(appID string) time.Time {
	if v, ok := r.backoffCache.Get(appID); ok {
		return v.(time.Time)
	}
	return time.Time{}
}

// Backoff registers a failed launch attempt for appID and returns the new
// backoffUntil, publishing a DelayUpdate to subscribers.
func (r *RateLimiter) Backoff(appID string) time.Time {
	d := r.limiter.When(appID)
	until := r.clk.Now().Add(d)
	r.backoffCache.Set(appID, until, d)
	r.publish(DelayUpdate{AppID: appID, Until: until})
	return until
}

// Reset clears appID's backoff state entirely, used on upgrade or purge.
func (r *RateLimiter) Reset(appID string) {
	r.limiter.Forget(appID)
	r.backoffCache.Delete(appID)
	r.publish(DelayUpdate{AppID: appID, Until: time.Time{}})
}

// Subscribe returns a channel that receives every DelayUpdate published by
// Backoff or Reset. A window that simply lapses on its own produces no
// push here; GetDelay naturally returns the zero time once the cache entry
// expires, and callers (the launcher's recheck timer) poll for that.
// Callers should drain the channel promptly, mirroring how a launcher's
// message loop drains its mailbox.
func (r *RateLimiter) Subscribe(ctx context.Context) <-chan DelayUpdate {
	ch := make(chan DelayUpdate, 16)
	r.mu.Lock()
	r.subs = append(r.subs, ch)
	r.mu.Unlock()
	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, c := range r.subs {
			if c == ch {
				r.subs = append(r.subs[:i], r.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (r *RateLimiter) publish(u DelayUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- u:
		default:
		}
	}
}
