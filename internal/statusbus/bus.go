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

// Package statusbus is the per-app broadcast of task-state updates
// described in spec.md §2 item 9: launchers consume it to keep their task
// views current. The transport that actually delivers task-status
// telemetry from the resource master is out of scope (spec.md §1); this
// package only fans updates out to whichever launchers are interested.
package statusbus

import (
	"sync"

	"github.com/launchd/launchd/internal/model"
)

// Bus fans out StatusUpdates to per-app subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan model.StatusUpdate
}

func New() *Bus {
	return &Bus{subs: map[string][]chan model.StatusUpdate{}}
}

// Subscribe registers interest in appID's status updates. The returned
// channel is closed by Unsubscribe.
func (b *Bus) Subscribe(appID string) <-chan model.StatusUpdate {
	ch := make(chan model.StatusUpdate, 32)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[appID] = append(b.subs[appID], ch)
	return ch
}

// Unsubscribe removes and closes ch for appID. Safe to call once per
// channel returned by Subscribe.
func (b *Bus) Unsubscribe(appID string, ch <-chan model.StatusUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[appID]
	for i, c := range subs {
		if c == ch {
			close(c)
			b.subs[appID] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers u to every current subscriber of u.AppID. Slow
// subscribers never block Publish: a full channel drops the update rather
// than stall the bus, since status updates are explicitly eventually
// consistent with the Task Tracker (spec.md §5).
func (b *Bus) Publish(u model.StatusUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[u.AppID] {
		select {
		case ch <- u:
		default:
		}
	}
}
