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

// Package launchqueue is the administrative surface spec.md §6 implies by
// naming add/purge/count/list as the operations external callers use: it
// owns the registry of per-app launcher.Launcher goroutines, starting and
// stopping them, and fans the offer-matcher manager and status bus wiring
// out to each one.
package launchqueue

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"github.com/launchd/launchd/internal/launcher"
	"github.com/launchd/launchd/internal/model"
)

// LauncherFactory builds the per-app launcher.Launcher for a newly added
// app; injected so tests can substitute a lighter fake.
type LauncherFactory func(app model.App, tasksToLaunch int) *launcher.Launcher

// Queue is the registry of live per-app launchers.
type Queue struct {
	newLauncher LauncherFactory

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	l      *launcher.Launcher
	cancel context.CancelFunc
}

func New(factory LauncherFactory) *Queue {
	return &Queue{newLauncher: factory, entries: map[string]*entry{}}
}

// Add enrolls appID with count additional launches, starting its launcher
// goroutine on first use and just forwarding AddTasks on subsequent calls,
// matching spec.md §6's add(app, count).
func (q *Queue) Add(ctx context.Context, app model.App, count int) model.QueuedTaskCount {
	q.mu.Lock()
	e, ok := q.entries[app.ID]
	if !ok {
		runCtx, cancel := context.WithCancel(context.Background())
		l := q.newLauncher(app, count)
		e = &entry{l: l, cancel: cancel}
		q.entries[app.ID] = e
		q.mu.Unlock()
		go l.Run(runCtx)
		return l.QueuedTaskCount(ctx)
	}
	q.mu.Unlock()
	return e.l.AddTasks(ctx, app, count)
}

// Purge stops appID's launcher, letting in-flight launches settle first,
// and removes it from the registry, matching spec.md §6's purge(app).
func (q *Queue) Purge(ctx context.Context, appID string) error {
	q.mu.Lock()
	e, ok := q.entries[appID]
	if !ok {
		q.mu.Unlock()
		return nil
	}
	delete(q.entries, appID)
	q.mu.Unlock()

	e.l.Stop(ctx)
	select {
	case <-e.l.Done():
	case <-ctx.Done():
		return fmt.Errorf("purge %s: %w", appID, ctx.Err())
	}
	e.cancel()
	return nil
}

// Count returns appID's queued-task-count snapshot, or false if unknown.
func (q *Queue) Count(ctx context.Context, appID string) (model.QueuedTaskCount, bool) {
	q.mu.Lock()
	e, ok := q.entries[appID]
	q.mu.Unlock()
	if !ok {
		return model.QueuedTaskCount{}, false
	}
	return e.l.QueuedTaskCount(ctx), true
}

// List returns a snapshot of every currently registered app, matching
// spec.md §6's list() administrative operation.
func (q *Queue) List(ctx context.Context) ([]model.QueuedTaskCount, error) {
	q.mu.Lock()
	launchers := make([]*launcher.Launcher, 0, len(q.entries))
	for _, e := range q.entries {
		launchers = append(launchers, e.l)
	}
	q.mu.Unlock()

	out := make([]model.QueuedTaskCount, 0, len(launchers))
	var errs error
	for _, l := range launchers {
		select {
		case <-ctx.Done():
			errs = multierr.Append(errs, ctx.Err())
			return out, errs
		default:
		}
		out = append(out, l.QueuedTaskCount(ctx))
	}
	return out, errs
}
