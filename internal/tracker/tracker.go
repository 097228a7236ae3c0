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

// Package tracker is the authoritative in-memory map of live tasks per
// application, backed by persistent storage (spec.md §4.5).
package tracker

import (
	"context"
	"sync"

	"github.com/samber/lo"

	"github.com/launchd/launchd/internal/model"
)

// Tracker is the Task Tracker: getTasks/created/store/terminated/contains
// exactly as spec.md §4.5 names them. created and in-memory removal are
// synchronous; store and terminated return an error from the durable
// backend. Concurrent store/terminated for distinct task ids are
// independent; callers must serialize calls for the same task id
// themselves (internal/offerprocessor does).
type Tracker struct {
	store Store

	mu    sync.RWMutex
	tasks map[string]map[string]model.Task // appID -> taskID -> Task
}

func New(store Store) *Tracker {
	return &Tracker{
		store: store,
		tasks: map[string]map[string]model.Task{},
	}
}

// GetTasks returns the current in-memory set of tasks for an app.
func (t *Tracker) GetTasks(appID string) []model.Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return lo.Values(t.tasks[appID])
}

// Contains reports whether any entry exists for the app.
func (t *Tracker) Contains(appID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tasks[appID]) > 0
}

// Created adds task to the in-memory view only. Per spec.md §3's
// invariant, a task that exists in the tracker is either durably persisted
// or currently being persisted by the Offer Processor; Created marks the
// start of that window, Store closes it.
func (t *Tracker) Created(appID string, task model.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tasks[appID] == nil {
		t.tasks[appID] = map[string]model.Task{}
	}
	t.tasks[appID][task.TaskID] = task
}

// Store durably persists task. Callers must have already called Created
// for the same task.
func (t *Tracker) Store(ctx context.Context, appID string, task model.Task) error {
	return t.store.Put(ctx, task.TaskID, task)
}

// Terminated removes task from both the durable store and the in-memory
// view, either because it reached a terminal status or because the Offer
// Processor is rolling back a rejected or undeliverable launch.
func (t *Tracker) Terminated(ctx context.Context, appID, taskID string) error {
	t.mu.Lock()
	if t.tasks[appID] != nil {
		delete(t.tasks[appID], taskID)
	}
	t.mu.Unlock()
	return t.store.Delete(ctx, taskID)
}

// UpdateStatus updates a tracked task's status in place if present, and
// reports whether it was found.
func (t *Tracker) UpdateStatus(appID, taskID string, status model.Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	tasks := t.tasks[appID]
	if tasks == nil {
		return false
	}
	task, ok := tasks[taskID]
	if !ok {
		return false
	}
	task.Status = status
	tasks[taskID] = task
	return true
}
