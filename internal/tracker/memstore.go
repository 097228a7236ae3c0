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

package tracker

import (
	"context"
	"sync"

	"github.com/launchd/launchd/internal/model"
)

// MemStore is an in-memory Store, useful for tests and for single-process
// deployments that don't need real durability. It is safe for concurrent
// use across distinct task ids; callers that must serialize writes for the
// same task id (the Offer Processor does) still need to do so themselves.
type MemStore struct {
	mu    sync.RWMutex
	tasks map[string]model.Task
}

func NewMemStore() *MemStore {
	return &MemStore{tasks: map[string]model.Task{}}
}

func (s *MemStore) Put(_ context.Context, taskID string, task model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[taskID] = task
	return nil
}

func (s *MemStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, taskID)
	return nil
}

// Snapshot returns a copy of every task currently in the store, for test
// assertions.
func (s *MemStore) Snapshot() map[string]model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Task, len(s.tasks))
	for k, v := range s.tasks {
		out[k] = v
	}
	return out
}
