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

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskState mirrors the MarathonTaskStatus classification from spec.md §6:
// every wire-level status update resolves to one of these before a launcher
// or the tracker ever sees it.
type TaskState int

const (
	TaskStaging TaskState = iota
	TaskRunning
	TaskFinished
	TaskFailed
	TaskKilled
	TaskLost
)

func (s TaskState) String() string {
	switch s {
	case TaskStaging:
		return "STAGING"
	case TaskRunning:
		return "RUNNING"
	case TaskFinished:
		return "FINISHED"
	case TaskFailed:
		return "FAILED"
	case TaskKilled:
		return "KILLED"
	case TaskLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the state ends a task's lifecycle.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskFinished, TaskFailed, TaskKilled, TaskLost:
		return true
	default:
		return false
	}
}

// Status is the last-known status payload reported for a task.
type Status struct {
	State     TaskState
	Message   string
	UpdatedAt time.Time
}

// Task is the durable record for one launched (or launching) instance.
type Task struct {
	TaskID   string
	AppID    string
	Version  time.Time
	StagedAt *int64 // epoch millis, optional per spec.md §3
	Status   Status
}

// NewTaskID generates a globally unique, appId-embedded task id, the
// convention spec.md §3 requires ("identified by a globally unique taskId
// string (appId-embedded)").
func NewTaskID(appID string) string {
	return fmt.Sprintf("%s.%s", appID, uuid.NewString())
}

// StatusUpdate is the classified form of the inbound (taskId, state,
// mesosStatus?) tuple from spec.md §6.
type StatusUpdate struct {
	TaskID  string
	AppID   string
	State   TaskState
	Message string
}

func (u StatusUpdate) IsTerminal() bool {
	return u.State.IsTerminal()
}
