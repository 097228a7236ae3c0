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
	"strings"
	"testing"
)

func TestTaskStateIsTerminal(t *testing.T) {
	tests := []struct {
		state    TaskState
		terminal bool
	}{
		{TaskStaging, false},
		{TaskRunning, false},
		{TaskFinished, true},
		{TaskFailed, true},
		{TaskKilled, true},
		{TaskLost, true},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.terminal {
				t.Errorf("%s.IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
			}
		})
	}
}

func TestStatusUpdateIsTerminal(t *testing.T) {
	u := StatusUpdate{TaskID: "t1", AppID: "web", State: TaskFailed}
	if !u.IsTerminal() {
		t.Errorf("StatusUpdate{State: TaskFailed}.IsTerminal() = false, want true")
	}
	u.State = TaskRunning
	if u.IsTerminal() {
		t.Errorf("StatusUpdate{State: TaskRunning}.IsTerminal() = true, want false")
	}
}

func TestNewTaskIDEmbedsAppID(t *testing.T) {
	id := NewTaskID("web")
	if !strings.HasPrefix(id, "web.") {
		t.Errorf("NewTaskID(%q) = %q, want prefix %q", "web", id, "web.")
	}
	if id == NewTaskID("web") {
		t.Errorf("NewTaskID called twice for the same app produced the same id: %q", id)
	}
}
