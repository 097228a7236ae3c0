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

package taskfactory

import (
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/launchd/launchd/internal/model"
)

func baseApp() model.App {
	return model.App{
		ID:     "web",
		CPUs:   1,
		MemMB:  512,
		DiskMB: 128,
		Ports:  1,
	}
}

func baseOffer() model.Offer {
	return model.Offer{
		ID:         "offer-1",
		Hostname:   "slave-1.local",
		SlaveID:    "slave-1",
		Attributes: map[string]string{"rack": "a"},
		Resources: model.Resources{
			CPUs:   2,
			MemMB:  1024,
			DiskMB: 256,
			Ports:  2,
		},
	}
}

func TestDefaultNewTaskInsufficientResources(t *testing.T) {
	tests := []struct {
		name  string
		offer func(model.Offer) model.Offer
	}{
		{"not enough cpu", func(o model.Offer) model.Offer { o.Resources.CPUs = 0.5; return o }},
		{"not enough mem", func(o model.Offer) model.Offer { o.Resources.MemMB = 256; return o }},
		{"not enough disk", func(o model.Offer) model.Offer { o.Resources.DiskMB = 64; return o }},
		{"not enough ports", func(o model.Offer) model.Offer { o.Resources.Ports = 0; return o }},
	}

	d := Default{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := d.NewTask(baseApp(), tt.offer(baseOffer()), nil)
			if ok {
				t.Errorf("NewTask() ok = true, want false")
			}
		})
	}
}

func TestDefaultNewTaskUnsatisfiedConstraint(t *testing.T) {
	app := baseApp()
	app.Constraints = []model.Constraint{{Field: "rack", Operator: "CLUSTER", Parameter: "b"}}

	d := Default{}
	_, _, ok := d.NewTask(app, baseOffer(), nil)
	if ok {
		t.Errorf("NewTask() with an unsatisfied CLUSTER constraint ok = true, want false")
	}
}

func TestDefaultNewTaskSatisfiedConstraint(t *testing.T) {
	app := baseApp()
	app.Constraints = []model.Constraint{{Field: "rack", Operator: "CLUSTER", Parameter: "a"}}

	d := Default{}
	spec, task, ok := d.NewTask(app, baseOffer(), nil)
	if !ok {
		t.Fatalf("NewTask() ok = false, want true")
	}
	if spec.AppID != app.ID || task.AppID != app.ID {
		t.Errorf("NewTask() spec/task AppID = %q/%q, want %q", spec.AppID, task.AppID, app.ID)
	}
	if spec.TaskID != task.TaskID {
		t.Errorf("NewTask() spec.TaskID %q != task.TaskID %q", spec.TaskID, task.TaskID)
	}
}

func TestDefaultNewTaskUsesInjectedClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fc := clocktesting.NewFakeClock(start)
	d := Default{Clock: fc}

	_, task, ok := d.NewTask(baseApp(), baseOffer(), nil)
	if !ok {
		t.Fatalf("NewTask() ok = false, want true")
	}
	if task.StagedAt == nil {
		t.Fatalf("NewTask() task.StagedAt = nil, want non-nil")
	}
	if *task.StagedAt != start.UnixMilli() {
		t.Errorf("NewTask() task.StagedAt = %d, want %d", *task.StagedAt, start.UnixMilli())
	}
}

func TestDefaultNewTaskStagesAsTaskStaging(t *testing.T) {
	d := Default{}
	_, task, ok := d.NewTask(baseApp(), baseOffer(), nil)
	if !ok {
		t.Fatalf("NewTask() ok = false, want true")
	}
	if task.Status.State != model.TaskStaging {
		t.Errorf("NewTask() task.Status.State = %v, want %v", task.Status.State, model.TaskStaging)
	}
}
