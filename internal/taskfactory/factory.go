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

// Package taskfactory is the pure constraint-evaluation and resource-carving
// collaborator from spec.md §4 item 4: newTask(app, offer, runningTasks) ->
// Option<(launchSpec, taskRecord)>. Cross-application placement
// optimization beyond per-task constraint matching is explicitly
// delegated here and out of the core's scope (spec.md §1 Non-goals).
package taskfactory

import (
	"github.com/launchd/launchd/internal/clock"
	"github.com/launchd/launchd/internal/model"
)

// Factory is the interface a launcher depends on to decide whether an
// offer can host one more instance of an app, given the tasks the launcher
// currently believes are live.
type Factory interface {
	// NewTask attempts to carve one task out of offer for app, given the
	// set of tasks the launcher currently believes are running or
	// in-flight. ok is false when no constraint-satisfying placement
	// exists with the offer's remaining resources.
	NewTask(app model.App, offer model.Offer, runningTasks []model.Task) (spec model.LaunchSpec, task model.Task, ok bool)
}

// Default is a minimal resource- and constraint-aware Factory: it checks
// the offer has enough CPU/mem/disk/ports left and that every CLUSTER
// constraint in app.Constraints is satisfied by the offer's attributes.
// Production deployments inject a richer Factory (spec.md explicitly
// treats constraint evaluation and resource carving as delegated); Default
// exists so the pipeline is runnable and testable end-to-end on its own.
type Default struct {
	Clock clock.Clock
}

func (d Default) NewTask(app model.App, offer model.Offer, _ []model.Task) (model.LaunchSpec, model.Task, bool) {
	if offer.Resources.CPUs < app.CPUs || offer.Resources.MemMB < app.MemMB || offer.Resources.DiskMB < app.DiskMB {
		return model.LaunchSpec{}, model.Task{}, false
	}
	if offer.Resources.Ports < app.Ports {
		return model.LaunchSpec{}, model.Task{}, false
	}
	for _, c := range app.Constraints {
		if c.Operator == "CLUSTER" && offer.Attributes[c.Field] != c.Parameter {
			return model.LaunchSpec{}, model.Task{}, false
		}
	}

	taskID := model.NewTaskID(app.ID)
	spec := model.LaunchSpec{
		TaskID:  taskID,
		AppID:   app.ID,
		Command: app.Command,
		Resources: model.Resources{
			CPUs:  app.CPUs,
			MemMB: app.MemMB,
			DiskMB: app.DiskMB,
			Ports: app.Ports,
		},
		Hostname: offer.Hostname,
		SlaveID:  offer.SlaveID,
	}
	clk := d.Clock
	if clk == nil {
		clk = clock.RealClock()
	}
	stagedAt := clk.Now().UnixMilli()
	task := model.Task{
		TaskID:  taskID,
		AppID:   app.ID,
		Version: app.Version,
		StagedAt: &stagedAt,
		Status:  model.Status{State: model.TaskStaging},
	}
	return spec, task, true
}
