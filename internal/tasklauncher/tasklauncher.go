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

// Package tasklauncher is the thin adapter over the outbound driver
// described in spec.md §4.4: launchTasks and declineOffer. The driver
// itself (the component that actually speaks to the resource master) is
// out of scope (spec.md §1); this package only narrows it to the two
// calls the Offer Processor needs, so that component can be tested
// against a fake.
package tasklauncher

import (
	"context"

	"github.com/launchd/launchd/internal/model"
)

// DriverClient is the external driver the system assumes: accepts
// launchTasks(offerId, tasks) returning success/failure, and
// declineOffer(offerId, refuseMillis).
type DriverClient interface {
	LaunchTasks(ctx context.Context, offerID string, tasks []model.LaunchSpec) (accepted bool, err error)
	DeclineOffer(ctx context.Context, offerID string, refuseMillis *int64)
}

// TaskLauncher is the adapter the Offer Processor calls through.
type TaskLauncher struct {
	driver DriverClient
}

func New(driver DriverClient) *TaskLauncher {
	return &TaskLauncher{driver: driver}
}

// LaunchTasks returns true iff the driver accepted the batch. Driver
// failure or absence is treated as rejection, never as an error the
// caller must separately branch on, matching spec.md §4.4's "driver
// failure or absence ⇒ false".
func (t *TaskLauncher) LaunchTasks(ctx context.Context, offerID string, tasks []model.LaunchSpec) bool {
	if t.driver == nil || len(tasks) == 0 {
		return false
	}
	accepted, err := t.driver.LaunchTasks(ctx, offerID, tasks)
	if err != nil {
		return false
	}
	return accepted
}

// DeclineOffer returns the offer unused. refuseMillis is nil when the
// offer should be resent soon (resendThisOffer or a not-all-saved
// outcome); otherwise it is the configured decline duration.
func (t *TaskLauncher) DeclineOffer(ctx context.Context, offerID string, refuseMillis *int64) {
	if t.driver == nil {
		return
	}
	t.driver.DeclineOffer(ctx, offerID, refuseMillis)
}
