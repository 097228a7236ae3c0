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

package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"

	"github.com/launchd/launchd/internal/app"
	"github.com/launchd/launchd/internal/model"
	"github.com/launchd/launchd/internal/options"
	"github.com/launchd/launchd/internal/tracker"
)

// fakeDriver is app.Driver (tasklauncher.DriverClient) recording every
// call, used to exercise the full add -> offer -> launch pipeline through
// the composition root's public surface only.
type fakeDriver struct {
	mu       sync.Mutex
	accept   bool
	launches [][]model.LaunchSpec
	declines []string
}

func (d *fakeDriver) LaunchTasks(_ context.Context, offerID string, tasks []model.LaunchSpec) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.launches = append(d.launches, tasks)
	return d.accept, nil
}

func (d *fakeDriver) DeclineOffer(_ context.Context, offerID string, _ *int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.declines = append(d.declines, offerID)
}

func (d *fakeDriver) launchCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.launches)
}

func testOptions() *options.Options {
	return &options.Options{
		OfferMatchingTimeout:          time.Second,
		SaveTasksToLaunchTimeout:      time.Second,
		TaskLaunchNotificationTimeout: time.Second,
		DeclineOfferDuration:          5 * time.Second,
		OfferReviveWindow:             100 * time.Millisecond,
	}
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encoding request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// Scenario A from spec.md §8, driven through the admin HTTP surface and
// OfferReceived exactly the way an out-of-scope transport layer would.
func TestEndToEndSuccessfulLaunchThroughAdminSurface(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	driver := &fakeDriver{accept: true}
	a := app.New(context.Background(), clk, tracker.NewMemStore(), driver, testOptions())
	handler := a.AdminHandler()

	appDef := model.App{ID: "/web", Instances: 1, CPUs: 1, MemMB: 128, DiskMB: 128}
	rec := postJSON(t, handler, "/apps/add", map[string]any{"app": appDef, "count": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("/apps/add status = %d, body = %s", rec.Code, rec.Body.String())
	}

	offer := model.Offer{
		ID:        "offer-1",
		Resources: model.Resources{CPUs: 4, MemMB: 1024, DiskMB: 1024, Ports: 4},
	}

	deadline := time.Now().Add(2 * time.Second)
	for driver.launchCount() == 0 && time.Now().Before(deadline) {
		a.OfferReceived(context.Background(), offer)
		time.Sleep(time.Millisecond)
	}

	if driver.launchCount() != 1 {
		t.Fatalf("driver launched %d times, want 1", driver.launchCount())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps/list", nil))
	var snapshot []model.QueuedTaskCount
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decoding /apps/list response: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].TasksLeftToLaunch != 0 {
		t.Errorf("/apps/list = %+v, want one entry with TasksLeftToLaunch=0", snapshot)
	}
}

func TestAdminPurgeRemovesAppFromList(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	driver := &fakeDriver{accept: true}
	a := app.New(context.Background(), clk, tracker.NewMemStore(), driver, testOptions())
	handler := a.AdminHandler()

	appDef := model.App{ID: "/web", Instances: 1}
	postJSON(t, handler, "/apps/add", map[string]any{"app": appDef, "count": 1})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/apps/purge?appId=/web", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("/apps/purge status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/apps/list", nil))
	var snapshot []model.QueuedTaskCount
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decoding /apps/list response: %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("/apps/list after purge = %+v, want empty", snapshot)
	}
}

func TestAdminPurgeMissingAppIDIsBadRequest(t *testing.T) {
	clk := clocktesting.NewFakeClock(time.Now())
	a := app.New(context.Background(), clk, tracker.NewMemStore(), &fakeDriver{}, testOptions())
	handler := a.AdminHandler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/apps/purge", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("/apps/purge without appId status = %d, want 400", rec.Code)
	}
}
