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

// Package app is the composition root: it wires every core component spec.md
// §2 names into one running instance, the way the reference operator's
// cmd/controller/main.go builds a manager and registers controllers onto
// it. The two inbound feeds this composition root exposes — OfferReceived
// and StatusReceived — stand in for the resource-master driver's offer
// feed and the status-telemetry collaborator spec.md §1 explicitly places
// out of scope; a real deployment
// wires its transport layer to call these two methods.
package app

import (
	"context"
	"time"

	"github.com/launchd/launchd/internal/clock"
	"github.com/launchd/launchd/internal/launcher"
	"github.com/launchd/launchd/internal/launchqueue"
	"github.com/launchd/launchd/internal/model"
	"github.com/launchd/launchd/internal/offermatcher"
	"github.com/launchd/launchd/internal/offerprocessor"
	"github.com/launchd/launchd/internal/offerreviver"
	"github.com/launchd/launchd/internal/options"
	"github.com/launchd/launchd/internal/ratelimit"
	"github.com/launchd/launchd/internal/statusbus"
	"github.com/launchd/launchd/internal/taskfactory"
	"github.com/launchd/launchd/internal/tasklauncher"
	"github.com/launchd/launchd/internal/tracker"
)

// App holds every long-lived collaborator for one launchd process.
type App struct {
	Clock       clock.Clock
	Tracker     *tracker.Tracker
	Bus         *statusbus.Bus
	RateLimiter *ratelimit.RateLimiter
	Manager     *offermatcher.Manager
	Reviver     *offerreviver.Debounced
	Queue       *launchqueue.Queue
	Processor   *offerprocessor.Processor
}

// Driver is what app needs from the outbound connection to the resource
// master; tasklauncher.DriverClient narrowed to the constructor's needs.
type Driver = tasklauncher.DriverClient

// New wires one App from opts and driver. Every launcher it builds uses
// taskfactory.Default; New takes no parameter for another Factory.
func New(ctx context.Context, clk clock.Clock, store tracker.Store, driver Driver, opts *options.Options) *App {
	trk := tracker.New(store)
	bus := statusbus.New()
	rateLimiter := ratelimit.New(clk, 5*time.Second, 10*time.Minute)
	manager := offermatcher.New(clk)
	reviver := offerreviver.NewDebounced(ctx, clk, opts.OfferReviveWindow, func() {})
	factory := taskfactory.Default{Clock: clk}
	taskLauncher := tasklauncher.New(driver)

	queue := launchqueue.New(func(app model.App, tasksToLaunch int) *launcher.Launcher {
		return launcher.New(app, tasksToLaunch, launcher.Config{
			Clock:               clk,
			Factory:             factory,
			RateLimiter:         rateLimiter,
			Bus:                 bus,
			Reviver:             reviver,
			Manager:             manager,
			NotificationTimeout: opts.TaskLaunchNotificationTimeout,
		})
	})

	processor := offerprocessor.New(clk, manager, trk, taskLauncher, offerprocessor.Config{
		OfferMatchingTimeout:     opts.OfferMatchingTimeout,
		SaveTasksToLaunchTimeout: opts.SaveTasksToLaunchTimeout,
		DeclineOfferDuration:     opts.DeclineOfferDuration,
	})

	return &App{
		Clock:       clk,
		Tracker:     trk,
		Bus:         bus,
		RateLimiter: rateLimiter,
		Manager:     manager,
		Reviver:     reviver,
		Queue:       queue,
		Processor:   processor,
	}
}

// OfferReceived feeds one inbound resource offer through the launch
// pipeline. The out-of-scope transport layer calls this once per offer.
func (a *App) OfferReceived(ctx context.Context, offer model.Offer) {
	a.Processor.Process(ctx, offer)
}

// StatusReceived feeds one inbound task-status update onto the status
// event bus, which fans it out to the owning launcher.
func (a *App) StatusReceived(u model.StatusUpdate) {
	a.Bus.Publish(u)
}
