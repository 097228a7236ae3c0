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
	"context"
	"time"
)

// MatchOfferer is implemented by a launcher: the offer-matcher manager
// calls it once per round for every subscribed launcher (spec.md §4.2).
// It is declared here, rather than in the launcher or offermatcher
// package, so both sides can depend on the same interface type without
// importing each other.
type MatchOfferer interface {
	MatchOffer(ctx context.Context, deadline time.Time, offer Offer) (TaskWithSource, bool)
}

// Source is the callback pair addressed back to the launcher that produced
// a TaskWithSource. Exactly one of Accept/Reject is invoked, exactly once,
// per spec.md §8 property 2.
type Source interface {
	Accept()
	Reject(reason string)
}

// TaskWithSource pairs one matched task with the launcher-addressed
// callback that must settle it.
type TaskWithSource struct {
	LaunchSpec LaunchSpec
	Task       Task
	Source     Source
}

// MatchedTasks is the reply to one offer-matcher round.
type MatchedTasks struct {
	OfferID         string
	Tasks           []TaskWithSource
	ResendThisOffer bool
}

// QueuedTaskCount is the read-side snapshot of a launcher's state, returned
// by AddTasks and by the administrative list() operation.
type QueuedTaskCount struct {
	App                    App
	TasksLeftToLaunch      int
	TaskLaunchesInFlight   int
	TasksLaunchedOrRunning int
	BackOffUntil           *time.Time
}
