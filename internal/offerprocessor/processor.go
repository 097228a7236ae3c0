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

// Package offerprocessor drives one resource offer end to end: match,
// persist, decide, launch, settle (spec.md §4.3). It is the only component
// that touches the offer matcher manager, the task tracker, and the task
// launcher in the same call, and is therefore where the rollback and
// decline-vs-resend policy of spec.md §7 lives.
package offerprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/awslabs/operatorpkg/serrors"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/launchd/launchd/internal/clock"
	"github.com/launchd/launchd/internal/metrics"
	"github.com/launchd/launchd/internal/model"
	"github.com/launchd/launchd/internal/tasklauncher"
	"github.com/launchd/launchd/internal/tracker"
)

const savingTimeoutReason = "saving timeout reached"

// OfferMatcher is the subset of *offermatcher.Manager the processor needs.
// Declared locally, rather than reusing model.MatchOfferer, because the
// manager's signature returns model.MatchedTasks rather than a single
// TaskWithSource — a different contract than a per-launcher matcher's.
type OfferMatcher interface {
	MatchOffer(ctx context.Context, deadline time.Time, offer model.Offer) model.MatchedTasks
}

// Config holds the two timeouts spec.md §4.3 derives matchingDeadline and
// savingDeadline from, plus the steady-state decline duration.
type Config struct {
	OfferMatchingTimeout     time.Duration
	SaveTasksToLaunchTimeout time.Duration
	DeclineOfferDuration     time.Duration
}

// Processor is the Offer Processor.
type Processor struct {
	clk      clock.Clock
	matcher  OfferMatcher
	tracker  *tracker.Tracker
	launcher *tasklauncher.TaskLauncher
	cfg      Config
}

func New(clk clock.Clock, matcher OfferMatcher, trk *tracker.Tracker, launcher *tasklauncher.TaskLauncher, cfg Config) *Processor {
	return &Processor{clk: clk, matcher: matcher, tracker: trk, launcher: launcher, cfg: cfg}
}

// Process runs one offer through match, persist, decide, launch, settle.
func (p *Processor) Process(ctx context.Context, offer model.Offer) {
	start := p.clk.Now()
	defer func() {
		metrics.OfferProcessingDuration.Observe(p.clk.Now().Sub(start).Seconds())
	}()

	matchingDeadline := start.Add(p.cfg.OfferMatchingTimeout)
	savingDeadline := matchingDeadline.Add(p.cfg.SaveTasksToLaunchTimeout)

	matched := p.matcher.MatchOffer(ctx, matchingDeadline, offer)

	survivors, notAllSaved := p.persist(ctx, matched.Tasks, savingDeadline)

	if len(survivors) == 0 {
		var refuseMillis *int64
		if !matched.ResendThisOffer && !notAllSaved {
			ms := p.cfg.DeclineOfferDuration.Milliseconds()
			refuseMillis = &ms
		}
		p.launcher.DeclineOffer(ctx, offer.ID, refuseMillis)
		metrics.OffersDeclined.Inc()
		return
	}

	p.launch(ctx, offer.ID, survivors)
}

// persist iterates matched tasks in order, creating and durably storing
// each one before the savingDeadline, and rolling back any task it cannot
// finish persisting. notAllSaved reports whether any task was skipped or
// failed, which bears on the decline-vs-resend decision in Process.
func (p *Processor) persist(ctx context.Context, candidates []model.TaskWithSource, savingDeadline time.Time) ([]model.TaskWithSource, bool) {
	var survivors []model.TaskWithSource
	notAllSaved := false

	for _, c := range candidates {
		if p.clk.Now().After(savingDeadline) {
			c.Source.Reject(savingTimeoutReason)
			notAllSaved = true
			metrics.TasksRejected.WithLabelValues(savingTimeoutReason).Inc()
			continue
		}

		p.tracker.Created(c.Task.AppID, c.Task)
		if err := p.tracker.Store(ctx, c.Task.AppID, c.Task); err != nil {
			reason := fmt.Sprintf("storage error: %s", err)
			c.Source.Reject(reason)
			if tErr := p.tracker.Terminated(ctx, c.Task.AppID, c.Task.TaskID); tErr != nil {
				log.FromContext(ctx).Error(serrors.Wrap(tErr, "taskId", c.Task.TaskID, "appId", c.Task.AppID), "rollback after storage error failed")
			}
			notAllSaved = true
			metrics.PersistenceErrors.Inc()
			metrics.TasksRejected.WithLabelValues("storage error").Inc()
			continue
		}

		survivors = append(survivors, c)
	}

	return survivors, notAllSaved
}

// launch hands the persisted survivors to the driver and settles every
// source exactly once, per spec.md §8 property 2.
func (p *Processor) launch(ctx context.Context, offerID string, survivors []model.TaskWithSource) {
	specs := make([]model.LaunchSpec, len(survivors))
	for i, s := range survivors {
		specs[i] = s.LaunchSpec
	}

	metrics.OffersLaunched.Inc()
	if p.launcher.LaunchTasks(ctx, offerID, specs) {
		for _, s := range survivors {
			s.Source.Accept()
		}
		metrics.TasksLaunched.Add(float64(len(survivors)))
		return
	}

	const reason = "driver unavailable"
	for _, s := range survivors {
		s.Source.Reject(reason)
		if err := p.tracker.Terminated(ctx, s.Task.AppID, s.Task.TaskID); err != nil {
			log.FromContext(ctx).Error(serrors.Wrap(err, "taskId", s.Task.TaskID, "appId", s.Task.AppID), "rollback after driver rejection failed")
		}
	}
	metrics.TasksRejected.WithLabelValues(reason).Add(float64(len(survivors)))
}
