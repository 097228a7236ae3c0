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

// Package launcher is the per-application actor from spec.md §4.1: it owns
// one app's launch intent, matches offers forwarded to it, maintains a
// live task map, reacts to status updates, and honors backoff. Each
// Launcher runs its own goroutine processing one message at a time, so no
// internal locking is needed; cross-launcher coordination happens only
// through the offer-matcher manager (spec.md §5, §9).
package launcher

import (
	"context"
	"time"

	"github.com/samber/lo"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/launchd/launchd/internal/clock"
	"github.com/launchd/launchd/internal/metrics"
	"github.com/launchd/launchd/internal/model"
	"github.com/launchd/launchd/internal/offerreviver"
	"github.com/launchd/launchd/internal/ratelimit"
	"github.com/launchd/launchd/internal/statusbus"
	"github.com/launchd/launchd/internal/taskfactory"
)

// LaunchNotificationTimeoutReason is the sentinel reason spec.md §4.1 uses
// for a synthesized TaskLaunchRejected when the driver never acknowledges
// a matched task within the configured timeout.
const LaunchNotificationTimeoutReason = "launch-notification-timeout"

// ManagerClient is the subset of the offer-matcher manager a launcher
// depends on to register and unregister its interest in offers.
type ManagerClient interface {
	Subscribe(appID string, l model.MatchOfferer)
	Unsubscribe(appID string)
}

type phase int

const (
	phaseInitialDelay phase = iota
	phaseActive
	phaseStopping
)

// Launcher is the per-application actor. Construct with New and start its
// message loop with Run; every other method is safe to call concurrently
// because it only ever sends a message into the actor's mailbox.
type Launcher struct {
	appID               string
	clk                 clock.Clock
	factory             taskfactory.Factory
	rateLimiter         *ratelimit.RateLimiter
	bus                 *statusbus.Bus
	reviver             offerreviver.Reviver
	manager             ManagerClient
	notificationTimeout time.Duration

	mailbox chan any
	done    chan struct{}
	ctx     context.Context

	// state below is only ever touched from the Run goroutine.
	app               model.App
	tasksToLaunch     int
	tasksMap          map[string]model.Task
	inFlight          map[string]clock.CancelFunc
	backOffUntil      *time.Time
	recheckCancel     clock.CancelFunc
	registered        bool
	phase             phase
	buffered          []any
	statusCh          <-chan model.StatusUpdate
}

// Config bundles a Launcher's fixed dependencies.
type Config struct {
	Clock               clock.Clock
	Factory             taskfactory.Factory
	RateLimiter         *ratelimit.RateLimiter
	Bus                 *statusbus.Bus
	Reviver             offerreviver.Reviver
	Manager             ManagerClient
	NotificationTimeout time.Duration
}

// New constructs a Launcher for app with an initial tasksToLaunch count.
// Call Run to start its actor loop.
func New(app model.App, tasksToLaunch int, cfg Config) *Launcher {
	return &Launcher{
		appID:               app.ID,
		clk:                 cfg.Clock,
		factory:             cfg.Factory,
		rateLimiter:         cfg.RateLimiter,
		bus:                 cfg.Bus,
		reviver:             cfg.Reviver,
		manager:             cfg.Manager,
		notificationTimeout: cfg.NotificationTimeout,
		mailbox:             make(chan any, 256),
		done:                make(chan struct{}),
		app:                 app,
		tasksToLaunch:       tasksToLaunch,
		tasksMap:            map[string]model.Task{},
		inFlight:            map[string]clock.CancelFunc{},
		phase:               phaseInitialDelay,
	}
}

// Done is closed once the launcher's actor loop has exited, after Stop has
// drained every in-flight launch.
func (l *Launcher) Done() <-chan struct{} { return l.done }

// AppID is the application this launcher owns.
func (l *Launcher) AppID() string { return l.appID }

// --- messages ---

type msgAddTasks struct {
	newApp model.App
	count  int
	reply  chan model.QueuedTaskCount
}

type msgMatchOffer struct {
	deadline time.Time
	offer    model.Offer
	reply    chan matchResult
}

type matchResult struct {
	task model.TaskWithSource
	ok   bool
}

type msgTaskLaunchAccepted struct{ taskID string }
type msgTaskLaunchRejected struct {
	taskID string
	reason string
}
type msgStatusUpdate struct{ update model.StatusUpdate }
type msgDelayUpdate struct{ until time.Time }
type msgRecheckBackoff struct{}
type msgQueryQueuedTaskCount struct{ reply chan model.QueuedTaskCount }
type msgStop struct{}

// --- public actor API: every call just posts a message ---

// AddTasks enqueues count additional launches for newApp, per spec.md
// §4.1's AddTasks operation, and returns the resulting snapshot.
func (l *Launcher) AddTasks(ctx context.Context, newApp model.App, count int) model.QueuedTaskCount {
	reply := make(chan model.QueuedTaskCount, 1)
	l.post(ctx, msgAddTasks{newApp: newApp, count: count, reply: reply})
	select {
	case r := <-reply:
		return r
	case <-ctx.Done():
		return model.QueuedTaskCount{}
	case <-l.done:
		return model.QueuedTaskCount{}
	}
}

// MatchOffer implements model.MatchOfferer: it is what the offer-matcher
// manager calls once per round for every subscribed launcher.
func (l *Launcher) MatchOffer(ctx context.Context, deadline time.Time, offer model.Offer) (model.TaskWithSource, bool) {
	reply := make(chan matchResult, 1)
	l.post(ctx, msgMatchOffer{deadline: deadline, offer: offer, reply: reply})
	select {
	case r := <-reply:
		return r.task, r.ok
	case <-ctx.Done():
		return model.TaskWithSource{}, false
	case <-l.done:
		return model.TaskWithSource{}, false
	}
}

// NotifyStatus delivers a task-status update; callers typically subscribe
// this launcher to internal/statusbus instead of calling it directly (see
// Run), but it is exported for direct wiring in tests.
func (l *Launcher) NotifyStatus(ctx context.Context, u model.StatusUpdate) {
	l.post(ctx, msgStatusUpdate{update: u})
}

// QueuedTaskCount returns a snapshot of this launcher's state, for the
// administrative list() operation.
func (l *Launcher) QueuedTaskCount(ctx context.Context) model.QueuedTaskCount {
	reply := make(chan model.QueuedTaskCount, 1)
	l.post(ctx, msgQueryQueuedTaskCount{reply: reply})
	select {
	case r := <-reply:
		return r
	case <-ctx.Done():
		return model.QueuedTaskCount{}
	case <-l.done:
		return model.QueuedTaskCount{}
	}
}

// Stop begins a graceful shutdown: no further offers are matched, but
// in-flight launches are allowed to settle before the actor terminates.
func (l *Launcher) Stop(ctx context.Context) {
	l.post(ctx, msgStop{})
}

func (l *Launcher) post(ctx context.Context, msg any) {
	select {
	case l.mailbox <- msg:
	case <-ctx.Done():
	case <-l.done:
	}
}

// --- the actor loop ---

// Run drives the launcher's message loop until Stop has drained every
// in-flight launch, or ctx is canceled. It must be started on its own
// goroutine.
func (l *Launcher) Run(ctx context.Context) {
	l.ctx = ctx
	defer close(l.done)

	l.statusCh = l.bus.Subscribe(l.appID)
	go l.forwardStatus(ctx)

	rlCh := l.rateLimiter.Subscribe(ctx)
	go l.forwardDelayUpdates(ctx, rlCh)

	// spec.md §4.1: on start, ask the Rate Limiter for the current delay.
	l.handleDelayUpdate(ctx, l.rateLimiter.GetDelay(l.appID))

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-l.mailbox:
			if l.phase == phaseInitialDelay {
				if _, isDelay := msg.(msgDelayUpdate); !isDelay {
					l.buffered = append(l.buffered, msg)
					continue
				}
			}
			l.dispatch(ctx, msg)
			if l.phase == phaseStopping && len(l.inFlight) == 0 {
				return
			}
		}
	}
}

func (l *Launcher) forwardStatus(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-l.statusCh:
			if !ok {
				return
			}
			l.post(ctx, msgStatusUpdate{update: u})
		}
	}
}

func (l *Launcher) forwardDelayUpdates(ctx context.Context, ch <-chan ratelimit.DelayUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-ch:
			if !ok {
				return
			}
			if u.AppID != l.appID {
				continue
			}
			l.post(ctx, msgDelayUpdate{until: u.Until})
		}
	}
}

func (l *Launcher) dispatch(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case msgAddTasks:
		m.reply <- l.handleAddTasks(ctx, m.newApp, m.count)
	case msgMatchOffer:
		task, ok := l.handleMatchOffer(ctx, m.deadline, m.offer)
		m.reply <- matchResult{task: task, ok: ok}
	case msgTaskLaunchAccepted:
		l.handleAccepted(m.taskID)
	case msgTaskLaunchRejected:
		l.handleRejected(ctx, m.taskID, m.reason)
	case msgStatusUpdate:
		l.handleStatusUpdate(m.update)
	case msgDelayUpdate:
		l.handleDelayUpdate(ctx, m.until)
	case msgRecheckBackoff:
		l.manageSubscription(ctx)
	case msgQueryQueuedTaskCount:
		m.reply <- l.snapshot()
	case msgStop:
		l.handleStop(ctx)
	}
}

func (l *Launcher) handleAddTasks(ctx context.Context, newApp model.App, count int) model.QueuedTaskCount {
	switch {
	case appsEqual(l.app, newApp):
		l.tasksToLaunch += count
	case l.app.IsUpgrade(newApp):
		l.app = newApp
		l.tasksToLaunch = count
		l.unsubscribe(ctx)
		l.backOffUntil = nil
		l.cancelRecheck()
		l.phase = phaseInitialDelay
		l.rateLimiter.Reset(l.appID)
	default:
		// scaling-only change: same identity, different Instances/Version.
		l.app = newApp
		l.tasksToLaunch = count
	}
	l.manageSubscription(ctx)
	return l.snapshot()
}

func (l *Launcher) handleMatchOffer(ctx context.Context, deadline time.Time, offer model.Offer) (model.TaskWithSource, bool) {
	if l.clk.Now().After(deadline) || !l.shouldLaunchTasks() {
		return model.TaskWithSource{}, false
	}
	spec, task, ok := l.factory.NewTask(l.app, offer, lo.Values(l.tasksMap))
	if !ok {
		return model.TaskWithSource{}, false
	}
	l.tasksMap[task.TaskID] = task
	l.tasksToLaunch--
	l.inFlight[task.TaskID] = l.scheduleNotificationTimeout(task.TaskID)
	l.manageSubscription(ctx)
	return model.TaskWithSource{LaunchSpec: spec, Task: task, Source: &launcherSource{l: l, taskID: task.TaskID}}, true
}

func (l *Launcher) scheduleNotificationTimeout(taskID string) clock.CancelFunc {
	return clock.AfterFunc(l.clk, l.notificationTimeout, func() {
		l.post(l.ctx, msgTaskLaunchRejected{taskID: taskID, reason: LaunchNotificationTimeoutReason})
	})
}

func (l *Launcher) handleAccepted(taskID string) {
	if cancel, ok := l.inFlight[taskID]; ok {
		cancel()
		delete(l.inFlight, taskID)
	}
}

func (l *Launcher) handleRejected(ctx context.Context, taskID, reason string) {
	cancel, ok := l.inFlight[taskID]
	if !ok {
		// A stale launch-notification timeout firing for a task that
		// already settled via accept/reject; spec.md §4.1 says ignore it.
		return
	}
	cancel()
	delete(l.inFlight, taskID)
	delete(l.tasksMap, taskID)
	l.tasksToLaunch++
	log.FromContext(ctx).WithValues("app", l.appID, "task", taskID, "reason", reason).V(1).Info("launch rejected, rescheduling slot")
	l.manageSubscription(ctx)
}

func (l *Launcher) handleStatusUpdate(u model.StatusUpdate) {
	task, known := l.tasksMap[u.TaskID]
	if u.IsTerminal() {
		if !known {
			return
		}
		delete(l.tasksMap, u.TaskID)
		if cancel, ok := l.inFlight[u.TaskID]; ok {
			cancel()
			delete(l.inFlight, u.TaskID)
		}
		if l.app.HasConstraints() {
			l.reviver.ReviveOffers()
		}
		return
	}
	if !known {
		log.FromContext(l.ctx).WithValues("app", l.appID, "task", u.TaskID).V(1).Info("status update for unknown task, dropping")
		return
	}
	task.Status = model.Status{State: u.State, Message: u.Message}
	l.tasksMap[u.TaskID] = task
}

func (l *Launcher) handleDelayUpdate(ctx context.Context, until time.Time) {
	now := l.clk.Now()
	if l.phase == phaseInitialDelay {
		l.backOffUntil = optionalTime(until)
		if until.After(now) {
			l.recheckCancel = clock.AtFunc(l.clk, until, func() { l.post(l.ctx, msgRecheckBackoff{}) })
		}
		l.phase = phaseActive
		l.manageSubscription(ctx)
		l.replayBuffered(ctx)
		return
	}
	if timeEqual(l.backOffUntil, until) {
		l.manageSubscription(ctx)
		return
	}
	l.backOffUntil = optionalTime(until)
	l.cancelRecheck()
	if until.After(now) {
		l.recheckCancel = clock.AtFunc(l.clk, until, func() { l.post(l.ctx, msgRecheckBackoff{}) })
	}
	l.manageSubscription(ctx)
}

func (l *Launcher) replayBuffered(ctx context.Context) {
	buffered := l.buffered
	l.buffered = nil
	for _, msg := range buffered {
		l.dispatch(ctx, msg)
	}
}

func (l *Launcher) handleStop(ctx context.Context) {
	if l.phase == phaseStopping {
		return
	}
	l.phase = phaseStopping
	l.unsubscribe(ctx)
	metrics.TasksLeftToLaunch.DeleteLabelValues(l.appID)
}

func (l *Launcher) shouldLaunchTasks() bool {
	if l.phase != phaseActive {
		return false
	}
	if l.tasksToLaunch <= 0 {
		return false
	}
	if l.backOffUntil != nil && l.clk.Now().Before(*l.backOffUntil) {
		return false
	}
	return true
}

func (l *Launcher) manageSubscription(ctx context.Context) {
	should := l.shouldLaunchTasks()
	if should && !l.registered {
		l.manager.Subscribe(l.appID, l)
		l.registered = true
	} else if !should && l.registered {
		l.manager.Unsubscribe(l.appID)
		l.registered = false
	}
	if l.phase != phaseStopping {
		metrics.TasksLeftToLaunch.WithLabelValues(l.appID).Set(float64(l.tasksToLaunch))
	}
}

func (l *Launcher) unsubscribe(_ context.Context) {
	if l.registered {
		l.manager.Unsubscribe(l.appID)
		l.registered = false
	}
}

func (l *Launcher) cancelRecheck() {
	if l.recheckCancel != nil {
		l.recheckCancel()
		l.recheckCancel = nil
	}
}

func (l *Launcher) snapshot() model.QueuedTaskCount {
	return model.QueuedTaskCount{
		App:                    l.app,
		TasksLeftToLaunch:      l.tasksToLaunch,
		TaskLaunchesInFlight:   len(l.inFlight),
		TasksLaunchedOrRunning: len(l.tasksMap) - len(l.inFlight),
		BackOffUntil:           l.backOffUntil,
	}
}

// launcherSource implements model.Source, addressing accept/reject
// notifications for one matched task back to the launcher that produced
// it (spec.md §3's MatchedTasks.source).
type launcherSource struct {
	l      *Launcher
	taskID string
}

func (s *launcherSource) Accept() {
	s.l.post(s.l.ctx, msgTaskLaunchAccepted{taskID: s.taskID})
}

func (s *launcherSource) Reject(reason string) {
	s.l.post(s.l.ctx, msgTaskLaunchRejected{taskID: s.taskID, reason: reason})
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	out := t
	return &out
}

func timeEqual(existing *time.Time, candidate time.Time) bool {
	if existing == nil {
		return candidate.IsZero()
	}
	return existing.Equal(candidate)
}

func appsEqual(a, b model.App) bool {
	if a.ID != b.ID || a.Instances != b.Instances || !a.Version.Equal(b.Version) {
		return false
	}
	if !a.VersionInfo.LastScalingAt.Equal(b.VersionInfo.LastScalingAt) || !a.VersionInfo.LastConfigChangeAt.Equal(b.VersionInfo.LastConfigChangeAt) {
		return false
	}
	return !a.IsUpgrade(b)
}
