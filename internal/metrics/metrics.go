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

// Package metrics exposes the Prometheus collectors spec.md §1 implies by
// excluding the read-side "appinfo aggregation" projection but not
// observability itself. Bucket and naming conventions follow the
// reference repo's pkg/batcher/metrics.go (Namespace/Subsystem/Name with
// a histogram for durations and counters for outcome tallies).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "launchd"
	subsystem = "offer_processor"
)

// DurationBuckets mirrors the reference repo's metrics.DurationBuckets
// convention for sub-second to multi-second operation latencies.
func DurationBuckets() []float64 {
	return []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
}

var (
	// OfferProcessingDuration tracks the end-to-end wall time of one
	// offerprocessor.Process call.
	OfferProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "duration_seconds",
		Help:      "Duration of processing a single resource offer end to end",
		Buckets:   DurationBuckets(),
	})

	// OffersLaunched counts offers that resulted in a launchTasks call.
	OffersLaunched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "launched_total",
		Help:      "Offers that resulted in at least one task launch attempt",
	})

	// OffersDeclined counts offers that resulted in a declineOffer call.
	OffersDeclined = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "declined_total",
		Help:      "Offers that were declined without launching any task",
	})

	// TasksLaunched counts individual tasks the driver accepted.
	TasksLaunched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "tasks_launched_total",
		Help:      "Individual tasks accepted by the driver",
	})

	// TasksRejected counts individual tasks rejected, labeled by reason.
	TasksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "tasks_rejected_total",
		Help:      "Individual tasks rejected, by reason",
	}, []string{"reason"})

	// PersistenceErrors counts storage write failures during the persist
	// stage (spec.md §7: "metric counter incremented").
	PersistenceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "persistence_errors_total",
		Help:      "Durable store write failures encountered while persisting matched tasks",
	})
)

// TasksLeftToLaunch is a gauge, one time series per app, mirroring a
// launcher's QueuedTaskCount.TasksLeftToLaunch for external dashboards.
var TasksLeftToLaunch = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "launcher",
	Name:      "tasks_left_to_launch",
	Help:      "Desired instances not yet launched or in flight, per app",
}, []string{"app"})
