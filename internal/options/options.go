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

// Package options holds the process-wide configuration spec.md §9's design
// notes name as tunables: the two offer-processing deadlines, the launch
// notification timeout, and the steady-state decline duration. It follows
// the reference operator's options package (one flat struct, AddFlags,
// Parse, a context-scoped accessor), substituting spf13/pflag for the
// stdlib flag.FlagSet the reference repo wraps, and env vars as fallback
// defaults the way that package's env helpers do.
package options

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
)

// Options is every flag the launchd process reads at startup.
type Options struct {
	MetricsPort                   int
	HealthProbePort               int
	AdminPort                     int
	OfferMatchingTimeout          time.Duration
	SaveTasksToLaunchTimeout      time.Duration
	TaskLaunchNotificationTimeout time.Duration
	DeclineOfferDuration          time.Duration
	OfferReviveWindow             time.Duration
	LogLevel                      string
}

// AddFlags registers every option on fs, seeding each default from its
// environment variable fallback first, the same precedence order (flag
// beats env beats built-in default) the reference operator uses.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.IntVar(&o.MetricsPort, "metrics-port", withDefaultInt("METRICS_PORT", 8080), "The port the metrics endpoint binds to")
	fs.IntVar(&o.HealthProbePort, "health-probe-port", withDefaultInt("HEALTH_PROBE_PORT", 8081), "The port the health probe endpoint binds to")
	fs.IntVar(&o.AdminPort, "admin-port", withDefaultInt("ADMIN_PORT", 8082), "The port the add/purge/list administrative API binds to")
	fs.DurationVar(&o.OfferMatchingTimeout, "offer-matching-timeout", withDefaultDuration("OFFER_MATCHING_TIMEOUT", time.Second), "Deadline given to the offer matcher manager to produce matched tasks for one offer")
	fs.DurationVar(&o.SaveTasksToLaunchTimeout, "save-tasks-to-launch-timeout", withDefaultDuration("SAVE_TASKS_TO_LAUNCH_TIMEOUT", 2*time.Second), "Additional time, past the matching deadline, allowed to durably persist matched tasks before giving up on the remainder")
	fs.DurationVar(&o.TaskLaunchNotificationTimeout, "task-launch-notification-timeout", withDefaultDuration("TASK_LAUNCH_NOTIFICATION_TIMEOUT", 10*time.Second), "How long a launcher waits for a launched task's driver acknowledgement before treating it as rejected")
	fs.DurationVar(&o.DeclineOfferDuration, "decline-offer-duration", withDefaultDuration("DECLINE_OFFER_DURATION", 5*time.Second), "How long a declined offer is withheld from being resent, in the steady-state decline case")
	fs.DurationVar(&o.OfferReviveWindow, "offer-revive-window", withDefaultDuration("OFFER_REVIVE_WINDOW", 500*time.Millisecond), "Debounce window the offer reviver coalesces reviveOffers triggers within")
	fs.StringVar(&o.LogLevel, "log-level", withDefaultString("LOG_LEVEL", "info"), "Log verbosity level. Can be one of 'debug', 'info', or 'error'")
}

// Parse parses args into o after AddFlags has registered its flags on fs,
// and validates the handful of values that can't be expressed as flag
// constraints alone.
func (o *Options) Parse(fs *pflag.FlagSet, args ...string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	switch o.LogLevel {
	case "", "debug", "info", "error":
	default:
		return fmt.Errorf("invalid log level %q", o.LogLevel)
	}
	if o.OfferMatchingTimeout <= 0 {
		return fmt.Errorf("offer-matching-timeout must be positive")
	}
	if o.SaveTasksToLaunchTimeout <= 0 {
		return fmt.Errorf("save-tasks-to-launch-timeout must be positive")
	}
	return nil
}

func withDefaultString(envVar, def string) string {
	if v, ok := os.LookupEnv(envVar); ok {
		return v
	}
	return def
}

func withDefaultInt(envVar string, def int) int {
	if v, ok := os.LookupEnv(envVar); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func withDefaultDuration(envVar string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(envVar); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

type optionsKey struct{}

// ToContext stashes o on ctx for downstream components that need to read
// configuration without threading it through every constructor.
func ToContext(ctx context.Context, o *Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, o)
}

// FromContext retrieves the Options stashed by ToContext, or a zero-value
// Options if none was stashed (tests typically construct Options directly
// instead of going through a context).
func FromContext(ctx context.Context) *Options {
	if o, ok := ctx.Value(optionsKey{}).(*Options); ok {
		return o
	}
	return &Options{}
}
