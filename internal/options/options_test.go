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

package options_test

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/launchd/launchd/internal/options"
)

func TestAddFlagsAndParseAppliesDefaults(t *testing.T) {
	var o options.Options
	fs := pflag.NewFlagSet("launchd", pflag.ContinueOnError)
	o.AddFlags(fs)

	if err := o.Parse(fs); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if o.OfferMatchingTimeout != time.Second {
		t.Errorf("OfferMatchingTimeout = %v, want 1s default", o.OfferMatchingTimeout)
	}
	if o.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", o.LogLevel, "info")
	}
}

func TestParseOverridesDefaultsFromFlags(t *testing.T) {
	var o options.Options
	fs := pflag.NewFlagSet("launchd", pflag.ContinueOnError)
	o.AddFlags(fs)

	if err := o.Parse(fs, "--offer-matching-timeout=3s", "--log-level=debug"); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if o.OfferMatchingTimeout != 3*time.Second {
		t.Errorf("OfferMatchingTimeout = %v, want 3s", o.OfferMatchingTimeout)
	}
	if o.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", o.LogLevel, "debug")
	}
}

func TestParseRejectsInvalidLogLevel(t *testing.T) {
	var o options.Options
	fs := pflag.NewFlagSet("launchd", pflag.ContinueOnError)
	o.AddFlags(fs)

	if err := o.Parse(fs, "--log-level=verbose"); err == nil {
		t.Errorf("Parse() with an invalid log level error = nil, want an error")
	}
}

func TestParseRejectsNonPositiveDeadlines(t *testing.T) {
	var o options.Options
	fs := pflag.NewFlagSet("launchd", pflag.ContinueOnError)
	o.AddFlags(fs)

	if err := o.Parse(fs, "--offer-matching-timeout=0s"); err == nil {
		t.Errorf("Parse() with a zero offer-matching-timeout error = nil, want an error")
	}
}

func TestToContextAndFromContextRoundTrip(t *testing.T) {
	o := &options.Options{LogLevel: "debug"}
	ctx := options.ToContext(context.Background(), o)

	got := options.FromContext(ctx)
	if got != o {
		t.Errorf("FromContext() = %p, want the same pointer stashed by ToContext() %p", got, o)
	}
}

func TestFromContextWithoutStashedOptionsReturnsZeroValue(t *testing.T) {
	got := options.FromContext(context.Background())
	if got == nil {
		t.Fatalf("FromContext() without a stashed value = nil, want a zero-value *Options")
	}
	if got.LogLevel != "" {
		t.Errorf("LogLevel = %q, want empty zero value", got.LogLevel)
	}
}
