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

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	controllerruntime "sigs.k8s.io/controller-runtime"
	crzap "sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/launchd/launchd/internal/app"
	"github.com/launchd/launchd/internal/clock"
	"github.com/launchd/launchd/internal/options"
	"github.com/launchd/launchd/internal/tracker"
)

var setupLog = controllerruntime.Log.WithName("setup")

func main() {
	opts := &options.Options{}
	opts.AddFlags(pflag.CommandLine)
	if err := opts.Parse(pflag.CommandLine, os.Args[1:]...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	level := zapcore.InfoLevel
	if opts.LogLevel == "debug" {
		level = zapcore.DebugLevel
	}
	controllerruntime.SetLogger(crzap.New(crzap.UseDevMode(opts.LogLevel == "debug"), crzap.Level(level)))

	ctx := controllerruntime.SetupSignalHandler()
	ctx = options.ToContext(ctx, opts)

	// The resource-master driver and the REST/telemetry transport that
	// would call a.OfferReceived / a.StatusReceived are out of scope
	// (spec.md §1); with a nil driver every launch attempt is rejected as
	// "driver unavailable", declines go nowhere, and no status ever updates
	// a launcher, which is enough to run the composition.
	a := app.New(ctx, clock.RealClock(), tracker.NewMemStore(), nil, opts)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", opts.MetricsPort)
		setupLog.Info("serving metrics", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			setupLog.Error(err, "metrics server exited")
		}
	}()

	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		addr := fmt.Sprintf(":%d", opts.HealthProbePort)
		setupLog.Info("serving health probe", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			setupLog.Error(err, "health probe server exited")
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", opts.AdminPort)
		setupLog.Info("serving admin API", "addr", addr)
		if err := http.ListenAndServe(addr, a.AdminHandler()); err != nil {
			setupLog.Error(err, "admin server exited")
		}
	}()

	zap.L().Info("launchd started")
	<-ctx.Done()
	setupLog.Info("shutting down")
}
