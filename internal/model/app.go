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

import "time"

// VersionInfo tracks when an App's desired scale and its configuration were
// last touched, independently of each other.
type VersionInfo struct {
	LastScalingAt      time.Time
	LastConfigChangeAt time.Time
}

// Constraint is an opaque placement constraint evaluated by the injected
// TaskFactory. The launch pipeline never interprets constraints itself; it
// only uses their presence to decide whether a terminated task should
// trigger an offer revival (spec.md §4.1).
type Constraint struct {
	Field     string
	Operator  string
	Parameter string
}

// App is the application definition the launch pipeline tracks. Two Apps
// with equal ID but different fields besides Instances/Version/VersionInfo
// represent a configuration change (see IsUpgrade).
type App struct {
	ID          string
	Instances   int
	Version     time.Time
	VersionInfo VersionInfo
	Constraints []Constraint
	Command     string
	CPUs        float64
	MemMB       float64
	DiskMB      float64
	Ports       int
}

// HasConstraints reports whether the app carries any placement constraint,
// used by the launcher to decide whether a terminal status update should
// revive offers (spec.md §4.1, §8 property 6).
func (a App) HasConstraints() bool {
	return len(a.Constraints) > 0
}

// IsUpgrade reports whether newApp represents a configuration change versus
// a, as opposed to a pure scaling change. Per spec.md §3, two apps with
// equal ID but different fields other than Instances/Version/VersionInfo
// constitute a configuration change.
func (a App) IsUpgrade(newApp App) bool {
	if a.ID != newApp.ID {
		return false
	}
	if a.Command != newApp.Command {
		return true
	}
	if a.CPUs != newApp.CPUs || a.MemMB != newApp.MemMB || a.DiskMB != newApp.DiskMB || a.Ports != newApp.Ports {
		return true
	}
	return !constraintsEqual(a.Constraints, newApp.Constraints)
}

func constraintsEqual(a, b []Constraint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
