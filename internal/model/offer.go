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

// Resources carries the offer's free capacity, consumed in order as the
// Offer Matcher Manager dispatches one offer across subscribed launchers
// within a round (spec.md §4.2).
type Resources struct {
	CPUs   float64
	MemMB  float64
	DiskMB float64
	Ports  int
}

// Offer is the message delivered by the resource master for a worker's
// free resources.
type Offer struct {
	ID         string
	Resources  Resources
	Attributes map[string]string
	Hostname   string
	SlaveID    string
}

// LaunchSpec is the outbound description of a task handed to the driver's
// launchTasks call; the Task Factory carves it from an Offer.
type LaunchSpec struct {
	TaskID    string
	AppID     string
	Command   string
	Resources Resources
	Hostname  string
	SlaveID   string
}
