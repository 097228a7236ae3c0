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

package tracker

import (
	"context"

	"github.com/launchd/launchd/internal/model"
)

// Store is the asynchronous persistent key-value backend the Task Tracker
// durably writes through. spec.md §1 excludes the backend's own
// implementation from this spec; Store is the interface shape that backend
// must satisfy.
type Store interface {
	Put(ctx context.Context, taskID string, task model.Task) error
	Delete(ctx context.Context, taskID string) error
}
