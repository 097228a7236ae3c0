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

package app

import (
	"encoding/json"
	"net/http"

	"github.com/launchd/launchd/internal/model"
)

// AdminHandler returns a minimal add/purge/list surface over the launch
// queue, encoded as plain JSON over net/http. The queue's count operation
// has no route here. This is intentionally not
// the REST API spec.md §1 excludes (no auth, no framing, no versioning) —
// it exists only so the administrative operations are reachable without
// requiring a caller to link this package directly.
func (a *App) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/apps/add", a.handleAdd)
	mux.HandleFunc("/apps/purge", a.handlePurge)
	mux.HandleFunc("/apps/list", a.handleList)
	return mux
}

func (a *App) handleAdd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		App   model.App `json:"app"`
		Count int       `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	qtc := a.Queue.Add(r.Context(), body.App, body.Count)
	writeJSON(w, qtc)
}

func (a *App) handlePurge(w http.ResponseWriter, r *http.Request) {
	appID := r.URL.Query().Get("appId")
	if appID == "" {
		http.Error(w, "missing appId", http.StatusBadRequest)
		return
	}
	if err := a.Queue.Purge(r.Context(), appID); err != nil {
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *App) handleList(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.Queue.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
		return
	}
	writeJSON(w, snapshot)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
