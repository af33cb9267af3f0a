/*
SPDX-FileCopyrightText: Copyright (c) 2026 NVIDIA CORPORATION & AFFILIATES. All rights reserved.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.

SPDX-License-Identifier: Apache-2.0
*/

package watch

import (
	"context"
	"time"

	"go.corp.nvidia.com/qrm/internal/qrm"
	"go.corp.nvidia.com/qrm/internal/store"
)

// Watcher polls the store's resource table and feeds every observed
// status transition to a Hub. Polling (rather than a direct feed off
// the Redis pub/sub channel already bridging status changes into
// WaitForResourceActiveStatus) keeps this package independent of which
// Store implementation is in use.
type Watcher struct {
	store    store.Store
	hub      *Hub
	interval time.Duration

	last map[string]qrm.ResourceStatus
}

// NewWatcher creates a Watcher that polls st every interval and
// broadcasts changes through hub. A non-positive interval defaults to
// one second.
func NewWatcher(st store.Store, hub *Hub, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{store: st, hub: hub, interval: interval, last: make(map[string]qrm.ResourceStatus)}
}

// Run polls until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	resources, err := w.store.GetAllAsMap(ctx)
	if err != nil {
		return
	}

	seen := make(map[string]bool, len(resources))
	for name, r := range resources {
		seen[name] = true
		if prev, ok := w.last[name]; !ok || prev != r.Status {
			w.last[name] = r.Status
			w.hub.Broadcast(StatusChangeEvent{
				ResourceName: name,
				Status:       string(r.Status),
				Timestamp:    time.Now(),
			})
		}
	}

	for name := range w.last {
		if !seen[name] {
			delete(w.last, name)
		}
	}
}
