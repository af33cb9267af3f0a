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
	"testing"
	"time"

	"go.corp.nvidia.com/qrm/internal/qrm"
	"go.corp.nvidia.com/qrm/internal/store"
)

func TestWatcherPollBroadcastsOnlyOnStatusChange(t *testing.T) {
	st := store.NewMemStore()
	ctx := context.Background()

	if _, err := st.AddResource(ctx, qrm.Resource{Name: "gpu0", Type: "gpu", Status: qrm.StatusActive}); err != nil {
		t.Fatal(err)
	}

	hub := NewHub(nil)
	events := make(chan StatusChangeEvent, 8)
	hub.broadcast = events // intercept without running Hub.Run, keeping the test synchronous

	w := NewWatcher(st, hub, time.Hour)

	w.poll(ctx)
	select {
	case ev := <-events:
		if ev.ResourceName != "gpu0" || ev.Status != string(qrm.StatusActive) {
			t.Fatalf("unexpected first event: %+v", ev)
		}
	default:
		t.Fatal("expected a broadcast on first poll")
	}

	w.poll(ctx)
	select {
	case ev := <-events:
		t.Fatalf("expected no broadcast on unchanged poll, got %+v", ev)
	default:
	}

	if err := st.SetStatus(ctx, "gpu0", qrm.StatusPending); err != nil {
		t.Fatal(err)
	}
	w.poll(ctx)
	select {
	case ev := <-events:
		if ev.Status != string(qrm.StatusPending) {
			t.Fatalf("expected pending transition, got %+v", ev)
		}
	default:
		t.Fatal("expected a broadcast after status change")
	}
}

func TestWatcherForgetsRemovedResources(t *testing.T) {
	st := store.NewMemStore()
	ctx := context.Background()

	if _, err := st.AddResource(ctx, qrm.Resource{Name: "gpu0", Type: "gpu", Status: qrm.StatusActive}); err != nil {
		t.Fatal(err)
	}

	hub := NewHub(nil)
	hub.broadcast = make(chan StatusChangeEvent, 8)
	w := NewWatcher(st, hub, time.Hour)
	w.poll(ctx)

	if _, err := st.RemoveResource(ctx, "gpu0"); err != nil {
		t.Fatal(err)
	}
	w.poll(ctx)

	if len(w.last) != 0 {
		t.Fatalf("expected removed resource to be forgotten, last = %+v", w.last)
	}
}
