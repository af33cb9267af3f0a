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

package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.corp.nvidia.com/qrm/internal/qrm"
	"go.corp.nvidia.com/qrm/internal/store"
)

func TestSetStatusRejectsInvalidValue(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	s.AddResource(ctx, qrm.Resource{Name: "gpu0", Status: qrm.StatusActive})

	sub := New(s)
	err := sub.SetStatus(ctx, "gpu0", qrm.ResourceStatus("quarantined"))
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("SetStatus() error = %v, want ErrInvalidStatus", err)
	}
}

func TestSetStatusAppliesValidTransition(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	s.AddResource(ctx, qrm.Resource{Name: "gpu0", Status: qrm.StatusActive})

	sub := New(s)
	if err := sub.SetStatus(ctx, "gpu0", qrm.StatusPending); err != nil {
		t.Fatal(err)
	}
	r, err := s.GetByName(ctx, "gpu0")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != qrm.StatusPending {
		t.Fatalf("gpu0.Status = %q, want pending", r.Status)
	}
}

func TestAwaitReturnsOnceAllResourcesAreActive(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	s.AddResource(ctx, qrm.Resource{Name: "gpu0", Status: qrm.StatusPending})
	s.AddResource(ctx, qrm.Resource{Name: "gpu1", Status: qrm.StatusActive})

	sub := New(s)
	done := make(chan error, 1)
	go func() {
		done <- sub.Await(ctx, []string{"gpu0", "gpu1"})
	}()

	select {
	case <-done:
		t.Fatal("Await returned before gpu0 went active")
	case <-time.After(20 * time.Millisecond):
	}

	if err := sub.SetStatus(ctx, "gpu0", qrm.StatusActive); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Await() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Await never returned after gpu0 went active")
	}
}

func TestAwaitPropagatesContextCancellation(t *testing.T) {
	s := store.NewMemStore()
	s.AddResource(context.Background(), qrm.Resource{Name: "gpu0", Status: qrm.StatusPending})

	ctx, cancel := context.WithCancel(context.Background())
	sub := New(s)

	done := make(chan error, 1)
	go func() { done <- sub.Await(ctx, []string{"gpu0"}) }()
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Await() returned nil error after context cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("Await never returned after context cancellation")
	}
}
