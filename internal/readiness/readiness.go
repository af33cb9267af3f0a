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

// Package readiness is the Status/Readiness Subsystem (spec §4.4): the
// resource status state machine — active, pending and disabled freely
// transition to one another, only active satisfies a waiter — and the
// concurrent waiter the Allocation Engine blocks on at finalize time.
// The actual blocking primitive and the pub/sub bridge that releases it
// across engine instances live in internal/store; this package is the
// public-facing entry point the management API and the engine call
// through, so neither has to know the event-map plumbing underneath.
package readiness

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"go.corp.nvidia.com/qrm/internal/metrics"
	"go.corp.nvidia.com/qrm/internal/qrm"
	"go.corp.nvidia.com/qrm/internal/store"
)

// ErrInvalidStatus is returned by SetStatus for any value other than
// active, pending or disabled.
var ErrInvalidStatus = errors.New("readiness: invalid resource status")

// Subsystem wraps a Store with the status state-machine invariant and a
// concurrent multi-resource waiter.
type Subsystem struct {
	store   store.Store
	metrics *metrics.Recorder
}

// New returns a Subsystem backed by st with metrics disabled.
func New(st store.Store) *Subsystem {
	return &Subsystem{store: st}
}

// NewWithMetrics returns a Subsystem backed by st that reports every
// status transition through rec.
func NewWithMetrics(st store.Store, rec *metrics.Recorder) *Subsystem {
	return &Subsystem{store: st, metrics: rec}
}

// SetStatus validates status against the three-value state machine
// before applying it. Every pair of values is a legal transition (spec
// §4.4: "active ⇄ pending ⇄ disabled, any pair allowed") — the only
// invariant worth enforcing here is that the value itself is one of
// the three.
func (s *Subsystem) SetStatus(ctx context.Context, name string, status qrm.ResourceStatus) error {
	if !qrm.IsValidResourceStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	prev, err := s.store.GetStatus(ctx, name)
	if err != nil {
		return err
	}
	if err := s.store.SetStatus(ctx, name, status); err != nil {
		return err
	}
	s.metrics.ResourceStatusChanged(ctx, string(prev), string(status))
	return nil
}

// Await blocks until every named resource is active, waiting on them
// concurrently rather than one at a time — each resource's readiness
// is independent, so there is no reason to serialize the wait.
func (s *Subsystem) Await(ctx context.Context, names []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			return s.store.WaitForResourceActiveStatus(gctx, name)
		})
	}
	return g.Wait()
}
