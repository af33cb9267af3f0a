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

package qrm

import (
	"context"
	"testing"
	"time"
)

func TestEventWaitBlocksUntilSet(t *testing.T) {
	e := NewEvent()
	done := make(chan Reason, 1)

	go func() {
		done <- e.Wait(context.Background())
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Set was called")
	case <-time.After(20 * time.Millisecond):
	}

	e.Set(ReasonCanceled)

	select {
	case r := <-done:
		if r != ReasonCanceled {
			t.Fatalf("got reason %q, want %q", r, ReasonCanceled)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after Set")
	}
}

func TestEventClearThenWaitBlocksAgain(t *testing.T) {
	e := NewEvent()
	e.Set(ReasonNotValid)
	e.Clear()

	if r := e.Reason(); r != ReasonNotValid {
		t.Fatalf("Clear must not erase the sticky reason, got %q", r)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r := e.Wait(ctx)
	if r != ReasonNotValid {
		t.Fatalf("Wait after Clear timed out with reason %q, want the prior reason preserved", r)
	}
	if ctx.Err() == nil {
		t.Fatal("expected Wait to time out, since Clear put the event back in the unsignaled state")
	}
}

func TestEventMapSeedIsPreSet(t *testing.T) {
	m := NewEventMap()
	m.Seed("tok1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	r := m.GetOrCreate("tok1").Wait(ctx)
	if ctx.Err() != nil {
		t.Fatal("a seeded event must already be set so recovered workers resume immediately")
	}
	if r != ReasonNone {
		t.Fatalf("seeded event should carry no reason, got %q", r)
	}
}
