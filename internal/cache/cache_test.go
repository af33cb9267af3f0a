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

package cache

import (
	"testing"
	"time"

	"go.corp.nvidia.com/qrm/internal/qrm"
)

func TestKeyedCacheGetSetInvalidate(t *testing.T) {
	c := NewKeyedCache[int](10, time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("a", 42)
	if v, ok := c.Get("a"); !ok || v != 42 {
		t.Fatalf("Get(a) = (%d, %v), want (42, true)", v, ok)
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestKeyedCacheExpiresEntries(t *testing.T) {
	c := NewKeyedCache[string](10, 10*time.Millisecond)
	c.Set("k", "v")

	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected hit immediately after set")
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected miss after TTL expiry")
	}
}

func TestResponseCacheOnlyStoresTerminalResponses(t *testing.T) {
	rc := NewResponseCache(10, time.Minute)

	rc.Set("tok1", qrm.ResourcesRequestResponse{Token: "tok1", RequestComplete: false})
	if _, ok := rc.Get("tok1"); ok {
		t.Fatal("expected in-flight response not to be cached")
	}

	final := qrm.ResourcesRequestResponse{Token: "tok1", RequestComplete: true, Names: []string{"gpu0"}}
	rc.Set("tok1", final)
	cached, ok := rc.Get("tok1")
	if !ok || cached.Token != "tok1" || len(cached.Names) != 1 {
		t.Fatalf("Get(tok1) = (%+v, %v), want terminal response hit", cached, ok)
	}

	rc.Invalidate("tok1")
	if _, ok := rc.Get("tok1"); ok {
		t.Fatal("expected miss after invalidate")
	}
}

func TestResponseCacheNilReceiverIsSafe(t *testing.T) {
	var rc *ResponseCache
	rc.Set("tok1", qrm.ResourcesRequestResponse{Token: "tok1", RequestComplete: true})
	if _, ok := rc.Get("tok1"); ok {
		t.Fatal("nil ResponseCache must always miss")
	}
	rc.Invalidate("tok1")
}
