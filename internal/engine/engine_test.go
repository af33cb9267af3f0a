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

package engine

import (
	"context"
	"testing"
	"time"

	"go.corp.nvidia.com/qrm/internal/qrm"
	"go.corp.nvidia.com/qrm/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.MemStore) {
	t.Helper()
	s := store.NewMemStore()
	e := New(context.Background(), s, nil, Config{})
	t.Cleanup(e.StopBackend)
	return e, s
}

func awaitComplete(t *testing.T, e *Engine, token string, timeout time.Duration) qrm.ResourcesRequestResponse {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		resp, err := e.GetResourceReqResp(context.Background(), token)
		if err != nil {
			t.Fatalf("GetResourceReqResp(%q) error: %v", token, err)
		}
		if resp.RequestComplete {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("token %q never completed within %s (last response: %+v)", token, timeout, resp)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestEngineSingleNameFill covers S1: a single free resource is granted
// immediately to a by-name request.
func TestEngineSingleNameFill(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)
	s.AddResource(ctx, qrm.Resource{Name: "gpu0", Status: qrm.StatusActive})

	resp, err := e.NewRequest(ctx, qrm.ResourcesRequest{
		Token: "req1",
		Names: []qrm.ResourcesByName{{Names: []string{"gpu0"}, Count: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.IsValid {
		t.Fatalf("NewRequest() invalid: %+v", resp)
	}

	final := awaitComplete(t, e, resp.Token, time.Second)
	if len(final.Names) != 1 || final.Names[0] != "gpu0" {
		t.Fatalf("final.Names = %v, want [gpu0]", final.Names)
	}

	r, err := s.GetByName(ctx, "gpu0")
	if err != nil {
		t.Fatal(err)
	}
	if r.Token != resp.Token {
		t.Fatalf("gpu0.Token = %q, want %q", r.Token, resp.Token)
	}
}

// TestEngineQueueingCancelReleasesNext covers S2: a second requester for
// the same single resource queues, and canceling the first requester's
// active token releases the resource to the second.
func TestEngineQueueingCancelReleasesNext(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)
	s.AddResource(ctx, qrm.Resource{Name: "gpu0", Status: qrm.StatusActive})

	req := qrm.ResourcesByName{Names: []string{"gpu0"}, Count: 1}

	resp1, err := e.NewRequest(ctx, qrm.ResourcesRequest{Token: "req1", Names: []qrm.ResourcesByName{req}})
	if err != nil {
		t.Fatal(err)
	}
	awaitComplete(t, e, resp1.Token, time.Second)

	resp2, err := e.NewRequest(ctx, qrm.ResourcesRequest{Token: "req2", Names: []qrm.ResourcesByName{req}})
	if err != nil {
		t.Fatal(err)
	}
	if resp2.RequestComplete {
		t.Fatalf("req2 should still be queued behind req1, got complete response %+v", resp2)
	}

	e.CancelRequest(ctx, resp1.Token)

	final2 := awaitComplete(t, e, resp2.Token, time.Second)
	if len(final2.Names) != 1 || final2.Names[0] != "gpu0" {
		t.Fatalf("final2.Names = %v, want [gpu0]", final2.Names)
	}

	r, err := s.GetByName(ctx, "gpu0")
	if err != nil {
		t.Fatal(err)
	}
	if r.Token != resp2.Token {
		t.Fatalf("gpu0.Token = %q, want req2's active token %q", r.Token, resp2.Token)
	}
}

// TestEngineValidationMissingTag covers S6: a tag group that matches no
// resource makes the whole request invalid.
func TestEngineValidationMissingTag(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	resp, err := e.NewRequest(ctx, qrm.ResourcesRequest{
		Token: "req1",
		Tags:  []qrm.ResourcesByTags{{Tags: []string{"nonexistent"}, Count: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.IsValid {
		t.Fatalf("expected an invalid response for an unmatched tag, got %+v", resp)
	}
	if resp.Message == "" {
		t.Fatal("expected a non-empty validation message")
	}
}

// TestEngineSeedTokenRefresh covers S5: re-submitting the seed token
// while it still owns its resources refreshes it synchronously instead
// of re-queueing.
func TestEngineSeedTokenRefresh(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)
	s.AddResource(ctx, qrm.Resource{Name: "gpu0", Status: qrm.StatusActive})

	req := qrm.ResourcesRequest{Token: "seed1", Names: []qrm.ResourcesByName{{Names: []string{"gpu0"}, Count: 1}}}
	resp1, err := e.NewRequest(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	awaitComplete(t, e, resp1.Token, time.Second)

	resp2, err := e.NewRequest(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if !resp2.RequestComplete || !resp2.IsValid {
		t.Fatalf("expected an immediate complete+valid refresh, got %+v", resp2)
	}
	if resp2.Token != "seed1" {
		t.Fatalf("refresh response token = %q, want the seed token %q", resp2.Token, "seed1")
	}
	if len(resp2.Names) != 1 || resp2.Names[0] != "gpu0" {
		t.Fatalf("refresh response names = %v, want [gpu0]", resp2.Names)
	}
}

// TestEngineMultipleTagGroupsResolveIndependently covers a request with
// several independent tag groups: each must resolve to its own matching
// resources and fill.
func TestEngineMultipleTagGroupsResolveIndependently(t *testing.T) {
	ctx := context.Background()
	e, s := newTestEngine(t)
	s.AddResource(ctx, qrm.Resource{Name: "gpu0", Status: qrm.StatusActive})
	s.AddTagToResource(ctx, "gpu0", "fast")
	s.AddResource(ctx, qrm.Resource{Name: "cpu0", Status: qrm.StatusActive})
	s.AddTagToResource(ctx, "cpu0", "cheap")

	resp, err := e.NewRequest(ctx, qrm.ResourcesRequest{
		Token: "req1",
		Tags: []qrm.ResourcesByTags{
			{Tags: []string{"fast"}, Count: 1},
			{Tags: []string{"cheap"}, Count: 1},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.IsValid {
		t.Fatalf("expected a valid response, got %+v", resp)
	}

	final := awaitComplete(t, e, resp.Token, time.Second)
	if len(final.Names) != 2 {
		t.Fatalf("final.Names = %v, want both gpu0 and cpu0 granted", final.Names)
	}
}

// TestEngineCancelUnknownTokenIsSafe ensures canceling a token with no
// open request or event never panics and still reports a message.
func TestEngineCancelUnknownTokenIsSafe(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	resp := e.CancelRequest(ctx, "never-seen")
	if resp.Token != "never-seen" {
		t.Fatalf("CancelRequest() token = %q, want never-seen", resp.Token)
	}
	if resp.Message == "" {
		t.Fatal("expected a non-empty cancellation message")
	}
}
