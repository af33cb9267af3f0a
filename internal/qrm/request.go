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

// ResourcesByName is one named-resource group within a request: a
// candidate list plus how many of them the caller needs.
type ResourcesByName struct {
	Names []string `json:"names"`
	Count int      `json:"count"`
}

// ResourcesByTags is one tag-resource group within a request: any
// resource carrying one of the listed tags is a candidate.
type ResourcesByTags struct {
	Tags  []string `json:"tags"`
	Count int      `json:"count"`
}

// ResourcesRequest is the user-submitted allocation request.
type ResourcesRequest struct {
	Names       []ResourcesByName `json:"names"`
	Tags        []ResourcesByTags `json:"tags"`
	Token       string            `json:"token"`
	AutoManaged bool              `json:"auto_managed"`
}

// IsEmpty reports whether the request names neither names nor tags,
// and carries no token either.
func (r ResourcesRequest) IsEmpty() bool {
	return len(r.Names) == 0 && len(r.Tags) == 0 && r.Token == ""
}

// ResourcesRequestResponse is the user-visible allocation result, both
// while a request is still open and once it is finalized.
type ResourcesRequestResponse struct {
	Names                 []string `json:"names"`
	Token                 string   `json:"token"`
	RequestComplete       bool     `json:"request_complete"`
	IsValid               bool     `json:"is_valid"`
	Message               string   `json:"message"`
	Version               int      `json:"version"`
	IsTokenActiveInQueue  bool     `json:"is_token_active_in_queue"`
}

// OrigRequest preserves the original tag-typed request shape so the
// final response can be re-ordered by tag-group order at finalize time.
type OrigRequest struct {
	Names []ResourcesByName `json:"names"`
	Tags  []ResourcesByTags `json:"tags"`
}

// OpenRequest is the mutable residual of a request being worked:
// one ResourcesByName group per names-worker group (tag groups have
// already been expanded into ByName groups by the time this is
// persisted — see the Allocation Engine's NewRequest step 5).
type OpenRequest struct {
	Groups []ResourcesByName `json:"groups"`
}

// Clone deep-copies the request so callers can mutate group Names/Count
// in place without aliasing the stored copy.
func (o OpenRequest) Clone() OpenRequest {
	groups := make([]ResourcesByName, len(o.Groups))
	for i, g := range o.Groups {
		names := make([]string, len(g.Names))
		copy(names, g.Names)
		groups[i] = ResourcesByName{Names: names, Count: g.Count}
	}
	return OpenRequest{Groups: groups}
}
