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

// Package qrm holds the core data model of the queue-based resource
// manager: resources, job-queue entries, requests/responses and tokens.
// Nothing in this package talks to a store or a network; it is pure
// types and the pure functions that operate on them.
package qrm

import "fmt"

// ResourceStatus is the state of a single Resource.
type ResourceStatus string

const (
	StatusActive   ResourceStatus = "active"
	StatusPending  ResourceStatus = "pending"
	StatusDisabled ResourceStatus = "disabled"
)

// IsValidResourceStatus reports whether s is one of the three allowed
// resource statuses.
func IsValidResourceStatus(s ResourceStatus) bool {
	switch s {
	case StatusActive, StatusPending, StatusDisabled:
		return true
	default:
		return false
	}
}

// Resource is a uniquely-named arbitrable unit. Equality is by Name alone.
type Resource struct {
	Name   string         `json:"name"`
	Type   string         `json:"type"`
	Status ResourceStatus `json:"status"`
	Token  string         `json:"token"`
	Tags   []string        `json:"tags"`
}

// HasTag reports whether the resource carries the given tag.
func (r Resource) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends tag if not already present. Returns the (possibly)
// updated resource and whether a change was made.
func (r Resource) AddTag(tag string) (Resource, bool) {
	if r.HasTag(tag) {
		return r, false
	}
	r.Tags = append(append([]string{}, r.Tags...), tag)
	return r, true
}

// RemoveTag removes tag if present. Returns the (possibly) updated
// resource and whether a change was made.
func (r Resource) RemoveTag(tag string) (Resource, bool) {
	out := make([]string, 0, len(r.Tags))
	removed := false
	for _, t := range r.Tags {
		if t == tag {
			removed = true
			continue
		}
		out = append(out, t)
	}
	r.Tags = out
	return r, removed
}

// Job is a FIFO queue entry for a resource. An empty Job{} is the
// sentinel that always sits at the tail of the queue.
type Job struct {
	Token string `json:"token"`
}

// IsSentinel reports whether j is the empty tail marker.
func (j Job) IsSentinel() bool {
	return j.Token == ""
}

// resourceNamePrefix namespaces per-resource queue keys in the store,
// mirroring the original Python db_name() convention.
const resourceNamePrefix = "resource_name_"

// ResourceDBName returns the store key for a resource's job queue.
func ResourceDBName(name string) string {
	return fmt.Sprintf("%s%s", resourceNamePrefix, name)
}
