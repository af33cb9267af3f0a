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

// Package store defines the Resource Store contract (spec §4.1) that the
// Allocation Engine is written against, and the production Redis-backed
// implementation of it. All methods are safe for concurrent use; the
// store itself provides whatever serialization a given operation needs.
package store

import (
	"context"
	"errors"
	"time"

	"go.corp.nvidia.com/qrm/internal/qrm"
)

// ErrNotFound is returned when a lookup by name/token finds nothing.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyExists names the "target already present" condition. No
// store operation returns it: AddResource and GenerateToken report an
// existing target with a false result and a nil error.
var ErrAlreadyExists = errors.New("store: already exists")

// Store is the Resource Store interface the Allocation Engine, the
// Readiness Subsystem, and the HTTP adapters are written against. A
// single instance may be shared by multiple engine processes; cross-
// instance coordination for resource-status changes happens over the
// store's pub/sub channel, which RedisStore subscribes to internally
// (the interface itself has no subscribe method).
type Store interface {
	// Resources
	AddResource(ctx context.Context, r qrm.Resource) (bool, error)
	RemoveResource(ctx context.Context, name string) (bool, error)
	GetAll(ctx context.Context) ([]qrm.Resource, error)
	GetAllAsMap(ctx context.Context) (map[string]qrm.Resource, error)
	GetByName(ctx context.Context, name string) (qrm.Resource, error)
	GetByNames(ctx context.Context, names []string) ([]qrm.Resource, error)
	IsExists(ctx context.Context, name string) (bool, error)
	SetStatus(ctx context.Context, name string, status qrm.ResourceStatus) error
	GetStatus(ctx context.Context, name string) (qrm.ResourceStatus, error)
	GetType(ctx context.Context, name string) (string, error)

	// Queues
	AddJob(ctx context.Context, resourceName string, job qrm.Job) error
	GetJobs(ctx context.Context, resourceName string) ([]qrm.Job, error)
	GetActiveJob(ctx context.Context, resourceName string) (qrm.Job, error)
	GetJobForResourceByToken(ctx context.Context, resourceName, token string) (qrm.Job, bool, error)
	RemoveJob(ctx context.Context, token string, resourceNames []string) ([]string, error)

	// Tokens
	GenerateToken(ctx context.Context, token string, resources []qrm.Resource) (bool, error)
	DestroyToken(ctx context.Context, token string) error
	GetTokenResources(ctx context.Context, token string) ([]qrm.Resource, error)
	SetTokenForResource(ctx context.Context, resourceName, token string) error
	GetActiveTokenFromUserToken(ctx context.Context, seed string) (string, bool, error)
	SetActiveTokenForUserToken(ctx context.Context, seed, active string) error
	IsRequestFilled(ctx context.Context, token string) (bool, error)

	// Requests
	AddResourcesRequest(ctx context.Context, token string, req qrm.OpenRequest) error
	SaveOrigResourcesReq(ctx context.Context, token string, orig qrm.OrigRequest) error
	GetOpenRequests(ctx context.Context) (map[string]qrm.OpenRequest, error)
	GetOpenRequestByToken(ctx context.Context, token string) (qrm.OpenRequest, bool, error)
	GetOrigRequest(ctx context.Context, token string) (qrm.OrigRequest, bool, error)
	UpdateOpenRequest(ctx context.Context, token string, req qrm.OpenRequest) error
	RemoveOpenRequest(ctx context.Context, token string) error

	// Partial fill / last response
	PartialFillRequest(ctx context.Context, token, resourceName string) error
	GetPartialFill(ctx context.Context, token string) ([]string, error)
	RemovePartiallyFillRequest(ctx context.Context, token string) error
	GetReqRespForToken(ctx context.Context, token string) (qrm.ResourcesRequestResponse, bool, error)
	SetReqResp(ctx context.Context, token string, resp qrm.ResourcesRequestResponse) error

	// Tags
	AddTagToResource(ctx context.Context, resourceName, tag string) error
	RemoveTagFromResource(ctx context.Context, resourceName, tag string) error
	RemoveAllTagsFromResource(ctx context.Context, resourceName string) error
	GetResourcesNamesByTags(ctx context.Context, tags []string) ([]string, error)

	// Readiness waiter (bridged to the pub/sub channel, see internal/readiness)
	WaitForResourceActiveStatus(ctx context.Context, resourceName string) error

	// Bookkeeping
	UpdateTokenLastUpdateTime(ctx context.Context, token string) error
	GetAllTokensLastUpdate(ctx context.Context) (map[string]time.Time, error)
	DeleteTokenLastUpdateTime(ctx context.Context, token string) error
	AddAutoManagedToken(ctx context.Context, token string) error
	GetAllAutoManagedTokens(ctx context.Context) ([]string, error)
	DeleteAutoManagedToken(ctx context.Context, token string) error
	GetAllOpenTokens(ctx context.Context) ([]string, error)

	// Server status (supplemental, SPEC_FULL.md §C.1)
	SetServerStatus(ctx context.Context, status string) error
	GetServerStatus(ctx context.Context) (string, error)

	Close() error
}

// ResourceChangeChannel is the pub/sub channel name resource-status
// changes are published on, per spec §6.
const ResourceChangeChannel = "channel:res_change_event"

// ServerStatusActive and ServerStatusDisabled are the allowed values
// for SetServerStatus/GetServerStatus.
const (
	ServerStatusActive   = "active"
	ServerStatusDisabled = "disabled"
)

// IsValidServerStatus reports whether s is an allowed server status.
func IsValidServerStatus(s string) bool {
	return s == ServerStatusActive || s == ServerStatusDisabled
}
