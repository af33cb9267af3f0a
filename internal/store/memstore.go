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

package store

import (
	"context"
	"sync"
	"time"

	"go.corp.nvidia.com/qrm/internal/qrm"
)

// MemStore is an in-process Store used by engine unit tests. It mirrors
// RedisStore's semantics exactly (including the tail-sentinel queue
// convention and the readiness event map) without a network hop.
type MemStore struct {
	mu sync.Mutex

	resources map[string]qrm.Resource
	queues    map[string][]qrm.Job

	tokenResources map[string][]qrm.Resource
	activeTokens   map[string]string

	openRequests map[string]qrm.OpenRequest
	origRequests map[string]qrm.OrigRequest
	partialFills map[string][]string
	lastRespones map[string]qrm.ResourcesRequestResponse

	tagIndex map[string][]string

	lastUpdate    map[string]time.Time
	managedTokens map[string]bool

	serverStatus string

	readiness *qrm.EventMap
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		resources:      make(map[string]qrm.Resource),
		queues:         make(map[string][]qrm.Job),
		tokenResources: make(map[string][]qrm.Resource),
		activeTokens:   make(map[string]string),
		openRequests:   make(map[string]qrm.OpenRequest),
		origRequests:   make(map[string]qrm.OrigRequest),
		partialFills:   make(map[string][]string),
		lastRespones:   make(map[string]qrm.ResourcesRequestResponse),
		tagIndex:       make(map[string][]string),
		lastUpdate:     make(map[string]time.Time),
		managedTokens:  make(map[string]bool),
		serverStatus:   ServerStatusActive,
		readiness:      qrm.NewEventMap(),
	}
}

func (s *MemStore) AddResource(_ context.Context, r qrm.Resource) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[r.Name]; ok {
		return false, nil
	}
	s.resources[r.Name] = r
	s.queues[r.Name] = []qrm.Job{{}}
	return true, nil
}

func (s *MemStore) RemoveResource(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[name]; !ok {
		return false, nil
	}
	delete(s.resources, name)
	delete(s.queues, name)
	return true, nil
}

func (s *MemStore) GetAll(ctx context.Context) ([]qrm.Resource, error) {
	m, err := s.GetAllAsMap(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]qrm.Resource, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	return out, nil
}

func (s *MemStore) GetAllAsMap(_ context.Context) (map[string]qrm.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]qrm.Resource, len(s.resources))
	for k, v := range s.resources {
		out[k] = v
	}
	return out, nil
}

func (s *MemStore) GetByName(_ context.Context, name string) (qrm.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[name]
	if !ok {
		return qrm.Resource{}, ErrNotFound
	}
	return r, nil
}

func (s *MemStore) GetByNames(ctx context.Context, names []string) ([]qrm.Resource, error) {
	out := make([]qrm.Resource, 0, len(names))
	for _, n := range names {
		r, err := s.GetByName(ctx, n)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *MemStore) IsExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.resources[name]
	return ok, nil
}

func (s *MemStore) SetStatus(_ context.Context, name string, status qrm.ResourceStatus) error {
	s.mu.Lock()
	r, ok := s.resources[name]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	r.Status = status
	s.resources[name] = r
	s.mu.Unlock()

	if status == qrm.StatusActive {
		s.readiness.Set(name, qrm.ReasonNone)
	}
	return nil
}

func (s *MemStore) GetStatus(_ context.Context, name string) (qrm.ResourceStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[name]
	if !ok {
		return "", ErrNotFound
	}
	return r.Status, nil
}

func (s *MemStore) GetType(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[name]
	if !ok {
		return "", ErrNotFound
	}
	return r.Type, nil
}

func (s *MemStore) AddJob(_ context.Context, resourceName string, job qrm.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[resourceName]
	s.queues[resourceName] = append([]qrm.Job{job}, q...)
	return nil
}

func (s *MemStore) GetJobs(_ context.Context, resourceName string) ([]qrm.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[resourceName]
	out := make([]qrm.Job, len(q))
	copy(out, q)
	return out, nil
}

func (s *MemStore) GetActiveJob(ctx context.Context, resourceName string) (qrm.Job, error) {
	jobs, err := s.GetJobs(ctx, resourceName)
	if err != nil {
		return qrm.Job{}, err
	}
	if len(jobs) < 2 {
		return qrm.Job{}, nil
	}
	return jobs[len(jobs)-2], nil
}

func (s *MemStore) GetJobForResourceByToken(_ context.Context, resourceName, token string) (qrm.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.queues[resourceName] {
		if j.Token == token {
			return j, true, nil
		}
	}
	return qrm.Job{}, false, nil
}

func (s *MemStore) RemoveJob(_ context.Context, token string, resourceNames []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := resourceNames
	if len(names) == 0 {
		names = make([]string, 0, len(s.queues))
		for n := range s.queues {
			names = append(names, n)
		}
	}

	var affected []string
	for _, name := range names {
		q := s.queues[name]
		idx := -1
		for i, j := range q {
			if j.Token == token {
				idx = i
				break
			}
		}
		if idx == -1 {
			continue
		}
		s.queues[name] = append(q[:idx], q[idx+1:]...)
		affected = append(affected, name)
	}
	return affected, nil
}

func (s *MemStore) GenerateToken(_ context.Context, token string, resources []qrm.Resource) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokenResources[token]; ok {
		return false, nil
	}
	cp := make([]qrm.Resource, len(resources))
	copy(cp, resources)
	s.tokenResources[token] = cp
	for _, r := range resources {
		res := s.resources[r.Name]
		res.Token = token
		s.resources[r.Name] = res
	}
	return true, nil
}

func (s *MemStore) DestroyToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokenResources, token)
	return nil
}

func (s *MemStore) GetTokenResources(_ context.Context, token string) ([]qrm.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenResources[token], nil
}

func (s *MemStore) SetTokenForResource(_ context.Context, resourceName, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[resourceName]
	if !ok {
		return ErrNotFound
	}
	r.Token = token
	s.resources[resourceName] = r
	return nil
}

func (s *MemStore) GetActiveTokenFromUserToken(_ context.Context, seed string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, ok := s.activeTokens[seed]
	return active, ok, nil
}

func (s *MemStore) SetActiveTokenForUserToken(_ context.Context, seed, active string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTokens[seed] = active
	return nil
}

func (s *MemStore) IsRequestFilled(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokenResources[token]; !ok {
		return false, nil
	}
	_, open := s.openRequests[token]
	return !open, nil
}

func (s *MemStore) AddResourcesRequest(ctx context.Context, token string, req qrm.OpenRequest) error {
	return s.UpdateOpenRequest(ctx, token, req)
}

func (s *MemStore) SaveOrigResourcesReq(_ context.Context, token string, orig qrm.OrigRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.origRequests[token] = orig
	return nil
}

func (s *MemStore) GetOpenRequests(_ context.Context) (map[string]qrm.OpenRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]qrm.OpenRequest, len(s.openRequests))
	for k, v := range s.openRequests {
		out[k] = v.Clone()
	}
	return out, nil
}

func (s *MemStore) GetOpenRequestByToken(_ context.Context, token string) (qrm.OpenRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.openRequests[token]
	return req.Clone(), ok, nil
}

func (s *MemStore) GetOrigRequest(_ context.Context, token string) (qrm.OrigRequest, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orig, ok := s.origRequests[token]
	return orig, ok, nil
}

func (s *MemStore) UpdateOpenRequest(_ context.Context, token string, req qrm.OpenRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openRequests[token] = req.Clone()
	return nil
}

func (s *MemStore) RemoveOpenRequest(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.openRequests, token)
	return nil
}

func (s *MemStore) PartialFillRequest(_ context.Context, token, resourceName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.partialFills[token] {
		if n == resourceName {
			return nil
		}
	}
	s.partialFills[token] = append(s.partialFills[token], resourceName)
	return nil
}

func (s *MemStore) GetPartialFill(_ context.Context, token string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.partialFills[token]))
	copy(out, s.partialFills[token])
	return out, nil
}

func (s *MemStore) RemovePartiallyFillRequest(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.partialFills, token)
	return nil
}

func (s *MemStore) GetReqRespForToken(_ context.Context, token string) (qrm.ResourcesRequestResponse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.lastRespones[token]
	return resp, ok, nil
}

func (s *MemStore) SetReqResp(_ context.Context, token string, resp qrm.ResourcesRequestResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRespones[token] = resp
	return nil
}

func (s *MemStore) AddTagToResource(_ context.Context, resourceName, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[resourceName]
	if !ok {
		return ErrNotFound
	}
	updated, changed := r.AddTag(tag)
	if !changed {
		return nil
	}
	s.resources[resourceName] = updated
	s.tagIndex[tag] = appendUnique(s.tagIndex[tag], resourceName)
	return nil
}

func (s *MemStore) RemoveTagFromResource(_ context.Context, resourceName, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[resourceName]
	if !ok {
		return ErrNotFound
	}
	updated, changed := r.RemoveTag(tag)
	if !changed {
		return nil
	}
	s.resources[resourceName] = updated
	s.tagIndex[tag] = removeValue(s.tagIndex[tag], resourceName)
	return nil
}

func (s *MemStore) RemoveAllTagsFromResource(ctx context.Context, resourceName string) error {
	r, err := s.GetByName(ctx, resourceName)
	if err != nil {
		return err
	}
	for _, tag := range append([]string{}, r.Tags...) {
		if err := s.RemoveTagFromResource(ctx, resourceName, tag); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemStore) GetResourcesNamesByTags(_ context.Context, tags []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, tag := range tags {
		for _, n := range s.tagIndex[tag] {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func (s *MemStore) WaitForResourceActiveStatus(ctx context.Context, resourceName string) error {
	for {
		status, err := s.GetStatus(ctx, resourceName)
		if err != nil {
			return err
		}
		if status == qrm.StatusActive {
			return nil
		}
		event := s.readiness.GetOrCreate(resourceName)
		event.Clear()

		status, err = s.GetStatus(ctx, resourceName)
		if err != nil {
			return err
		}
		if status == qrm.StatusActive {
			return nil
		}

		event.Wait(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *MemStore) UpdateTokenLastUpdateTime(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate[token] = time.Now()
	return nil
}

func (s *MemStore) GetAllTokensLastUpdate(_ context.Context) (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.lastUpdate))
	for k, v := range s.lastUpdate {
		out[k] = v
	}
	return out, nil
}

func (s *MemStore) DeleteTokenLastUpdateTime(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastUpdate, token)
	return nil
}

func (s *MemStore) AddAutoManagedToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.managedTokens[token] = true
	return nil
}

func (s *MemStore) GetAllAutoManagedTokens(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.managedTokens))
	for t := range s.managedTokens {
		out = append(out, t)
	}
	return out, nil
}

func (s *MemStore) DeleteAutoManagedToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.managedTokens, token)
	return nil
}

func (s *MemStore) GetAllOpenTokens(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for k := range s.openRequests {
		add(k)
	}
	for k := range s.tokenResources {
		add(k)
	}
	for k := range s.partialFills {
		add(k)
	}
	return out, nil
}

func (s *MemStore) SetServerStatus(_ context.Context, status string) error {
	if !IsValidServerStatus(status) {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverStatus = status
	return nil
}

func (s *MemStore) GetServerStatus(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverStatus, nil
}

func (s *MemStore) Close() error { return nil }

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

func removeValue(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

var _ Store = (*MemStore)(nil)
