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
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"go.corp.nvidia.com/qrm/internal/qrm"
	qrmredis "go.corp.nvidia.com/qrm/utils/redis"
)

// Redis key namespaces, per SPEC_FULL.md / spec.md §6.
const (
	keyAllResources        = "all_resources"
	keyServerStatus        = "qrm_status"
	keyTokenDict           = "token_dict"
	keyActiveTokenDict     = "active_token_dict"
	keyOpenRequests        = "open_requests"
	keyOrigRequests        = "orig_requests"
	keyFillRequests        = "fill_requests"
	keyLastReqResp         = "last_req_resp"
	keyTagResNameMap       = "tag_res_name_map"
	keyTokenLastUpdateTime = "token_last_update_time"
	keyManagedTokensList   = "managed_tokens_list"
)

// RedisStore is the production Store implementation, backed by a single
// Redis keyspace shared by every engine instance. Per-resource job
// queues are Redis lists (LPUSH at the head, sentinel at the tail);
// everything else is a hash or a plain key. Resource-status changes
// are published on ResourceChangeChannel and fed back into a local
// readiness event map, so WaitForResourceActiveStatus released by a
// SetStatus call on *any* instance sharing this Redis.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger

	readiness   *qrm.EventMap
	subCancel   context.CancelFunc
	subDone     chan struct{}
	pollBackoff time.Duration
}

// NewRedisStore wraps an already-connected redis client and starts the
// background subscriber that bridges ResourceChangeChannel into the
// local readiness event map.
func NewRedisStore(ctx context.Context, rc *qrmredis.RedisClient, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	subCtx, cancel := context.WithCancel(context.Background())
	s := &RedisStore{
		client:      rc.Client(),
		logger:      logger,
		readiness:   qrm.NewEventMap(),
		subCancel:   cancel,
		subDone:     make(chan struct{}),
		pollBackoff: 100 * time.Millisecond,
	}
	go s.runSubscriber(subCtx)
	return s
}

// Close stops the background subscriber. It does not close the
// underlying redis client, which the caller owns.
func (s *RedisStore) Close() error {
	s.subCancel()
	<-s.subDone
	return nil
}

func (s *RedisStore) runSubscriber(ctx context.Context) {
	defer close(s.subDone)
	pubsub := s.client.Subscribe(ctx, ResourceChangeChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.readiness.Set(msg.Payload, qrm.ReasonNone)
		}
	}
}

// --- Resources ---

func (s *RedisStore) AddResource(ctx context.Context, r qrm.Resource) (bool, error) {
	exists, err := s.client.HExists(ctx, keyAllResources, r.Name).Result()
	if err != nil {
		return false, fmt.Errorf("check resource exists: %w", err)
	}
	if exists {
		return false, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return false, fmt.Errorf("marshal resource: %w", err)
	}
	if err := s.client.HSet(ctx, keyAllResources, r.Name, data).Err(); err != nil {
		return false, fmt.Errorf("hset resource: %w", err)
	}
	empty, _ := json.Marshal(qrm.Job{})
	if err := s.client.RPush(ctx, qrm.ResourceDBName(r.Name), empty).Err(); err != nil {
		return false, fmt.Errorf("seed sentinel job: %w", err)
	}
	return true, nil
}

func (s *RedisStore) RemoveResource(ctx context.Context, name string) (bool, error) {
	delHash, err := s.client.HDel(ctx, keyAllResources, name).Result()
	if err != nil {
		return false, fmt.Errorf("hdel resource: %w", err)
	}
	if err := s.client.Del(ctx, qrm.ResourceDBName(name)).Err(); err != nil {
		return false, fmt.Errorf("del job queue: %w", err)
	}
	return delHash > 0, nil
}

func (s *RedisStore) GetAllAsMap(ctx context.Context) (map[string]qrm.Resource, error) {
	raw, err := s.client.HGetAll(ctx, keyAllResources).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall resources: %w", err)
	}
	out := make(map[string]qrm.Resource, len(raw))
	for name, data := range raw {
		var r qrm.Resource
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal resource %s: %w", name, err)
		}
		out[name] = r
	}
	return out, nil
}

func (s *RedisStore) GetAll(ctx context.Context) ([]qrm.Resource, error) {
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

func (s *RedisStore) GetByName(ctx context.Context, name string) (qrm.Resource, error) {
	data, err := s.client.HGet(ctx, keyAllResources, name).Result()
	if err == redis.Nil {
		return qrm.Resource{}, ErrNotFound
	}
	if err != nil {
		return qrm.Resource{}, fmt.Errorf("hget resource %s: %w", name, err)
	}
	var r qrm.Resource
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return qrm.Resource{}, fmt.Errorf("unmarshal resource %s: %w", name, err)
	}
	return r, nil
}

func (s *RedisStore) GetByNames(ctx context.Context, names []string) ([]qrm.Resource, error) {
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

func (s *RedisStore) IsExists(ctx context.Context, name string) (bool, error) {
	n, err := s.client.HExists(ctx, keyAllResources, name).Result()
	if err != nil {
		return false, fmt.Errorf("hexists resource %s: %w", name, err)
	}
	return n, nil
}

func (s *RedisStore) SetStatus(ctx context.Context, name string, status qrm.ResourceStatus) error {
	r, err := s.GetByName(ctx, name)
	if err != nil {
		return err
	}
	r.Status = status
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}
	if err := s.client.HSet(ctx, keyAllResources, name, data).Err(); err != nil {
		return fmt.Errorf("hset resource status: %w", err)
	}
	if status == qrm.StatusActive {
		if err := s.client.Publish(ctx, ResourceChangeChannel, name).Err(); err != nil {
			s.logger.Warn("failed to publish resource status change", slog.String("resource", name), slog.String("error", err.Error()))
		}
	}
	return nil
}

func (s *RedisStore) GetStatus(ctx context.Context, name string) (qrm.ResourceStatus, error) {
	r, err := s.GetByName(ctx, name)
	if err != nil {
		return "", err
	}
	return r.Status, nil
}

func (s *RedisStore) GetType(ctx context.Context, name string) (string, error) {
	r, err := s.GetByName(ctx, name)
	if err != nil {
		return "", err
	}
	return r.Type, nil
}

// --- Queues ---

func (s *RedisStore) AddJob(ctx context.Context, resourceName string, job qrm.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.client.LPush(ctx, qrm.ResourceDBName(resourceName), data).Err(); err != nil {
		return fmt.Errorf("lpush job: %w", err)
	}
	return nil
}

func (s *RedisStore) GetJobs(ctx context.Context, resourceName string) ([]qrm.Job, error) {
	raw, err := s.client.LRange(ctx, qrm.ResourceDBName(resourceName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange jobs: %w", err)
	}
	jobs := make([]qrm.Job, len(raw))
	for i, item := range raw {
		if err := json.Unmarshal([]byte(item), &jobs[i]); err != nil {
			return nil, fmt.Errorf("unmarshal job: %w", err)
		}
	}
	return jobs, nil
}

// GetActiveJob returns the job immediately before the tail sentinel,
// i.e. index len-2 in a LPUSH-built, tail-sentinel list — or Job{} if
// the queue is idle (depth 1, only the sentinel).
func (s *RedisStore) GetActiveJob(ctx context.Context, resourceName string) (qrm.Job, error) {
	jobs, err := s.GetJobs(ctx, resourceName)
	if err != nil {
		return qrm.Job{}, err
	}
	if len(jobs) < 2 {
		return qrm.Job{}, nil
	}
	return jobs[len(jobs)-2], nil
}

func (s *RedisStore) GetJobForResourceByToken(ctx context.Context, resourceName, token string) (qrm.Job, bool, error) {
	jobs, err := s.GetJobs(ctx, resourceName)
	if err != nil {
		return qrm.Job{}, false, err
	}
	for _, j := range jobs {
		if j.Token == token {
			return j, true, nil
		}
	}
	return qrm.Job{}, false, nil
}

func (s *RedisStore) RemoveJob(ctx context.Context, token string, resourceNames []string) ([]string, error) {
	names := resourceNames
	if len(names) == 0 {
		all, err := s.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		names = make([]string, len(all))
		for i, r := range all {
			names[i] = r.Name
		}
	}

	var affected []string
	for _, name := range names {
		job, found, err := s.GetJobForResourceByToken(ctx, name, token)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		data, err := json.Marshal(job)
		if err != nil {
			return nil, fmt.Errorf("marshal job: %w", err)
		}
		if err := s.client.LRem(ctx, qrm.ResourceDBName(name), 1, data).Err(); err != nil {
			return nil, fmt.Errorf("lrem job: %w", err)
		}
		affected = append(affected, name)
	}
	return affected, nil
}

// --- Tokens ---

func (s *RedisStore) GenerateToken(ctx context.Context, token string, resources []qrm.Resource) (bool, error) {
	exists, err := s.client.HExists(ctx, keyTokenDict, token).Result()
	if err != nil {
		return false, fmt.Errorf("hexists token: %w", err)
	}
	if exists {
		return false, nil
	}
	data, err := json.Marshal(resources)
	if err != nil {
		return false, fmt.Errorf("marshal token resources: %w", err)
	}
	if err := s.client.HSet(ctx, keyTokenDict, token, data).Err(); err != nil {
		return false, fmt.Errorf("hset token: %w", err)
	}
	for _, r := range resources {
		if err := s.SetTokenForResource(ctx, r.Name, token); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *RedisStore) DestroyToken(ctx context.Context, token string) error {
	if err := s.client.HDel(ctx, keyTokenDict, token).Err(); err != nil {
		return fmt.Errorf("hdel token: %w", err)
	}
	return nil
}

func (s *RedisStore) GetTokenResources(ctx context.Context, token string) ([]qrm.Resource, error) {
	data, err := s.client.HGet(ctx, keyTokenDict, token).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hget token: %w", err)
	}
	var resources []qrm.Resource
	if err := json.Unmarshal([]byte(data), &resources); err != nil {
		return nil, fmt.Errorf("unmarshal token resources: %w", err)
	}
	return resources, nil
}

func (s *RedisStore) SetTokenForResource(ctx context.Context, resourceName, token string) error {
	r, err := s.GetByName(ctx, resourceName)
	if err != nil {
		return err
	}
	r.Token = token
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}
	return s.client.HSet(ctx, keyAllResources, resourceName, data).Err()
}

func (s *RedisStore) GetActiveTokenFromUserToken(ctx context.Context, seed string) (string, bool, error) {
	active, err := s.client.HGet(ctx, keyActiveTokenDict, seed).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hget active token: %w", err)
	}
	return active, true, nil
}

func (s *RedisStore) SetActiveTokenForUserToken(ctx context.Context, seed, active string) error {
	return s.client.HSet(ctx, keyActiveTokenDict, seed, active).Err()
}

func (s *RedisStore) IsRequestFilled(ctx context.Context, token string) (bool, error) {
	inTokenMap, err := s.client.HExists(ctx, keyTokenDict, token).Result()
	if err != nil {
		return false, fmt.Errorf("hexists token: %w", err)
	}
	if !inTokenMap {
		return false, nil
	}
	_, open, err := s.GetOpenRequestByToken(ctx, token)
	if err != nil {
		return false, err
	}
	return !open, nil
}

// --- Requests ---

func (s *RedisStore) AddResourcesRequest(ctx context.Context, token string, req qrm.OpenRequest) error {
	return s.UpdateOpenRequest(ctx, token, req)
}

func (s *RedisStore) SaveOrigResourcesReq(ctx context.Context, token string, orig qrm.OrigRequest) error {
	data, err := json.Marshal(orig)
	if err != nil {
		return fmt.Errorf("marshal orig request: %w", err)
	}
	return s.client.HSet(ctx, keyOrigRequests, token, data).Err()
}

func (s *RedisStore) GetOpenRequests(ctx context.Context) (map[string]qrm.OpenRequest, error) {
	raw, err := s.client.HGetAll(ctx, keyOpenRequests).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall open requests: %w", err)
	}
	out := make(map[string]qrm.OpenRequest, len(raw))
	for token, data := range raw {
		var req qrm.OpenRequest
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			return nil, fmt.Errorf("unmarshal open request %s: %w", token, err)
		}
		out[token] = req
	}
	return out, nil
}

func (s *RedisStore) GetOpenRequestByToken(ctx context.Context, token string) (qrm.OpenRequest, bool, error) {
	data, err := s.client.HGet(ctx, keyOpenRequests, token).Result()
	if err == redis.Nil {
		return qrm.OpenRequest{}, false, nil
	}
	if err != nil {
		return qrm.OpenRequest{}, false, fmt.Errorf("hget open request: %w", err)
	}
	var req qrm.OpenRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return qrm.OpenRequest{}, false, fmt.Errorf("unmarshal open request: %w", err)
	}
	return req, true, nil
}

func (s *RedisStore) GetOrigRequest(ctx context.Context, token string) (qrm.OrigRequest, bool, error) {
	data, err := s.client.HGet(ctx, keyOrigRequests, token).Result()
	if err == redis.Nil {
		return qrm.OrigRequest{}, false, nil
	}
	if err != nil {
		return qrm.OrigRequest{}, false, fmt.Errorf("hget orig request: %w", err)
	}
	var orig qrm.OrigRequest
	if err := json.Unmarshal([]byte(data), &orig); err != nil {
		return qrm.OrigRequest{}, false, fmt.Errorf("unmarshal orig request: %w", err)
	}
	return orig, true, nil
}

func (s *RedisStore) UpdateOpenRequest(ctx context.Context, token string, req qrm.OpenRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal open request: %w", err)
	}
	return s.client.HSet(ctx, keyOpenRequests, token, data).Err()
}

func (s *RedisStore) RemoveOpenRequest(ctx context.Context, token string) error {
	return s.client.HDel(ctx, keyOpenRequests, token).Err()
}

// --- Partial fill / last response ---

func (s *RedisStore) PartialFillRequest(ctx context.Context, token, resourceName string) error {
	current, err := s.GetPartialFill(ctx, token)
	if err != nil {
		return err
	}
	for _, n := range current {
		if n == resourceName {
			return nil
		}
	}
	current = append(current, resourceName)
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("marshal partial fill: %w", err)
	}
	return s.client.HSet(ctx, keyFillRequests, token, data).Err()
}

func (s *RedisStore) GetPartialFill(ctx context.Context, token string) ([]string, error) {
	data, err := s.client.HGet(ctx, keyFillRequests, token).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hget partial fill: %w", err)
	}
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal partial fill: %w", err)
	}
	return names, nil
}

func (s *RedisStore) RemovePartiallyFillRequest(ctx context.Context, token string) error {
	return s.client.HDel(ctx, keyFillRequests, token).Err()
}

func (s *RedisStore) GetReqRespForToken(ctx context.Context, token string) (qrm.ResourcesRequestResponse, bool, error) {
	data, err := s.client.HGet(ctx, keyLastReqResp, token).Result()
	if err == redis.Nil {
		return qrm.ResourcesRequestResponse{}, false, nil
	}
	if err != nil {
		return qrm.ResourcesRequestResponse{}, false, fmt.Errorf("hget last response: %w", err)
	}
	var resp qrm.ResourcesRequestResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return qrm.ResourcesRequestResponse{}, false, fmt.Errorf("unmarshal last response: %w", err)
	}
	return resp, true, nil
}

func (s *RedisStore) SetReqResp(ctx context.Context, token string, resp qrm.ResourcesRequestResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return s.client.HSet(ctx, keyLastReqResp, token, data).Err()
}

// --- Tags ---

func (s *RedisStore) AddTagToResource(ctx context.Context, resourceName, tag string) error {
	r, err := s.GetByName(ctx, resourceName)
	if err != nil {
		return err
	}
	updated, changed := r.AddTag(tag)
	if !changed {
		return nil
	}
	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}
	if err := s.client.HSet(ctx, keyAllResources, resourceName, data).Err(); err != nil {
		return fmt.Errorf("hset resource tags: %w", err)
	}
	return s.addToTagIndex(ctx, tag, resourceName)
}

func (s *RedisStore) RemoveTagFromResource(ctx context.Context, resourceName, tag string) error {
	r, err := s.GetByName(ctx, resourceName)
	if err != nil {
		return err
	}
	updated, changed := r.RemoveTag(tag)
	if !changed {
		return nil
	}
	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}
	if err := s.client.HSet(ctx, keyAllResources, resourceName, data).Err(); err != nil {
		return fmt.Errorf("hset resource tags: %w", err)
	}
	return s.removeFromTagIndex(ctx, tag, resourceName)
}

func (s *RedisStore) RemoveAllTagsFromResource(ctx context.Context, resourceName string) error {
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

func (s *RedisStore) addToTagIndex(ctx context.Context, tag, resourceName string) error {
	names, err := s.tagIndex(ctx, tag)
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == resourceName {
			return nil
		}
	}
	names = append(names, resourceName)
	return s.saveTagIndex(ctx, tag, names)
}

func (s *RedisStore) removeFromTagIndex(ctx context.Context, tag, resourceName string) error {
	names, err := s.tagIndex(ctx, tag)
	if err != nil {
		return err
	}
	out := names[:0]
	for _, n := range names {
		if n != resourceName {
			out = append(out, n)
		}
	}
	return s.saveTagIndex(ctx, tag, out)
}

func (s *RedisStore) tagIndex(ctx context.Context, tag string) ([]string, error) {
	data, err := s.client.HGet(ctx, keyTagResNameMap, tag).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hget tag index: %w", err)
	}
	var names []string
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal tag index: %w", err)
	}
	return names, nil
}

func (s *RedisStore) saveTagIndex(ctx context.Context, tag string, names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("marshal tag index: %w", err)
	}
	return s.client.HSet(ctx, keyTagResNameMap, tag, data).Err()
}

// GetResourcesNamesByTags returns the deduplicated union of resource
// names carrying any of the listed tags.
func (s *RedisStore) GetResourcesNamesByTags(ctx context.Context, tags []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, tag := range tags {
		names, err := s.tagIndex(ctx, tag)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out, nil
}

// --- Readiness waiter ---

// WaitForResourceActiveStatus blocks until resourceName's status is
// active, either already or via a future SetStatus call on any
// instance sharing this Redis (delivered through ResourceChangeChannel).
func (s *RedisStore) WaitForResourceActiveStatus(ctx context.Context, resourceName string) error {
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

		// Re-check after Clear in case the transition happened between
		// the GetStatus above and the Clear, to avoid a missed wakeup.
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

// --- Bookkeeping ---

func (s *RedisStore) UpdateTokenLastUpdateTime(ctx context.Context, token string) error {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	return s.client.HSet(ctx, keyTokenLastUpdateTime, token, now).Err()
}

func (s *RedisStore) GetAllTokensLastUpdate(ctx context.Context) (map[string]time.Time, error) {
	raw, err := s.client.HGetAll(ctx, keyTokenLastUpdateTime).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall last update time: %w", err)
	}
	out := make(map[string]time.Time, len(raw))
	for token, v := range raw {
		sec, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[token] = time.Unix(sec, 0)
	}
	return out, nil
}

func (s *RedisStore) DeleteTokenLastUpdateTime(ctx context.Context, token string) error {
	return s.client.HDel(ctx, keyTokenLastUpdateTime, token).Err()
}

func (s *RedisStore) AddAutoManagedToken(ctx context.Context, token string) error {
	return s.client.SAdd(ctx, keyManagedTokensList, token).Err()
}

func (s *RedisStore) GetAllAutoManagedTokens(ctx context.Context) ([]string, error) {
	tokens, err := s.client.SMembers(ctx, keyManagedTokensList).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers managed tokens: %w", err)
	}
	return tokens, nil
}

func (s *RedisStore) DeleteAutoManagedToken(ctx context.Context, token string) error {
	return s.client.SRem(ctx, keyManagedTokensList, token).Err()
}

// GetAllOpenTokens returns the union of every token recovery must
// resurrect state for: keys of open requests, the token->resources
// map, and partial fills (spec §4.1 invariant 2).
func (s *RedisStore) GetAllOpenTokens(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(keys []string) {
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}

	openKeys, err := s.client.HKeys(ctx, keyOpenRequests).Result()
	if err != nil {
		return nil, fmt.Errorf("hkeys open requests: %w", err)
	}
	add(openKeys)

	tokenKeys, err := s.client.HKeys(ctx, keyTokenDict).Result()
	if err != nil {
		return nil, fmt.Errorf("hkeys token dict: %w", err)
	}
	add(tokenKeys)

	fillKeys, err := s.client.HKeys(ctx, keyFillRequests).Result()
	if err != nil {
		return nil, fmt.Errorf("hkeys fill requests: %w", err)
	}
	add(fillKeys)

	return out, nil
}

// --- Server status ---

func (s *RedisStore) SetServerStatus(ctx context.Context, status string) error {
	if !IsValidServerStatus(status) {
		return fmt.Errorf("invalid server status %q", status)
	}
	return s.client.Set(ctx, keyServerStatus, status, 0).Err()
}

func (s *RedisStore) GetServerStatus(ctx context.Context) (string, error) {
	status, err := s.client.Get(ctx, keyServerStatus).Result()
	if err == redis.Nil {
		return ServerStatusActive, nil
	}
	if err != nil {
		return "", fmt.Errorf("get server status: %w", err)
	}
	return status, nil
}

var _ Store = (*RedisStore)(nil)
