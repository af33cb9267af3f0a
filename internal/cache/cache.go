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

// Package cache is the LRU response cache in front of
// Engine.GetResourceReqResp: once a token's request has reached a
// terminal state (filled, cancelled, or invalid), its Last Response
// never changes again, so repeated polling of the same token doesn't
// need to touch the store.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"go.corp.nvidia.com/qrm/internal/qrm"
)

// KeyedCache is a generic thread-safe LRU cache with per-entry TTL
// expiration. It is the shared caching primitive; domain-specific
// caches are thin wrappers over it.
type KeyedCache[V any] struct {
	cache *expirable.LRU[string, V]
}

// NewKeyedCache creates a keyed cache holding at most maxSize entries,
// each expiring ttl after it was last set.
func NewKeyedCache[V any](maxSize int, ttl time.Duration) *KeyedCache[V] {
	return &KeyedCache[V]{cache: expirable.NewLRU[string, V](maxSize, nil, ttl)}
}

// Get retrieves a single value by key. Returns the value and true on hit.
func (c *KeyedCache[V]) Get(key string) (V, bool) {
	return c.cache.Get(key)
}

// Set stores a value under the given key.
func (c *KeyedCache[V]) Set(key string, value V) {
	c.cache.Add(key, value)
}

// Invalidate removes key, if present.
func (c *KeyedCache[V]) Invalidate(key string) {
	c.cache.Remove(key)
}

// Size returns the number of entries in the cache.
func (c *KeyedCache[V]) Size() int {
	return c.cache.Len()
}

const (
	defaultMaxSize = 10000
	defaultTTL     = 5 * time.Minute
)

// ResponseCache caches terminal ResourcesRequestResponse values keyed
// by token. In-flight (not yet RequestComplete) responses are never
// stored, since those change on every poll.
type ResponseCache struct {
	cache *KeyedCache[qrm.ResourcesRequestResponse]
}

// NewResponseCache creates a ResponseCache with the given bounds. A
// maxSize or ttl of zero falls back to a sane default.
func NewResponseCache(maxSize int, ttl time.Duration) *ResponseCache {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ResponseCache{cache: NewKeyedCache[qrm.ResourcesRequestResponse](maxSize, ttl)}
}

// Get returns the cached terminal response for token, if any. A nil
// receiver is a valid no-op, always a miss.
func (rc *ResponseCache) Get(token string) (qrm.ResourcesRequestResponse, bool) {
	if rc == nil {
		return qrm.ResourcesRequestResponse{}, false
	}
	return rc.cache.Get(token)
}

// Set stores resp under token if it is terminal; non-terminal
// responses are never cached, and storing one is a silent no-op.
func (rc *ResponseCache) Set(token string, resp qrm.ResourcesRequestResponse) {
	if rc == nil || !resp.RequestComplete {
		return
	}
	rc.cache.Set(token, resp)
}

// Invalidate drops any cached response for token, e.g. after a
// cancellation re-opens what looked like a terminal state.
func (rc *ResponseCache) Invalidate(token string) {
	if rc == nil {
		return
	}
	rc.cache.Invalidate(token)
}
