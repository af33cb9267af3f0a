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

import "sync"

// EventMap is the in-process mapping from active token to its Event.
// It is never persisted; on restart it is rebuilt entirely from the
// store's open tokens (spec §4.2).
type EventMap struct {
	mu     sync.Mutex
	events map[string]*Event
}

// NewEventMap returns an empty event map.
func NewEventMap() *EventMap {
	return &EventMap{events: make(map[string]*Event)}
}

// GetOrCreate returns the event for token, creating a cleared one if
// absent.
func (m *EventMap) GetOrCreate(token string) *Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.events[token]; ok {
		return e
	}
	e := NewEvent()
	m.events[token] = e
	return e
}

// Seed installs an already-set event for token, used on recovery so
// the resumed worker immediately re-evaluates state (spec §4.2, §4.3.6).
func (m *EventMap) Seed(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[token] = NewSetEvent()
}

// Set wakes token's event with reason, creating it first if unknown
// (the pub/sub subscriber and CancelRequest may race the worker's own
// GetOrCreate).
func (m *EventMap) Set(token string, reason Reason) {
	m.GetOrCreate(token).Set(reason)
}

// Delete removes token's event entirely, once its request has
// finalized or been cancelled and nothing will wait on it again.
func (m *EventMap) Delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.events, token)
}

// Len reports how many tokens currently have an event.
func (m *EventMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}
