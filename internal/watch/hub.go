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

// Package watch is the live status-change feed: a /watch_status WebSocket
// endpoint that broadcasts every resource status transition the
// Watcher observes. It has no effect on allocation; a client that never
// connects changes nothing about how requests are filled.
package watch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// StatusChangeEvent is one broadcast message: resourceName transitioned
// to status at timestamp.
type StatusChangeEvent struct {
	ResourceName string    `json:"resource_name"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// Hub fans StatusChangeEvents out to every connected client. Clients
// register/unregister themselves; a slow client is dropped rather than
// allowed to block the broadcast of everyone else.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*client]bool

	register   chan *client
	unregister chan *client
	broadcast  chan StatusChangeEvent
}

type client struct {
	send chan []byte
}

// NewHub creates an idle Hub. Call Run to start fanning out events.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:     logger,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan StatusChangeEvent, 64),
	}
}

// Run processes registration and broadcast traffic until ctx is
// canceled. It must run in its own goroutine for the lifetime of the
// hub.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = nil
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to marshal status change event", slog.String("error", err.Error()))
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.logger.Warn("dropping slow watch client")
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues event for delivery to every connected client. It
// never blocks the caller.
func (h *Hub) Broadcast(event StatusChangeEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("watch hub broadcast buffer full, dropping event", slog.String("resource", event.ResourceName))
	}
}
