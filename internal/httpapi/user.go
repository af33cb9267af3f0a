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

package httpapi

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.corp.nvidia.com/qrm/internal/engine"
	"go.corp.nvidia.com/qrm/internal/qrm"
)

// UserHandler exposes the allocation-facing User HTTP API (spec §6).
type UserHandler struct {
	engine    *engine.Engine
	logger    *slog.Logger
	startedAt time.Time
}

// NewUserHandler returns a UserHandler bound to eng.
func NewUserHandler(eng *engine.Engine, logger *slog.Logger) *UserHandler {
	return &UserHandler{engine: eng, logger: logger, startedAt: time.Now()}
}

// Routes returns the mux for the User API.
func (h *UserHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /new_request", h.handleNewRequest)
	mux.HandleFunc("GET /get_token_status", h.handleGetTokenStatus)
	mux.HandleFunc("POST /cancel_token", h.handleCancelToken)
	mux.HandleFunc("GET /is_server_up", h.handleIsServerUp)
	mux.HandleFunc("GET /uptime", h.handleUptime)
	mux.HandleFunc("GET /{$}", h.handleRoot)
	return mux
}

func (h *UserHandler) handleNewRequest(w http.ResponseWriter, r *http.Request) {
	var req qrm.ResourcesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.engine.NewRequest(r.Context(), req)
	if err != nil {
		h.logger.Error("new_request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) handleGetTokenStatus(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token query parameter")
		return
	}

	resp, err := h.engine.GetResourceReqResp(r.Context(), token)
	if err != nil {
		h.logger.Error("get_token_status failed", slog.String("token", token), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type cancelTokenRequest struct {
	Token string `json:"token"`
}

func (h *UserHandler) handleCancelToken(w http.ResponseWriter, r *http.Request) {
	var req cancelTokenRequest
	if err := decodeJSON(r, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	resp := h.engine.CancelRequest(r.Context(), req.Token)
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) handleIsServerUp(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"status": true})
}

func (h *UserHandler) handleUptime(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "%s\n", time.Since(h.startedAt))
}

func (h *UserHandler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "qrm-server")
}
