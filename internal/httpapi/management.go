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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.corp.nvidia.com/qrm/internal/audit"
	"go.corp.nvidia.com/qrm/internal/qrm"
	"go.corp.nvidia.com/qrm/internal/readiness"
	"go.corp.nvidia.com/qrm/internal/store"
	libutils "go.corp.nvidia.com/qrm/lib/utils"
)

// ManagementHandler exposes the operator-facing Management HTTP API
// (spec §6): resource and tag lifecycle, server/resource status, and
// the full-state snapshot.
type ManagementHandler struct {
	store     store.Store
	readiness *readiness.Subsystem
	audit     *audit.Sink
	logger    *slog.Logger
}

// NewManagementHandler returns a ManagementHandler bound to st. aud may
// be nil, in which case /audit/{token} reports the feature as disabled.
func NewManagementHandler(st store.Store, rd *readiness.Subsystem, aud *audit.Sink, logger *slog.Logger) *ManagementHandler {
	return &ManagementHandler{store: st, readiness: rd, audit: aud, logger: logger}
}

// Routes returns the mux for the Management API.
func (h *ManagementHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /add_resources", h.handleAddResources)
	mux.HandleFunc("POST /remove_resources", h.handleRemoveResources)
	mux.HandleFunc("POST /set_server_status", h.handleSetServerStatus)
	mux.HandleFunc("POST /set_resource_status", h.handleSetResourceStatus)
	mux.HandleFunc("POST /add_tag_to_resource", h.handleAddTagToResource)
	mux.HandleFunc("POST /remove_tag_from_resource", h.handleRemoveTagFromResource)
	mux.HandleFunc("GET /status", h.handleStatus)
	mux.HandleFunc("GET /audit/{token}", h.handleAuditTrail)
	mux.HandleFunc("GET /version", h.handleVersion)
	return mux
}

func (h *ManagementHandler) handleVersion(w http.ResponseWriter, r *http.Request) {
	version, err := libutils.LoadVersion()
	if err != nil {
		h.logger.Warn("failed to load version, reporting dev", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": version})
}

func (h *ManagementHandler) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit trail is not configured")
		return
	}
	token := r.PathValue("token")
	events, err := h.audit.EventsForToken(r.Context(), token)
	if err != nil {
		h.logger.Error("audit trail query failed", slog.String("token", token), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "events": events})
}

func (h *ManagementHandler) handleAddResources(w http.ResponseWriter, r *http.Request) {
	var resources []qrm.Resource
	if err := decodeJSON(r, &resources); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	added := 0
	for _, res := range resources {
		if res.Status == "" {
			res.Status = qrm.StatusActive
		}
		if !qrm.IsValidResourceStatus(res.Status) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q for resource %q", res.Status, res.Name))
			return
		}
		ok, err := h.store.AddResource(r.Context(), res)
		if err != nil {
			h.logger.Error("add_resources failed", slog.String("resource", res.Name), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if ok {
			added++
		} else {
			h.logger.Warn("duplicate resource ignored", slog.String("resource", res.Name))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"added": added, "requested": len(resources)})
}

type removeResourcesRequest struct {
	Names []string `json:"names"`
}

func (h *ManagementHandler) handleRemoveResources(w http.ResponseWriter, r *http.Request) {
	var req removeResourcesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	removed := 0
	for _, name := range req.Names {
		ok, err := h.store.RemoveResource(r.Context(), name)
		if err != nil {
			h.logger.Error("remove_resources failed", slog.String("resource", name), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if ok {
			removed++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "requested": len(req.Names)})
}

type setServerStatusRequest struct {
	Status string `json:"status"`
}

func (h *ManagementHandler) handleSetServerStatus(w http.ResponseWriter, r *http.Request) {
	var req setServerStatusRequest
	if err := decodeJSON(r, &req); err != nil || !store.IsValidServerStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid server status")
		return
	}
	if err := h.store.SetServerStatus(r.Context(), req.Status); err != nil {
		h.logger.Error("set_server_status failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

type setResourceStatusRequest struct {
	ResourceName string             `json:"resource_name"`
	Status       qrm.ResourceStatus `json:"status"`
}

func (h *ManagementHandler) handleSetResourceStatus(w http.ResponseWriter, r *http.Request) {
	var req setResourceStatusRequest
	if err := decodeJSON(r, &req); err != nil || req.ResourceName == "" {
		writeError(w, http.StatusBadRequest, "missing resource_name")
		return
	}

	err := h.readiness.SetStatus(r.Context(), req.ResourceName, req.Status)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"resource_name": req.ResourceName, "status": string(req.Status)})
	case errors.Is(err, readiness.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown resource %q", req.ResourceName))
	default:
		h.logger.Error("set_resource_status failed", slog.String("resource", req.ResourceName), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type resourceTagRequest struct {
	ResourceName string `json:"resource_name"`
	Tag          string `json:"tag"`
}

func (h *ManagementHandler) handleAddTagToResource(w http.ResponseWriter, r *http.Request) {
	var req resourceTagRequest
	if err := decodeJSON(r, &req); err != nil || req.ResourceName == "" || req.Tag == "" {
		writeError(w, http.StatusBadRequest, "missing resource_name or tag")
		return
	}
	if err := h.store.AddTagToResource(r.Context(), req.ResourceName, req.Tag); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown resource %q", req.ResourceName))
			return
		}
		h.logger.Error("add_tag_to_resource failed", slog.String("resource", req.ResourceName), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"resource_name": req.ResourceName, "tag": req.Tag})
}

func (h *ManagementHandler) handleRemoveTagFromResource(w http.ResponseWriter, r *http.Request) {
	var req resourceTagRequest
	if err := decodeJSON(r, &req); err != nil || req.ResourceName == "" || req.Tag == "" {
		writeError(w, http.StatusBadRequest, "missing resource_name or tag")
		return
	}
	if err := h.store.RemoveTagFromResource(r.Context(), req.ResourceName, req.Tag); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown resource %q", req.ResourceName))
			return
		}
		h.logger.Error("remove_tag_from_resource failed", slog.String("resource", req.ResourceName), slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"resource_name": req.ResourceName, "tag": req.Tag})
}

type resourceSnapshot struct {
	Status    qrm.ResourceStatus `json:"status"`
	Type      string             `json:"type"`
	ActiveJob string             `json:"active_job"`
	Jobs      []string           `json:"jobs"`
	Tags      []string           `json:"tags"`
}

type statusSnapshot struct {
	ServerStatus         string                          `json:"server_status"`
	Resources            map[string]resourceSnapshot     `json:"resources"`
	TokensResourcesGroup map[string]map[string][]string  `json:"tokens_resources_group"`
	TokenLastUpdateTime  map[string]time.Time            `json:"token_last_update_time"`
	AutoManagedTokens    []string                        `json:"auto_managed_tokens"`
}

func (h *ManagementHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	serverStatus, err := h.store.GetServerStatus(ctx)
	if err != nil {
		h.logger.Error("status snapshot failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resources, err := h.store.GetAllAsMap(ctx)
	if err != nil {
		h.logger.Error("status snapshot failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	snap := statusSnapshot{
		ServerStatus:         serverStatus,
		Resources:            make(map[string]resourceSnapshot, len(resources)),
		TokensResourcesGroup: make(map[string]map[string][]string),
	}

	for name, res := range resources {
		jobs, err := h.store.GetJobs(ctx, name)
		if err != nil {
			h.logger.Error("status snapshot: get jobs failed", slog.String("resource", name), slog.String("error", err.Error()))
			continue
		}
		jobTokens := make([]string, 0, len(jobs))
		for _, j := range jobs {
			jobTokens = append(jobTokens, j.Token)
		}
		active, err := h.store.GetActiveJob(ctx, name)
		if err != nil {
			h.logger.Error("status snapshot: get active job failed", slog.String("resource", name), slog.String("error", err.Error()))
		}

		snap.Resources[name] = resourceSnapshot{
			Status:    res.Status,
			Type:      res.Type,
			ActiveJob: active.Token,
			Jobs:      jobTokens,
			Tags:      res.Tags,
		}

		if res.Token != "" {
			byType := snap.TokensResourcesGroup[res.Token]
			if byType == nil {
				byType = make(map[string][]string)
				snap.TokensResourcesGroup[res.Token] = byType
			}
			byType[res.Type] = append(byType[res.Type], name)
		}
	}

	lastUpdate, err := h.store.GetAllTokensLastUpdate(ctx)
	if err != nil {
		h.logger.Error("status snapshot: last-update failed", slog.String("error", err.Error()))
	}
	snap.TokenLastUpdateTime = lastUpdate

	autoManaged, err := h.store.GetAllAutoManagedTokens(ctx)
	if err != nil {
		h.logger.Error("status snapshot: auto-managed tokens failed", slog.String("error", err.Error()))
	}
	snap.AutoManagedTokens = autoManaged

	writeJSON(w, http.StatusOK, snap)
}
