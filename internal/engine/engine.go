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

// Package engine implements the allocation engine: request validation,
// tokenization, per-resource FIFO queueing, and the worker that blocks
// on the event map until a request's resources are all granted.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.corp.nvidia.com/qrm/internal/audit"
	"go.corp.nvidia.com/qrm/internal/cache"
	"go.corp.nvidia.com/qrm/internal/metrics"
	"go.corp.nvidia.com/qrm/internal/qrm"
	"go.corp.nvidia.com/qrm/internal/readiness"
	"go.corp.nvidia.com/qrm/internal/store"
)

// Engine is the allocation engine described by the Resource Store, Event
// Map, and Allocation Engine components. A single instance owns one
// process-wide mutex that serializes findAvailable; everything else is
// serialized by the store itself.
type Engine struct {
	store           store.Store
	readiness       *readiness.Subsystem
	events          *qrm.EventMap
	logger          *slog.Logger
	usePendingLogic bool
	audit           *audit.Sink
	metrics         *metrics.Recorder
	respCache       *cache.ResponseCache

	findMu     sync.Mutex
	startTimes sync.Map // token (string) -> time.Time, for fill-latency metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config controls optional engine behavior.
type Config struct {
	// UsePendingLogic enables the pending-mode post-fill described in
	// the Allocation Engine's finalize step: resources handed off from
	// a prior token are parked in "pending" status (instead of staying
	// active) until an operator reactivates them.
	UsePendingLogic bool

	// Audit, when non-nil, receives a best-effort record of every
	// request lifecycle transition. Never required for correctness.
	Audit *audit.Sink

	// Metrics, when non-nil, receives OTLP instrument updates for open
	// requests, cancellations, and fill latency. Never required for
	// correctness.
	Metrics *metrics.Recorder

	// ResponseCache, when non-nil, short-circuits GetResourceReqResp for
	// tokens whose request has already reached a terminal state.
	ResponseCache *cache.ResponseCache
}

// New creates an Engine bound to st. The returned Engine's background
// workers run until StopBackend is called.
func New(parent context.Context, st store.Store, logger *slog.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Engine{
		store:           st,
		readiness:       readiness.NewWithMetrics(st, cfg.Metrics),
		events:          qrm.NewEventMap(),
		logger:          logger,
		usePendingLogic: cfg.UsePendingLogic,
		audit:           cfg.Audit,
		metrics:         cfg.Metrics,
		respCache:       cfg.ResponseCache,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// InitBackend recovers in-flight requests after a restart: it seeds the
// event map (pre-set) from every open token, then relaunches a
// namesWorker for each still-open request.
func (e *Engine) InitBackend(ctx context.Context) error {
	tokens, err := e.store.GetAllOpenTokens(ctx)
	if err != nil {
		return fmt.Errorf("recover open tokens: %w", err)
	}
	for _, t := range tokens {
		e.events.Seed(t)
	}

	openReqs, err := e.store.GetOpenRequests(ctx)
	if err != nil {
		return fmt.Errorf("recover open requests: %w", err)
	}
	for token := range openReqs {
		e.spawnNamesWorker(token)
	}
	e.logger.Info("engine recovered open requests", slog.Int("count", len(openReqs)))
	return nil
}

// StopBackend cancels every running worker and waits for them to exit.
func (e *Engine) StopBackend() {
	e.cancel()
	e.wg.Wait()
}

func (e *Engine) spawnNamesWorker(token string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.namesWorker(e.ctx, token)
	}()
}

// NewRequest is the synchronous entry point described in §4.3.1: it
// validates and tokenizes req, persists the open request, and launches
// the names-worker in the background before returning.
func (e *Engine) NewRequest(ctx context.Context, req qrm.ResourcesRequest) (qrm.ResourcesRequestResponse, error) {
	if req.IsEmpty() {
		return qrm.ResourcesRequestResponse{IsValid: false, Message: "empty request"}, nil
	}

	seed := req.Token
	if seed == "" {
		return qrm.ResourcesRequestResponse{IsValid: false, Message: "missing token"}, nil
	}

	if resolvedActive, hasActive, err := e.store.GetActiveTokenFromUserToken(ctx, seed); err != nil {
		return qrm.ResourcesRequestResponse{}, err
	} else if hasActive {
		owned, err := e.store.GetTokenResources(ctx, resolvedActive)
		if err != nil {
			return qrm.ResourcesRequestResponse{}, err
		}
		if len(owned) > 0 {
			if valid, err := e.seedStillOwns(ctx, resolvedActive, owned); err != nil {
				return qrm.ResourcesRequestResponse{}, err
			} else if valid {
				return e.refreshSeed(ctx, seed, resolvedActive, owned)
			}
		}

		// resolvedActive is only "in progress" if it still has an open
		// request on file; a stale mapping (e.g. left over after a
		// finalize/cancel) must fall through to starting a new request.
		if _, ok, err := e.store.GetOpenRequestByToken(ctx, resolvedActive); err != nil {
			return qrm.ResourcesRequestResponse{}, err
		} else if ok {
			if active, err := e.IsRequestActive(ctx, resolvedActive); err != nil {
				return qrm.ResourcesRequestResponse{}, err
			} else if active {
				return qrm.ResourcesRequestResponse{Token: resolvedActive, IsValid: true, Message: "request in progress"}, nil
			}
		}
	}

	active := qrm.DatedToken(seed, time.Now())
	if err := e.store.SetActiveTokenForUserToken(ctx, seed, active); err != nil {
		return qrm.ResourcesRequestResponse{}, err
	}
	e.events.Seed(active)
	e.startTimes.Store(active, time.Now())
	e.metrics.RequestAccepted(ctx)
	if err := e.store.SaveOrigResourcesReq(ctx, active, qrm.OrigRequest{Names: req.Names, Tags: req.Tags}); err != nil {
		return qrm.ResourcesRequestResponse{}, err
	}
	if req.AutoManaged {
		if err := e.store.AddAutoManagedToken(ctx, active); err != nil {
			return qrm.ResourcesRequestResponse{}, err
		}
	}
	if err := e.store.UpdateTokenLastUpdateTime(ctx, active); err != nil {
		return qrm.ResourcesRequestResponse{}, err
	}

	groups := make([]qrm.ResourcesByName, len(req.Names))
	copy(groups, req.Names)

	for _, tg := range req.Tags {
		names, err := e.store.GetResourcesNamesByTags(ctx, tg.Tags)
		if err != nil {
			return qrm.ResourcesRequestResponse{}, err
		}
		if len(names) == 0 {
			return e.invalidate(ctx, active, fmt.Sprintf("no matched resources for tags %v", tg.Tags))
		}
		groups = append(groups, qrm.ResourcesByName{Names: names, Count: tg.Count})
	}

	if len(groups) == 0 {
		return e.invalidate(ctx, active, "no names or tags resolved to any group")
	}

	var problems []string
	for gi := range groups {
		available := 0
		for _, name := range groups[gi].Names {
			r, err := e.store.GetByName(ctx, name)
			if err != nil {
				problems = append(problems, fmt.Sprintf("resource %q not found", name))
				continue
			}
			if r.Status != qrm.StatusDisabled {
				available++
			}
		}
		if available < groups[gi].Count {
			problems = append(problems, fmt.Sprintf("requested %d but only %d available in group %v", groups[gi].Count, available, groups[gi].Names))
		}
	}
	if len(problems) > 0 {
		return e.invalidate(ctx, active, strings.Join(problems, "; "))
	}

	for gi := range groups {
		if err := e.reorderSeedOwned(ctx, &groups[gi], seed); err != nil {
			return qrm.ResourcesRequestResponse{}, err
		}
	}

	open := qrm.OpenRequest{Groups: groups}
	if err := e.store.AddResourcesRequest(ctx, active, open); err != nil {
		return qrm.ResourcesRequestResponse{}, err
	}
	for gi := range groups {
		for _, name := range groups[gi].Names {
			r, err := e.store.GetByName(ctx, name)
			if err != nil || r.Status == qrm.StatusDisabled {
				continue
			}
			if err := e.store.AddJob(ctx, name, qrm.Job{Token: active}); err != nil {
				return qrm.ResourcesRequestResponse{}, err
			}
		}
	}

	resp := qrm.ResourcesRequestResponse{Token: active, IsValid: true}
	if err := e.store.SetReqResp(ctx, active, resp); err != nil {
		return qrm.ResourcesRequestResponse{}, err
	}

	var requestedNames []string
	for _, g := range groups {
		requestedNames = append(requestedNames, g.Names...)
	}
	e.audit.RecordEvent(active, audit.EventNewRequest, requestedNames)

	e.spawnNamesWorker(active)
	return resp, nil
}

func (e *Engine) invalidate(ctx context.Context, token, message string) (qrm.ResourcesRequestResponse, error) {
	resp := qrm.ResourcesRequestResponse{Token: token, IsValid: false, Message: message}
	if err := e.store.SetReqResp(ctx, token, resp); err != nil {
		return qrm.ResourcesRequestResponse{}, err
	}
	e.events.Set(token, qrm.ReasonNotValid)
	if _, ok := e.startTimes.LoadAndDelete(token); ok {
		e.metrics.RequestClosed(ctx)
	}
	e.audit.RecordEvent(token, audit.EventNotValid, nil)
	return resp, nil
}

// seedStillOwns reports whether every resource in owned is still
// recorded under active, the dated token the resources were actually
// granted to.
func (e *Engine) seedStillOwns(ctx context.Context, active string, owned []qrm.Resource) (bool, error) {
	for _, r := range owned {
		cur, err := e.store.GetByName(ctx, r.Name)
		if err == store.ErrNotFound {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if cur.Token != active {
			return false, nil
		}
	}
	return true, nil
}

// refreshSeed handles S5: seed still owns every resource it was last
// granted (under its dated active token), so the request is confirmed
// synchronously instead of being re-queued. active is the dated token
// the resources are actually recorded under in the store; the
// seed→active mapping itself is left untouched so it keeps resolving
// correctly on any later resubmission.
func (e *Engine) refreshSeed(ctx context.Context, seed, active string, owned []qrm.Resource) (qrm.ResourcesRequestResponse, error) {
	names := make([]string, 0, len(owned))
	for _, r := range owned {
		activeJob, err := e.store.GetActiveJob(ctx, r.Name)
		if err != nil {
			return qrm.ResourcesRequestResponse{}, err
		}
		if activeJob.IsSentinel() {
			if err := e.store.AddJob(ctx, r.Name, qrm.Job{Token: seed}); err != nil {
				return qrm.ResourcesRequestResponse{}, err
			}
		}
		names = append(names, r.Name)
	}
	if err := e.store.UpdateTokenLastUpdateTime(ctx, active); err != nil {
		return qrm.ResourcesRequestResponse{}, err
	}
	resp := qrm.ResourcesRequestResponse{
		Names:                names,
		Token:                seed,
		RequestComplete:      true,
		IsValid:              true,
		IsTokenActiveInQueue: true,
	}
	if err := e.store.SetReqResp(ctx, seed, resp); err != nil {
		return qrm.ResourcesRequestResponse{}, err
	}
	return resp, nil
}

func (e *Engine) reorderSeedOwned(ctx context.Context, g *qrm.ResourcesByName, seed string) error {
	owned := make([]string, 0, len(g.Names))
	others := make([]string, 0, len(g.Names))
	for _, name := range g.Names {
		r, err := e.store.GetByName(ctx, name)
		if err != nil {
			others = append(others, name)
			continue
		}
		if r.Token == seed {
			owned = append(owned, name)
		} else {
			others = append(others, name)
		}
	}
	g.Names = append(owned, others...)
	return nil
}

// namesWorker runs one goroutine per open request; groups are processed
// strictly in sequence (§9: "do not parallelize them").
func (e *Engine) namesWorker(ctx context.Context, token string) {
	open, ok, err := e.store.GetOpenRequestByToken(ctx, token)
	if err != nil || !ok {
		return
	}

	for gi := range open.Groups {
		if terminal := e.runGroup(ctx, token, &open.Groups[gi], &open); terminal {
			return
		}
	}

	e.finalize(ctx, token)
}

func (e *Engine) runGroup(ctx context.Context, token string, group *qrm.ResourcesByName, open *qrm.OpenRequest) bool {
	for {
		e.findAvailable(ctx, token, group)
		if err := e.store.UpdateOpenRequest(ctx, token, *open); err != nil {
			e.logger.Error("failed to persist open request", slog.String("token", token), slog.String("error", err.Error()))
		}

		if group.Count == 0 {
			e.releaseRemaining(ctx, token, group)
			return false
		}

		event := e.events.GetOrCreate(token)
		event.Clear()
		reason := event.Wait(ctx)
		if ctx.Err() != nil {
			return true
		}
		switch reason {
		case qrm.ReasonCanceled:
			return true
		case qrm.ReasonNotValid:
			return true
		default:
			continue
		}
	}
}

// findAvailable scans group.Names for resources whose active job is
// already token's — i.e. ready to be claimed — under the engine-wide
// mutex that serializes all ownership mutation.
func (e *Engine) findAvailable(ctx context.Context, token string, group *qrm.ResourcesByName) {
	e.findMu.Lock()
	defer e.findMu.Unlock()

	remaining := group.Names[:0:0]
	for _, name := range group.Names {
		if group.Count <= 0 {
			remaining = append(remaining, name)
			continue
		}

		r, err := e.store.GetByName(ctx, name)
		if err != nil {
			e.logger.Warn("resource missing during findAvailable", slog.String("resource", name))
			remaining = append(remaining, name)
			continue
		}
		if r.Status == qrm.StatusDisabled {
			remaining = append(remaining, name)
			continue
		}

		activeJob, err := e.store.GetActiveJob(ctx, name)
		if err != nil || activeJob.Token != token {
			remaining = append(remaining, name)
			continue
		}

		if r.Token != "" && r.Token != token {
			e.doCancelRequest(ctx, r.Token, qrm.ReasonCanceled, true)
		}
		if err := e.store.PartialFillRequest(ctx, token, name); err != nil {
			e.logger.Error("failed to record partial fill", slog.String("token", token), slog.String("resource", name), slog.String("error", err.Error()))
		}
		group.Count--
	}
	group.Names = remaining
}

func (e *Engine) releaseRemaining(ctx context.Context, token string, group *qrm.ResourcesByName) {
	for _, name := range group.Names {
		if _, err := e.store.RemoveJob(ctx, token, []string{name}); err != nil {
			e.logger.Error("failed to release unused job", slog.String("token", token), slog.String("resource", name), slog.String("error", err.Error()))
			continue
		}
		activeJob, err := e.store.GetActiveJob(ctx, name)
		if err == nil && activeJob.Token != "" {
			e.events.Set(activeJob.Token, qrm.ReasonNone)
		}
	}
	group.Names = nil
}

func (e *Engine) finalize(ctx context.Context, token string) {
	if err := e.store.RemoveOpenRequest(ctx, token); err != nil {
		e.logger.Error("failed to remove open request", slog.String("token", token), slog.String("error", err.Error()))
	}

	names, err := e.store.GetPartialFill(ctx, token)
	if err != nil {
		e.logger.Error("failed to read partial fill", slog.String("token", token), slog.String("error", err.Error()))
		return
	}

	if e.usePendingLogic {
		e.applyPendingLogic(ctx, token, names)
	}

	if err := e.readiness.Await(ctx, names); err != nil {
		e.logger.Warn("readiness wait aborted", slog.String("token", token), slog.String("error", err.Error()))
		return
	}

	resources, err := e.store.GetByNames(ctx, names)
	if err != nil {
		e.logger.Error("failed to resolve granted resources", slog.String("token", token), slog.String("error", err.Error()))
		return
	}

	orig, _, err := e.store.GetOrigRequest(ctx, token)
	if err != nil {
		e.logger.Error("failed to read orig request", slog.String("token", token), slog.String("error", err.Error()))
		return
	}
	ordered, err := e.reorderByOrigTags(ctx, orig, names)
	if err != nil {
		e.logger.Error("failed to reorder granted names", slog.String("token", token), slog.String("error", err.Error()))
		ordered = names
	}

	resp := qrm.ResourcesRequestResponse{
		Names:                ordered,
		Token:                token,
		RequestComplete:      true,
		IsValid:              true,
		IsTokenActiveInQueue: true,
	}
	if err := e.store.SetReqResp(ctx, token, resp); err != nil {
		e.logger.Error("failed to persist final response", slog.String("token", token), slog.String("error", err.Error()))
	}
	if err := e.store.RemovePartiallyFillRequest(ctx, token); err != nil {
		e.logger.Error("failed to clear partial fill", slog.String("token", token), slog.String("error", err.Error()))
	}
	if _, err := e.store.GenerateToken(ctx, token, resources); err != nil {
		e.logger.Error("failed to generate token", slog.String("token", token), slog.String("error", err.Error()))
	}
	e.audit.RecordEvent(token, audit.EventFinalized, ordered)

	if started, ok := e.startTimes.LoadAndDelete(token); ok {
		e.metrics.FillLatency(ctx, time.Since(started.(time.Time)))
	}
	e.metrics.RequestClosed(ctx)
}

// applyPendingLogic implements the optional behavior in §4.3.4: any
// token that previously owned one of the resources just granted to
// token loses all of its other resources too, parked in "pending"
// until an operator reactivates them.
func (e *Engine) applyPendingLogic(ctx context.Context, token string, granted []string) {
	oldTokens := make(map[string]bool)
	for _, name := range granted {
		r, err := e.store.GetByName(ctx, name)
		if err != nil || r.Token == "" || r.Token == token {
			continue
		}
		oldTokens[r.Token] = true
	}

	for old := range oldTokens {
		oldResources, err := e.store.GetTokenResources(ctx, old)
		if err != nil {
			continue
		}
		for _, r := range oldResources {
			if r.Status != qrm.StatusDisabled {
				if err := e.store.SetStatus(ctx, r.Name, qrm.StatusPending); err != nil {
					e.logger.Error("failed to pend resource", slog.String("resource", r.Name), slog.String("error", err.Error()))
				}
			}
		}
		if err := e.store.DestroyToken(ctx, old); err != nil {
			e.logger.Error("failed to destroy superseded token", slog.String("token", old), slog.String("error", err.Error()))
		}
	}
}

// reorderByOrigTags implements the response ordering law: the final
// names list is the by-name groups in their original order, followed
// by each tag group's intersection with the granted set, in tag-group
// order.
func (e *Engine) reorderByOrigTags(ctx context.Context, orig qrm.OrigRequest, granted []string) ([]string, error) {
	grantedSet := make(map[string]bool, len(granted))
	for _, n := range granted {
		grantedSet[n] = true
	}
	used := make(map[string]bool, len(granted))
	var ordered []string

	for _, g := range orig.Names {
		for _, n := range g.Names {
			if grantedSet[n] && !used[n] {
				ordered = append(ordered, n)
				used[n] = true
			}
		}
	}
	for _, tg := range orig.Tags {
		names, err := e.store.GetResourcesNamesByTags(ctx, tg.Tags)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if grantedSet[n] && !used[n] {
				ordered = append(ordered, n)
				used[n] = true
			}
		}
	}
	for _, n := range granted {
		if !used[n] {
			ordered = append(ordered, n)
		}
	}
	return ordered, nil
}

// CancelRequest terminates token's request (open or already filled):
// its bookkeeping is cleared, its queued/active jobs are removed, and
// any resource whose new head-of-queue token is exposed by the removal
// is woken to re-evaluate.
func (e *Engine) CancelRequest(ctx context.Context, token string) qrm.ResourcesRequestResponse {
	e.doCancelRequest(ctx, token, qrm.ReasonCanceled, false)
	return qrm.ResourcesRequestResponse{
		Token:   token,
		Message: fmt.Sprintf("canceled token %s", token),
	}
}

func (e *Engine) doCancelRequest(ctx context.Context, token string, reason qrm.Reason, preempted bool) {
	e.respCache.Invalidate(token)
	if err := e.store.RemoveOpenRequest(ctx, token); err != nil {
		e.logger.Error("failed to remove open request for canceled token", slog.String("token", token), slog.String("error", err.Error()))
	}
	if err := e.store.DeleteTokenLastUpdateTime(ctx, token); err != nil {
		e.logger.Error("failed to clear last-update time", slog.String("token", token), slog.String("error", err.Error()))
	}
	if err := e.store.DeleteAutoManagedToken(ctx, token); err != nil {
		e.logger.Error("failed to clear auto-managed bit", slog.String("token", token), slog.String("error", err.Error()))
	}

	if resp, ok, err := e.store.GetReqRespForToken(ctx, token); err == nil && ok && !resp.IsTokenActiveInQueue {
		resp.IsValid = false
		if err := e.store.SetReqResp(ctx, token, resp); err != nil {
			e.logger.Error("failed to invalidate last response", slog.String("token", token), slog.String("error", err.Error()))
		}
	}

	affected, err := e.store.RemoveJob(ctx, token, nil)
	if err != nil {
		e.logger.Error("failed to remove jobs for canceled token", slog.String("token", token), slog.String("error", err.Error()))
	}
	for _, name := range affected {
		activeJob, err := e.store.GetActiveJob(ctx, name)
		if err == nil && activeJob.Token != "" {
			e.events.Set(activeJob.Token, qrm.ReasonNone)
		}
	}

	e.events.Set(token, reason)
	if reason == qrm.ReasonCanceled {
		e.audit.RecordEvent(token, audit.EventCancelled, nil)
		if _, ok := e.startTimes.LoadAndDelete(token); ok {
			e.metrics.RequestClosed(ctx)
		}
		e.metrics.RequestCancelled(ctx, preempted)
	}
}

// IsRequestActive reports whether token still has in-flight work: it is
// neither fully filled nor terminated by cancellation/validation
// failure. A true result refreshes the token's last-seen timestamp.
func (e *Engine) IsRequestActive(ctx context.Context, token string) (bool, error) {
	filled, err := e.store.IsRequestFilled(ctx, token)
	if err != nil {
		return false, err
	}
	reason := e.events.GetOrCreate(token).Reason()
	terminal := reason == qrm.ReasonCanceled || reason == qrm.ReasonNotValid
	active := !(filled || terminal)
	if active {
		if err := e.store.UpdateTokenLastUpdateTime(ctx, token); err != nil {
			return false, err
		}
	}
	return active, nil
}

// GetResourceReqResp returns token's Last Response, refreshing
// request_complete and is_token_active_in_queue from current state.
func (e *Engine) GetResourceReqResp(ctx context.Context, token string) (qrm.ResourcesRequestResponse, error) {
	if cached, ok := e.respCache.Get(token); ok {
		return cached, nil
	}

	resp, ok, err := e.store.GetReqRespForToken(ctx, token)
	if err != nil {
		return qrm.ResourcesRequestResponse{}, err
	}
	if !ok {
		return qrm.ResourcesRequestResponse{Token: token, IsValid: false, Message: fmt.Sprintf("unknown token in qrm %s", token)}, nil
	}

	active, err := e.IsRequestActive(ctx, token)
	if err != nil {
		return qrm.ResourcesRequestResponse{}, err
	}
	resp.RequestComplete = !active

	inQueue := len(resp.Names) > 0
	for _, name := range resp.Names {
		activeJob, err := e.store.GetActiveJob(ctx, name)
		if err != nil || activeJob.Token != token {
			inQueue = false
			break
		}
	}
	resp.IsTokenActiveInQueue = inQueue

	e.respCache.Set(token, resp)
	return resp, nil
}

// GetNewToken polls the user→active token map until seed's active
// token is assigned, per §4.3.5.
func (e *Engine) GetNewToken(ctx context.Context, seed string) (string, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		active, ok, err := e.store.GetActiveTokenFromUserToken(ctx, seed)
		if err != nil {
			return "", err
		}
		if ok {
			return active, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}
