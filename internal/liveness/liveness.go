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

// Package liveness turns periodic progress-file writes into a process
// liveness probe: as long as the reporter's loop is running and the
// configured health check keeps passing, an external prober (a
// Kubernetes liveness probe watching the file's mtime, or a plain
// `find -mmin` check) can tell the server is making progress.
package liveness

import (
	"context"
	"log/slog"
	"time"

	"go.corp.nvidia.com/qrm/utils/progress_check"
)

// HealthCheck reports whether the server is healthy enough to claim
// liveness. A nil HealthCheck always passes.
type HealthCheck func(ctx context.Context) error

// Reporter periodically writes a heartbeat file via a progress_check.ProgressWriter,
// skipping the write (and logging) whenever the configured HealthCheck fails.
type Reporter struct {
	writer   *progress_check.ProgressWriter
	interval time.Duration
	check    HealthCheck
	logger   *slog.Logger
}

// NewReporter creates a Reporter that writes filename every interval.
// A non-positive interval defaults to 10 seconds. check may be nil.
func NewReporter(filename string, interval time.Duration, check HealthCheck, logger *slog.Logger) (*Reporter, error) {
	writer, err := progress_check.NewProgressWriter(filename)
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{writer: writer, interval: interval, check: check, logger: logger}, nil
}

// Run writes the heartbeat file on every tick until ctx is canceled.
// It writes once immediately so a prober doesn't see a stale or
// missing file during the first interval after startup.
func (r *Reporter) Run(ctx context.Context) {
	r.tick(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Reporter) tick(ctx context.Context) {
	if r.check != nil {
		if err := r.check(ctx); err != nil {
			r.logger.Warn("skipping liveness heartbeat, health check failed", slog.String("error", err.Error()))
			return
		}
	}
	if err := r.writer.ReportProgress(); err != nil {
		r.logger.Error("failed to write liveness heartbeat", slog.String("error", err.Error()))
	}
}
