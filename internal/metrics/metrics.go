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

// Package metrics names the QRM-specific OTLP instruments recorded
// through utils/metrics-go's MetricCreator: open-request volume,
// per-resource-status counts, per-resource job-queue depth, and fill
// latency. It adds no new metrics machinery of its own — it is the
// fixed set of (name, unit, description) triples the allocation engine
// reports through.
package metrics

import (
	"context"
	"time"

	qrmmetrics "go.corp.nvidia.com/qrm/utils/metrics-go"
)

const (
	metricOpenRequests  = "qrm.open_requests"
	metricResourceCount = "qrm.resources.by_status"
	metricQueueDepth    = "qrm.resource.queue_depth"
	metricFillLatency   = "qrm.request.fill_latency"
	metricCancellations = "qrm.requests.cancelled"
)

// Recorder reports QRM allocation-engine metrics through an already
// initialized MetricCreator. A nil Recorder is a valid no-op receiver.
type Recorder struct {
	mc *qrmmetrics.MetricCreator
}

// New wraps mc. Passing a nil mc (metrics disabled) yields a Recorder
// whose methods are all no-ops.
func New(mc *qrmmetrics.MetricCreator) *Recorder {
	return &Recorder{mc: mc}
}

// RequestAccepted records a new open request entering the queue.
func (r *Recorder) RequestAccepted(ctx context.Context) {
	if r == nil || r.mc == nil {
		return
	}
	_ = r.mc.RecordUpDownCounter(ctx, metricOpenRequests, 1, "1", "number of in-flight open requests", nil)
}

// RequestClosed records an open request leaving the queue, whether by
// being filled or by cancellation/invalidation.
func (r *Recorder) RequestClosed(ctx context.Context) {
	if r == nil || r.mc == nil {
		return
	}
	_ = r.mc.RecordUpDownCounter(ctx, metricOpenRequests, -1, "1", "number of in-flight open requests", nil)
}

// RequestCancelled records a cancellation, tagged by whether it was
// user-initiated or a preemption triggered by another request.
func (r *Recorder) RequestCancelled(ctx context.Context, preempted bool) {
	if r == nil || r.mc == nil {
		return
	}
	reason := "user"
	if preempted {
		reason = "preempted"
	}
	_ = r.mc.RecordCounter(ctx, metricCancellations, 1, "1", "number of cancelled requests", map[string]string{"reason": reason})
}

// ResourceStatusChanged records a resource's status transition as a
// +1/-1 pair against the resource's old and new status.
func (r *Recorder) ResourceStatusChanged(ctx context.Context, from, to string) {
	if r == nil || r.mc == nil {
		return
	}
	if from != "" {
		_ = r.mc.RecordUpDownCounter(ctx, metricResourceCount, -1, "1", "resource count by status", map[string]string{"status": from})
	}
	_ = r.mc.RecordUpDownCounter(ctx, metricResourceCount, 1, "1", "resource count by status", map[string]string{"status": to})
}

// QueueDepth adds depth to the job-queue-depth up-down counter for one
// resource. The counter sums every value passed to it; it is not reset
// to depth on each call.
func (r *Recorder) QueueDepth(ctx context.Context, resourceName string, depth int) {
	if r == nil || r.mc == nil {
		return
	}
	_ = r.mc.RecordUpDownCounter(ctx, metricQueueDepth, int64(depth), "1", "job queue depth per resource", map[string]string{"resource": resourceName})
}

// FillLatency records the wall-clock time between a request's
// acceptance and its finalize step.
func (r *Recorder) FillLatency(ctx context.Context, d time.Duration) {
	if r == nil || r.mc == nil {
		return
	}
	_ = r.mc.RecordHistogram(ctx, metricFillLatency, d.Seconds(), "s", "time from request acceptance to finalize", nil)
}
