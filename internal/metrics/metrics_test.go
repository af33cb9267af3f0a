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

package metrics

import (
	"context"
	"testing"
	"time"
)

func TestRecorderMethodsAreSafeWithoutAMetricCreator(t *testing.T) {
	var r *Recorder
	ctx := context.Background()

	r.RequestAccepted(ctx)
	r.RequestClosed(ctx)
	r.RequestCancelled(ctx, true)
	r.ResourceStatusChanged(ctx, "active", "pending")
	r.QueueDepth(ctx, "gpu0", 3)
	r.FillLatency(ctx, 2*time.Second)

	r2 := New(nil)
	r2.RequestAccepted(ctx)
}
