/*
 * Copyright 2026 The CanvasAI Collab Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package prometheus_test

import (
	"testing"
	gotime "time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasai/collab/server/profiling/prometheus"
)

func TestMetrics(t *testing.T) {
	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	metrics.SetActiveRooms(2)
	metrics.AddParticipants(3)
	metrics.AddOperation("insert", prometheus.ResultApplied)
	metrics.AddMessage("op_submit")
	metrics.AddBroadcastDrop("presence")
	metrics.AddResync()
	metrics.AddLockResult(true)
	metrics.AddLockResult(false)
	metrics.ObserveCheckpoint("memory", 10*gotime.Millisecond)
	metrics.AddCheckpointFailure("memory")
	metrics.AddBackgroundGoroutines("checkpoint")
	metrics.RemoveBackgroundGoroutines("checkpoint")

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["collab_rooms_active"])
	assert.True(t, names["collab_document_operations_total"])
	assert.True(t, names["collab_locks_conflicts_total"])
	assert.True(t, names["collab_checkpoint_duration_seconds"])
	assert.True(t, names["collab_server_version"])
}
