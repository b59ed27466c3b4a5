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

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"
	gotime "time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/canvasai/collab/internal/version"
)

const (
	namespace     = "collab"
	kindLabel     = "kind"
	resultLabel   = "result"
	laneLabel     = "lane"
	taskTypeLabel = "task_type"
	typeLabel     = "message_type"
	backendLabel  = "backend"
)

// Operation results.
const (
	ResultApplied   = "applied"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
)

// Metrics manages the metric information of the collab server.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	activeRooms         prometheus.Gauge
	activeParticipants  prometheus.Gauge
	operationsTotal     *prometheus.CounterVec
	messagesTotal       *prometheus.CounterVec
	broadcastDropsTotal *prometheus.CounterVec
	resyncsTotal        prometheus.Counter
	lockGrantsTotal     prometheus.Counter
	lockConflictsTotal  prometheus.Counter

	checkpointSeconds       *prometheus.HistogramVec
	checkpointFailuresTotal *prometheus.CounterVec

	backgroundGoroutinesTotal *prometheus.GaugeVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		activeRooms: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "active",
			Help:      "The number of rooms held in memory.",
		}),
		activeParticipants: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rooms",
			Name:      "participants",
			Help:      "The number of participants connected to a room.",
		}),
		operationsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "document",
			Name:      "operations_total",
			Help:      "The total count of submitted operations by kind and result.",
		}, []string{kindLabel, resultLabel}),
		messagesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "messages_total",
			Help:      "The total count of messages received from participants.",
		}, []string{typeLabel}),
		broadcastDropsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "drops_total",
			Help:      "The total count of outbound messages dropped under backpressure.",
		}, []string{laneLabel}),
		resyncsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "resyncs_total",
			Help:      "The total count of forced resynchronizations.",
		}),
		lockGrantsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locks",
			Name:      "grants_total",
			Help:      "The total count of granted element locks.",
		}),
		lockConflictsTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "locks",
			Name:      "conflicts_total",
			Help:      "The total count of lock requests refused because another participant held the lock.",
		}),
		checkpointSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "checkpoint",
			Name:      "duration_seconds",
			Help:      "The time spent saving a room snapshot.",
		}, []string{backendLabel}),
		checkpointFailuresTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkpoint",
			Name:      "failures_total",
			Help:      "The total count of failed snapshot saves, retries included.",
		}, []string{backendLabel}),
		backgroundGoroutinesTotal: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "background",
			Name:      "goroutines_total",
			Help:      "The total number of goroutines attached by a particular background task.",
		}, []string{taskTypeLabel}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// SetActiveRooms sets the number of rooms held in memory.
func (m *Metrics) SetActiveRooms(count int) {
	m.activeRooms.Set(float64(count))
}

// AddParticipants adds delta to the number of connected participants.
func (m *Metrics) AddParticipants(delta int) {
	m.activeParticipants.Add(float64(delta))
}

// AddOperation counts a submitted operation.
func (m *Metrics) AddOperation(kind, result string) {
	m.operationsTotal.With(prometheus.Labels{
		kindLabel:   kind,
		resultLabel: result,
	}).Inc()
}

// AddMessage counts a received message.
func (m *Metrics) AddMessage(msgType string) {
	m.messagesTotal.With(prometheus.Labels{typeLabel: msgType}).Inc()
}

// AddBroadcastDrop counts an outbound message dropped from the given lane.
func (m *Metrics) AddBroadcastDrop(lane string) {
	m.broadcastDropsTotal.With(prometheus.Labels{laneLabel: lane}).Inc()
}

// AddResync counts a forced resynchronization.
func (m *Metrics) AddResync() {
	m.resyncsTotal.Inc()
}

// AddLockResult counts a lock request.
func (m *Metrics) AddLockResult(granted bool) {
	if granted {
		m.lockGrantsTotal.Inc()
		return
	}
	m.lockConflictsTotal.Inc()
}

// ObserveCheckpoint records the duration of a snapshot save.
func (m *Metrics) ObserveCheckpoint(backend string, d gotime.Duration) {
	m.checkpointSeconds.With(prometheus.Labels{backendLabel: backend}).Observe(d.Seconds())
}

// AddCheckpointFailure counts a failed snapshot save.
func (m *Metrics) AddCheckpointFailure(backend string) {
	m.checkpointFailuresTotal.With(prometheus.Labels{backendLabel: backend}).Inc()
}

// AddBackgroundGoroutines adds the number of goroutines attached by a
// particular background task.
func (m *Metrics) AddBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Inc()
}

// RemoveBackgroundGoroutines removes the number of goroutines attached by a
// particular background task.
func (m *Metrics) RemoveBackgroundGoroutines(taskType string) {
	m.backgroundGoroutinesTotal.With(prometheus.Labels{
		taskTypeLabel: taskType,
	}).Dec()
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
