// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.ciq.dev/adfstage/internal/pkg/adf"
)

const namespace = "adfstage"

// Metrics holds the provisioning and session metrics.
type Metrics struct {
	runs           *prometheus.CounterVec
	runsInProgress prometheus.Gauge
	steps          *prometheus.CounterVec
	stepDuration   *prometheus.HistogramVec
	factoryPolls   prometheus.Counter
	sessions       prometheus.Gauge
}

// New creates the metrics and registers them to reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_runs_total",
			Help:      "Total number of finished provisioning runs by result",
		}, []string{"result"}),
		runsInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provisioning_runs_in_progress",
			Help:      "Number of provisioning runs in progress",
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_steps_total",
			Help:      "Total number of provisioning steps by step and status",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provisioning_step_duration_seconds",
			Help:      "Duration of successful provisioning steps",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"step"}),
		factoryPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "factory_polls_total",
			Help:      "Total number of factory provisioning state polls",
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Number of active wizard sessions",
		}),
	}

	reg.MustRegister(m.runs, m.runsInProgress, m.steps, m.stepDuration, m.factoryPolls, m.sessions)

	return m
}

// Observe records a provisioning event, it's an adf.Observer.
func (m *Metrics) Observe(_ context.Context, event adf.Event) {
	if m == nil {
		return
	}

	switch event.Status {
	case adf.EventProgress:
		m.factoryPolls.Inc()
		return
	case adf.EventDone:
		m.stepDuration.WithLabelValues(event.Step.String()).Observe(event.Duration.Seconds())
	}

	m.steps.WithLabelValues(event.Step.String(), string(event.Status)).Inc()
}

// RunStarted records the start of a provisioning run.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsInProgress.Inc()
}

// RunFinished records the result of a provisioning run, err carries
// the error kind for failed runs.
func (m *Metrics) RunFinished(err error) {
	if m == nil {
		return
	}

	m.runsInProgress.Dec()

	result := "succeeded"
	if err != nil {
		result = adf.KindName(adf.Kind(err))
		if result == "" {
			result = "failed"
		}
	}

	m.runs.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionAdded() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

func (m *Metrics) SessionRemoved() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}
