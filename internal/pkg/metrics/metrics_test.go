// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.ciq.dev/adfstage/internal/pkg/adf"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.Observe(ctx, adf.Event{Step: adf.StepFactory, Status: adf.EventStarted})
	m.Observe(ctx, adf.Event{Step: adf.StepFactory, Status: adf.EventProgress})
	m.Observe(ctx, adf.Event{Step: adf.StepFactory, Status: adf.EventProgress})
	m.Observe(ctx, adf.Event{Step: adf.StepFactory, Status: adf.EventDone, Duration: time.Second})
	m.Observe(ctx, adf.Event{Step: adf.StepPipeline, Status: adf.EventFailed})

	require.Equal(t, float64(1), testutil.ToFloat64(m.steps.WithLabelValues("factory", "started")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.steps.WithLabelValues("factory", "done")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.steps.WithLabelValues("pipeline", "failed")))
	require.Equal(t, float64(2), testutil.ToFloat64(m.factoryPolls))

	m.RunStarted()
	m.RunStarted()
	require.Equal(t, float64(2), testutil.ToFloat64(m.runsInProgress))

	m.RunFinished(nil)
	m.RunFinished(fmt.Errorf("wrapped: %w", adf.ErrTimeout))
	require.Equal(t, float64(0), testutil.ToFloat64(m.runsInProgress))
	require.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("succeeded")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("timeout")))

	m.SessionAdded()
	m.SessionAdded()
	m.SessionRemoved()
	require.Equal(t, float64(1), testutil.ToFloat64(m.sessions))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	m.Observe(context.Background(), adf.Event{Step: adf.StepFactory, Status: adf.EventDone})
	m.RunStarted()
	m.RunFinished(nil)
	m.SessionAdded()
	m.SessionRemoved()
}
