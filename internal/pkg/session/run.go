// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.ciq.dev/adfstage/internal/pkg/adf"
	"go.ciq.dev/adfstage/internal/pkg/log"
	"go.ciq.dev/adfstage/internal/pkg/rundb"
)

type recorderKey struct{}

// recorder writes the events of a provisioning run
// to the session databases.
type recorder struct {
	handler *Handler
	run     *rundb.Run
}

// Observe records a provisioning event into the run log of the session
// executing the run, it's an adf.Observer.
func Observe(ctx context.Context, event adf.Event) {
	r, ok := ctx.Value(recorderKey{}).(*recorder)
	if !ok {
		return
	}
	r.observe(ctx, event)
}

func (r *recorder) observe(ctx context.Context, event adf.Event) {
	ctx = context.WithoutCancel(ctx)

	var (
		level   = rundb.LogInfo
		message string
	)

	switch event.Status {
	case adf.EventStarted:
		r.run.Step = event.Step.String()
		if err := r.handler.statusDB.UpdateRun(ctx, r.run); err != nil {
			r.handler.logger.Error("run status update failed", "error", err.Error())
		}
		message = fmt.Sprintf("%s started", event.Resource)
	case adf.EventDone:
		message = fmt.Sprintf("%s completed in %s", event.Resource, event.Duration.Round(time.Millisecond))
		if event.Message != "" {
			message = fmt.Sprintf("%s (%s)", message, event.Message)
		}
	case adf.EventProgress:
		message = fmt.Sprintf("%s provisioning state %s", event.Resource, event.Message)
	case adf.EventFailed:
		level = rundb.LogError
		message = event.Err.Error()
	}

	if event.Step == adf.StepRollback && event.Status != adf.EventFailed {
		level = rundb.LogWarn
	}

	if err := r.handler.logDB.AddLog(ctx, r.run.ID, level, event.Step.String(), message); err != nil {
		r.handler.logger.Error("run log insertion failed", "error", err.Error())
	}
}

func (h *Handler) execute(ctx context.Context, runID string) {
	defer h.running.Store(false)

	logger := h.logger.With("run", runID)
	ctx = log.SetContextLogger(ctx, logger)

	run, err := h.statusDB.GetRun(ctx, runID)
	if err != nil {
		logger.Error("provisioning run not found", "error", err.Error())
		return
	}

	params, err := h.Params()
	if err == nil {
		run.State = rundb.RunRunning
		err = h.statusDB.UpdateRun(ctx, run)
	}
	if err != nil {
		h.finish(ctx, run, nil, err)
		return
	}

	h.params.Metrics.RunStarted()

	logger.Info("provisioning started", "factory", params.FactoryName, "resource_group", params.ResourceGroup)

	runCtx, cancel := context.WithTimeout(ctx, h.params.RunTimeout)
	defer cancel()

	runCtx = context.WithValue(runCtx, recorderKey{}, &recorder{handler: h, run: run})

	result, err := h.params.Provisioner.Provision(runCtx, params)
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, adf.ErrTimeout) {
		err = fmt.Errorf("provisioning exceeded %s: %w: %w", h.params.RunTimeout, adf.ErrTimeout, err)
	}

	h.params.Metrics.RunFinished(err)

	h.finish(ctx, run, result, err)
}

// finish records the outcome of a run and pushes
// the session databases to the bucket.
func (h *Handler) finish(ctx context.Context, run *rundb.Run, result *adf.Result, err error) {
	logger := log.GetContextLogger(ctx)

	// the run outcome is recorded even if the session is stopping
	ctx = context.WithoutCancel(ctx)

	run.EndTime = time.Now().Unix()

	if err != nil {
		run.State = rundb.RunFailed
		run.Message = err.Error()
		run.ErrorKind = adf.KindName(adf.Kind(err))
		if run.ErrorKind == "" {
			run.ErrorKind = adf.KindName(adf.ErrProvisioning)
		}

		var adfErr *adf.Error
		if errors.As(err, &adfErr) {
			run.Step = adfErr.Step.String()
		}

		logger.Error("provisioning failed", "error", run.Message, "kind", run.ErrorKind)
	} else {
		run.State = rundb.RunSucceeded
		run.Message = ""
		logger.Info("provisioning succeeded", "factory", run.FactoryName)
	}

	if result != nil {
		run.FactoryID = result.FactoryID
		run.ProvisioningState = result.ProvisioningState

		resources := make([]rundb.Resource, 0, len(result.Created))
		for _, res := range result.Created {
			resources = append(resources, rundb.Resource{
				Type:              string(res.Type),
				Name:              res.Name,
				ResourceID:        res.ID,
				ProvisioningState: res.ProvisioningState,
			})
		}
		if err := h.statusDB.SetResources(ctx, run.ID, resources); err != nil {
			logger.Error("run resources update failed", "error", err.Error())
		}
	}

	if err := h.statusDB.UpdateRun(ctx, run); err != nil {
		logger.Error("run status update failed", "error", err.Error())
	}

	if err := h.statusDB.Sync(ctx); err != nil {
		logger.Error("status database sync failed", "error", err.Error())
	}
	if err := h.logDB.Sync(ctx); err != nil {
		logger.Error("log database sync failed", "error", err.Error())
	}
}
