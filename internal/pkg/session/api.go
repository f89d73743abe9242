// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"

	"github.com/RussellLuo/kun/pkg/werror"
	"github.com/RussellLuo/kun/pkg/werror/gcode"
	"go.ciq.dev/adfstage/internal/pkg/rundb"
	apiv1 "go.ciq.dev/adfstage/pkg/api/v1"
	"go.ciq.dev/adfstage/pkg/utils"
)

func apiError(err error) error {
	switch {
	case errors.Is(err, rundb.ErrNoRun):
		return werror.Wrap(gcode.ErrNotFound, err)
	case errors.Is(err, ErrStopped):
		return werror.Wrap(gcode.ErrUnavailable, err)
	}
	return werror.Wrap(gcode.ErrInternal, err)
}

func (h *Handler) GetDeployment(ctx context.Context) (*apiv1.Deployment, error) {
	if h.stopped.Load() {
		return nil, apiError(ErrStopped)
	}

	status, err := h.Status(ctx)
	if err != nil {
		return nil, apiError(err)
	}

	run := status.Run

	deployment := &apiv1.Deployment{
		ID:                run.ID,
		State:             string(run.State),
		Step:              run.Step,
		ErrorKind:         run.ErrorKind,
		Message:           run.Message,
		ResourceGroup:     run.ResourceGroup,
		FactoryName:       run.FactoryName,
		FactoryID:         run.FactoryID,
		ProvisioningState: run.ProvisioningState,
		StartTime:         utils.TimeToString(run.StartTime),
		EndTime:           utils.TimeToString(run.EndTime),
		Resources:         make([]apiv1.DeploymentResource, 0, len(status.Resources)),
	}

	for _, res := range status.Resources {
		deployment.Resources = append(deployment.Resources, apiv1.DeploymentResource{
			Type:              res.Type,
			Name:              res.Name,
			ID:                res.ResourceID,
			ProvisioningState: res.ProvisioningState,
		})
	}

	return deployment, nil
}

func (h *Handler) ListDeploymentLogs(ctx context.Context) ([]apiv1.DeploymentLog, error) {
	if h.stopped.Load() {
		return nil, apiError(ErrStopped)
	}

	logs, err := h.Logs(ctx)
	if err != nil {
		return nil, apiError(err)
	}

	deploymentLogs := make([]apiv1.DeploymentLog, 0, len(logs))

	for _, l := range logs {
		deploymentLogs = append(deploymentLogs, apiv1.DeploymentLog{
			Level:   l.Level,
			Date:    utils.TimeToString(l.Date),
			Step:    l.Step,
			Message: l.Message,
		})
	}

	return deploymentLogs, nil
}
