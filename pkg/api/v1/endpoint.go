// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package apiv1

import (
	"context"

	v "github.com/RussellLuo/validating/v3"
	"github.com/go-kit/kit/endpoint"
)

type SessionRequest struct {
	Session string `json:"session"`
}

func (r *SessionRequest) Schema() v.Schema {
	return v.Schema{
		v.F("session", r.Session): v.Nonzero[string]().Msg("session is required"),
	}
}

type GetDeploymentResponse struct {
	Deployment *Deployment `json:"deployment"`
	Err        error       `json:"-"`
}

func (r *GetDeploymentResponse) Failed() error { return r.Err }

type ListDeploymentLogsResponse struct {
	Logs []DeploymentLog `json:"logs"`
	Err  error           `json:"-"`
}

func (r *ListDeploymentLogsResponse) Failed() error { return r.Err }

func MakeEndpointOfGetDeployment(s Staging) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*SessionRequest)
		deployment, err := s.GetDeployment(ctx, req.Session)
		return &GetDeploymentResponse{
			Deployment: deployment,
			Err:        err,
		}, nil
	}
}

func MakeEndpointOfListDeploymentLogs(s Staging) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		req := request.(*SessionRequest)
		logs, err := s.ListDeploymentLogs(ctx, req.Session)
		return &ListDeploymentLogsResponse{
			Logs: logs,
			Err:  err,
		}, nil
	}
}
