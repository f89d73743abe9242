// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package adfstage

import (
	"context"
	"errors"

	"github.com/RussellLuo/kun/pkg/werror"
	"github.com/RussellLuo/kun/pkg/werror/gcode"
	"go.ciq.dev/adfstage/internal/pkg/session"
	apiv1 "go.ciq.dev/adfstage/pkg/api/v1"
)

var _ apiv1.Staging = &Service{}

func checkSession(id string) error {
	if !session.ValidID(id) {
		return werror.Wrapf(gcode.ErrInvalidArgument, "invalid session identifier %q", id)
	}
	return nil
}

func (s *Service) handler(ctx context.Context, id string) (*session.Handler, error) {
	if err := checkSession(id); err != nil {
		return nil, err
	}
	h, err := s.manager.Lookup(ctx, id)
	if errors.Is(err, session.ErrUnknownSession) {
		return nil, werror.Wrapf(gcode.ErrNotFound, "session %s not found", id)
	} else if err != nil {
		return nil, werror.Wrap(gcode.ErrUnavailable, err)
	}
	return h, nil
}

func (s *Service) GetDeployment(ctx context.Context, id string) (deployment *apiv1.Deployment, err error) {
	h, err := s.handler(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.GetDeployment(ctx)
}

func (s *Service) ListDeploymentLogs(ctx context.Context, id string) (logs []apiv1.DeploymentLog, err error) {
	h, err := s.handler(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.ListDeploymentLogs(ctx)
}
