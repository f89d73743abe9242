// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package apiv1

import (
	"context"
)

const URLPath = "/api/v1"

// Deployment resources.
type DeploymentResource struct {
	Type              string `json:"type"`
	Name              string `json:"name"`
	ID                string `json:"id,omitempty"`
	ProvisioningState string `json:"provisioning_state,omitempty"`
}

// Deployment status.
type Deployment struct {
	ID                string               `json:"id"`
	State             string               `json:"state"`
	Step              string               `json:"step,omitempty"`
	ErrorKind         string               `json:"error_kind,omitempty"`
	Message           string               `json:"message,omitempty"`
	ResourceGroup     string               `json:"resource_group"`
	FactoryName       string               `json:"factory_name"`
	FactoryID         string               `json:"factory_id,omitempty"`
	ProvisioningState string               `json:"provisioning_state,omitempty"`
	StartTime         string               `json:"start_time"`
	EndTime           string               `json:"end_time,omitempty"`
	Resources         []DeploymentResource `json:"resources"`
}

// Deployment logs.
type DeploymentLog struct {
	Level   string `json:"level"`
	Date    string `json:"date"`
	Step    string `json:"step"`
	Message string `json:"message"`
}

// Staging reports the data factory deployments requested by
// wizard sessions.
type Staging interface {
	// Get the latest deployment of a session.
	GetDeployment(ctx context.Context, session string) (deployment *Deployment, err error)

	// List the logs of the latest deployment of a session.
	ListDeploymentLogs(ctx context.Context, session string) (logs []DeploymentLog, err error)
}
