// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package adf

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/datafactory/armdatafactory"
)

// ManagementClient is the subset of the Azure management API used
// to provision a factory. All calls are keyed by resource group,
// factory name and resource name.
type ManagementClient interface {
	GetFactory(ctx context.Context, resourceGroup, factoryName string) (*armdatafactory.Factory, error)
	CreateOrUpdateFactory(ctx context.Context, resourceGroup, factoryName string, factory armdatafactory.Factory) (*armdatafactory.Factory, error)
	DeleteFactory(ctx context.Context, resourceGroup, factoryName string) error

	CreateOrUpdateLinkedService(ctx context.Context, resourceGroup, factoryName, name string, linkedService armdatafactory.LinkedServiceResource) (*armdatafactory.LinkedServiceResource, error)
	CreateOrUpdateDataset(ctx context.Context, resourceGroup, factoryName, name string, dataset armdatafactory.DatasetResource) (*armdatafactory.DatasetResource, error)
	CreateOrUpdatePipeline(ctx context.Context, resourceGroup, factoryName, name string, pipeline armdatafactory.PipelineResource) (*armdatafactory.PipelineResource, error)

	// ResourceGroupLocation returns the location of an existing resource group.
	ResourceGroupLocation(ctx context.Context, resourceGroup string) (string, error)
	// KeyVaultExists returns nil if the key vault exists in the resource group,
	// or anywhere in the subscription when resourceGroup is empty.
	KeyVaultExists(ctx context.Context, resourceGroup, vaultName string) error
}

// ClientFactory authenticates against the identity service and
// returns a ManagementClient bound to the credentials subscription.
type ClientFactory interface {
	NewClient(ctx context.Context, creds Credentials) (ManagementClient, error)
}

type ClientFactoryFunc func(ctx context.Context, creds Credentials) (ManagementClient, error)

func (f ClientFactoryFunc) NewClient(ctx context.Context, creds Credentials) (ManagementClient, error) {
	return f(ctx, creds)
}
