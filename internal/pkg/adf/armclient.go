// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package adf

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/datafactory/armdatafactory"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/keyvault/armkeyvault"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

const (
	CloudPublic     = "public"
	CloudChina      = "china"
	CloudGovernment = "government"
)

func cloudConfiguration(name string) (cloud.Configuration, error) {
	switch strings.ToLower(name) {
	case CloudPublic, "":
		return cloud.AzurePublic, nil
	case CloudChina:
		return cloud.AzureChina, nil
	case CloudGovernment:
		return cloud.AzureGovernment, nil
	}
	return cloud.Configuration{}, fmt.Errorf("unknown azure cloud %q", name)
}

// ARMClientFactory creates ManagementClient backed by the Azure
// resource manager SDK and authenticated with a client secret.
type ARMClientFactory struct {
	cloud         cloud.Configuration
	applicationID string
}

func NewARMClientFactory(cloudName, applicationID string) (*ARMClientFactory, error) {
	c, err := cloudConfiguration(cloudName)
	if err != nil {
		return nil, err
	}
	return &ARMClientFactory{
		cloud:         c,
		applicationID: applicationID,
	}, nil
}

func (f *ARMClientFactory) clientOptions() azcore.ClientOptions {
	return azcore.ClientOptions{
		Cloud: f.cloud,
		Telemetry: policy.TelemetryOptions{
			ApplicationID: f.applicationID,
		},
	}
}

func (f *ARMClientFactory) NewClient(ctx context.Context, creds Credentials) (ManagementClient, error) {
	cred, err := azidentity.NewClientSecretCredential(
		creds.TenantID,
		creds.ClientID,
		creds.ClientSecret,
		&azidentity.ClientSecretCredentialOptions{
			ClientOptions: f.clientOptions(),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("while creating client secret credential: %w", err)
	}

	// acquire a token right away so that bad credentials
	// are reported before any resource is touched
	rm, ok := f.cloud.Services[cloud.ResourceManager]
	if !ok {
		return nil, fmt.Errorf("no resource manager endpoint for the configured cloud")
	}
	_, err = cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{strings.TrimSuffix(rm.Audience, "/") + "/.default"},
	})
	if err != nil {
		return nil, err
	}

	options := &arm.ClientOptions{
		ClientOptions: f.clientOptions(),
	}

	client := &armClient{}

	subscriptionID := creds.SubscriptionID

	if client.factories, err = armdatafactory.NewFactoriesClient(subscriptionID, cred, options); err != nil {
		return nil, err
	}
	if client.linkedServices, err = armdatafactory.NewLinkedServicesClient(subscriptionID, cred, options); err != nil {
		return nil, err
	}
	if client.datasets, err = armdatafactory.NewDatasetsClient(subscriptionID, cred, options); err != nil {
		return nil, err
	}
	if client.pipelines, err = armdatafactory.NewPipelinesClient(subscriptionID, cred, options); err != nil {
		return nil, err
	}
	if client.resourceGroups, err = armresources.NewResourceGroupsClient(subscriptionID, cred, options); err != nil {
		return nil, err
	}
	if client.vaults, err = armkeyvault.NewVaultsClient(subscriptionID, cred, options); err != nil {
		return nil, err
	}

	return client, nil
}

type armClient struct {
	factories      *armdatafactory.FactoriesClient
	linkedServices *armdatafactory.LinkedServicesClient
	datasets       *armdatafactory.DatasetsClient
	pipelines      *armdatafactory.PipelinesClient
	resourceGroups *armresources.ResourceGroupsClient
	vaults         *armkeyvault.VaultsClient
}

func (c *armClient) GetFactory(ctx context.Context, resourceGroup, factoryName string) (*armdatafactory.Factory, error) {
	resp, err := c.factories.Get(ctx, resourceGroup, factoryName, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Factory, nil
}

func (c *armClient) CreateOrUpdateFactory(ctx context.Context, resourceGroup, factoryName string, factory armdatafactory.Factory) (*armdatafactory.Factory, error) {
	resp, err := c.factories.CreateOrUpdate(ctx, resourceGroup, factoryName, factory, nil)
	if err != nil {
		return nil, err
	}
	return &resp.Factory, nil
}

func (c *armClient) DeleteFactory(ctx context.Context, resourceGroup, factoryName string) error {
	_, err := c.factories.Delete(ctx, resourceGroup, factoryName, nil)
	return err
}

func (c *armClient) CreateOrUpdateLinkedService(ctx context.Context, resourceGroup, factoryName, name string, linkedService armdatafactory.LinkedServiceResource) (*armdatafactory.LinkedServiceResource, error) {
	resp, err := c.linkedServices.CreateOrUpdate(ctx, resourceGroup, factoryName, name, linkedService, nil)
	if err != nil {
		return nil, err
	}
	return &resp.LinkedServiceResource, nil
}

func (c *armClient) CreateOrUpdateDataset(ctx context.Context, resourceGroup, factoryName, name string, dataset armdatafactory.DatasetResource) (*armdatafactory.DatasetResource, error) {
	resp, err := c.datasets.CreateOrUpdate(ctx, resourceGroup, factoryName, name, dataset, nil)
	if err != nil {
		return nil, err
	}
	return &resp.DatasetResource, nil
}

func (c *armClient) CreateOrUpdatePipeline(ctx context.Context, resourceGroup, factoryName, name string, pipeline armdatafactory.PipelineResource) (*armdatafactory.PipelineResource, error) {
	resp, err := c.pipelines.CreateOrUpdate(ctx, resourceGroup, factoryName, name, pipeline, nil)
	if err != nil {
		return nil, err
	}
	return &resp.PipelineResource, nil
}

func (c *armClient) ResourceGroupLocation(ctx context.Context, resourceGroup string) (string, error) {
	resp, err := c.resourceGroups.Get(ctx, resourceGroup, nil)
	if err != nil {
		return "", err
	}
	if resp.Location == nil {
		return "", nil
	}
	return *resp.Location, nil
}

func (c *armClient) KeyVaultExists(ctx context.Context, resourceGroup, vaultName string) error {
	if resourceGroup != "" {
		_, err := c.vaults.Get(ctx, resourceGroup, vaultName, nil)
		return err
	}

	pager := c.vaults.NewListBySubscriptionPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, vault := range page.Value {
			if vault != nil && vault.Name != nil && strings.EqualFold(*vault.Name, vaultName) {
				return nil
			}
		}
	}

	return fmt.Errorf("key vault %s not found in subscription: %w", vaultName, ErrNotFound)
}
