// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

// Package adftest provides an in-memory adf.ManagementClient recording
// every call it receives.
package adftest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/datafactory/armdatafactory"
	"go.ciq.dev/adfstage/internal/pkg/adf"
)

const (
	OpGetFactory                  = "GetFactory"
	OpCreateOrUpdateFactory       = "CreateOrUpdateFactory"
	OpDeleteFactory               = "DeleteFactory"
	OpCreateOrUpdateLinkedService = "CreateOrUpdateLinkedService"
	OpCreateOrUpdateDataset       = "CreateOrUpdateDataset"
	OpCreateOrUpdatePipeline      = "CreateOrUpdatePipeline"
	OpResourceGroupLocation       = "ResourceGroupLocation"
	OpKeyVaultExists              = "KeyVaultExists"
)

type Call struct {
	Op            string
	ResourceGroup string
	Factory       string
	Name          string
	Payload       any
}

type Client struct {
	mutex sync.Mutex
	calls []Call

	created bool
	polls   int

	// Existing reports the factory as already present before creation.
	Existing bool
	// CreateState is the provisioning state returned by the factory
	// creation, Succeeded when empty.
	CreateState string
	// PollStates are returned by successive GetFactory calls after
	// creation, the last one repeats. Succeeded when empty.
	PollStates []string
	// Errors by operation name or by "operation:resource name".
	Errors map[string]error
	// Location returned for the resource group.
	Location string
	// Vaults maps key vault names to their resource group, every
	// vault exists when nil.
	Vaults map[string]string
	// Block, if not nil, blocks the factory creation until closed.
	Block chan struct{}
}

func (c *Client) record(call Call) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.calls = append(c.calls, call)

	if err, ok := c.Errors[call.Op+":"+call.Name]; ok {
		return err
	}
	return c.Errors[call.Op]
}

// Calls returns a copy of the recorded calls.
func (c *Client) Calls() []Call {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	calls := make([]Call, len(c.calls))
	copy(calls, c.calls)
	return calls
}

// Ops returns the recorded operation names, optionally filtered.
func (c *Client) Ops(filter ...string) []string {
	ops := make([]string, 0)
	for _, call := range c.Calls() {
		if len(filter) == 0 {
			ops = append(ops, call.Op)
			continue
		}
		for _, f := range filter {
			if f == call.Op {
				ops = append(ops, call.Op)
				break
			}
		}
	}
	return ops
}

func factoryID(rg, name string) string {
	return fmt.Sprintf("/subscriptions/sub/resourceGroups/%s/providers/Microsoft.DataFactory/factories/%s", rg, name)
}

func factory(rg, name, state string) *armdatafactory.Factory {
	if state == "" {
		state = adf.StateSucceeded
	}
	return &armdatafactory.Factory{
		ID:   to.Ptr(factoryID(rg, name)),
		Name: to.Ptr(name),
		Properties: &armdatafactory.FactoryProperties{
			ProvisioningState: to.Ptr(state),
		},
	}
}

func (c *Client) GetFactory(_ context.Context, resourceGroup, factoryName string) (*armdatafactory.Factory, error) {
	if err := c.record(Call{Op: OpGetFactory, ResourceGroup: resourceGroup, Factory: factoryName, Name: factoryName}); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.created {
		if c.Existing {
			return factory(resourceGroup, factoryName, adf.StateSucceeded), nil
		}
		return nil, adf.ErrNotFound
	}

	state := adf.StateSucceeded
	if len(c.PollStates) > 0 {
		idx := c.polls
		if idx >= len(c.PollStates) {
			idx = len(c.PollStates) - 1
		}
		state = c.PollStates[idx]
	}
	c.polls++

	return factory(resourceGroup, factoryName, state), nil
}

func (c *Client) CreateOrUpdateFactory(ctx context.Context, resourceGroup, factoryName string, f armdatafactory.Factory) (*armdatafactory.Factory, error) {
	if c.Block != nil {
		select {
		case <-c.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := c.record(Call{Op: OpCreateOrUpdateFactory, ResourceGroup: resourceGroup, Factory: factoryName, Name: factoryName, Payload: f}); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.created = true
	c.mutex.Unlock()

	state := c.CreateState
	if state == "" {
		state = adf.StateSucceeded
	}

	return factory(resourceGroup, factoryName, state), nil
}

func (c *Client) DeleteFactory(_ context.Context, resourceGroup, factoryName string) error {
	if err := c.record(Call{Op: OpDeleteFactory, ResourceGroup: resourceGroup, Factory: factoryName, Name: factoryName}); err != nil {
		return err
	}

	c.mutex.Lock()
	c.created = false
	c.Existing = false
	c.mutex.Unlock()

	return nil
}

func (c *Client) CreateOrUpdateLinkedService(_ context.Context, resourceGroup, factoryName, name string, ls armdatafactory.LinkedServiceResource) (*armdatafactory.LinkedServiceResource, error) {
	if err := c.record(Call{Op: OpCreateOrUpdateLinkedService, ResourceGroup: resourceGroup, Factory: factoryName, Name: name, Payload: ls}); err != nil {
		return nil, err
	}
	ls.ID = to.Ptr(factoryID(resourceGroup, factoryName) + "/linkedservices/" + name)
	ls.Name = to.Ptr(name)
	return &ls, nil
}

func (c *Client) CreateOrUpdateDataset(_ context.Context, resourceGroup, factoryName, name string, ds armdatafactory.DatasetResource) (*armdatafactory.DatasetResource, error) {
	if err := c.record(Call{Op: OpCreateOrUpdateDataset, ResourceGroup: resourceGroup, Factory: factoryName, Name: name, Payload: ds}); err != nil {
		return nil, err
	}
	ds.ID = to.Ptr(factoryID(resourceGroup, factoryName) + "/datasets/" + name)
	ds.Name = to.Ptr(name)
	return &ds, nil
}

func (c *Client) CreateOrUpdatePipeline(_ context.Context, resourceGroup, factoryName, name string, p armdatafactory.PipelineResource) (*armdatafactory.PipelineResource, error) {
	if err := c.record(Call{Op: OpCreateOrUpdatePipeline, ResourceGroup: resourceGroup, Factory: factoryName, Name: name, Payload: p}); err != nil {
		return nil, err
	}
	p.ID = to.Ptr(factoryID(resourceGroup, factoryName) + "/pipelines/" + name)
	p.Name = to.Ptr(name)
	return &p, nil
}

func (c *Client) ResourceGroupLocation(_ context.Context, resourceGroup string) (string, error) {
	if err := c.record(Call{Op: OpResourceGroupLocation, ResourceGroup: resourceGroup, Name: resourceGroup}); err != nil {
		return "", err
	}
	return c.Location, nil
}

func (c *Client) KeyVaultExists(_ context.Context, resourceGroup, vaultName string) error {
	if err := c.record(Call{Op: OpKeyVaultExists, ResourceGroup: resourceGroup, Name: vaultName}); err != nil {
		return err
	}
	if c.Vaults == nil {
		return nil
	}
	group, ok := c.Vaults[vaultName]
	if !ok || (resourceGroup != "" && group != resourceGroup) {
		return fmt.Errorf("key vault %s: %w", vaultName, adf.ErrNotFound)
	}
	return nil
}

// Factory returns a client factory always returning c, or err if not nil.
// Received credentials are appended to creds when not nil.
func Factory(c *Client, err error, creds *[]adf.Credentials) adf.ClientFactory {
	var mutex sync.Mutex

	return adf.ClientFactoryFunc(func(_ context.Context, cr adf.Credentials) (adf.ManagementClient, error) {
		if creds != nil {
			mutex.Lock()
			*creds = append(*creds, cr)
			mutex.Unlock()
		}
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// ResponseError returns an ARM response error with the given status code.
func ResponseError(statusCode int, code string) error {
	return &azcore.ResponseError{
		ErrorCode:  code,
		StatusCode: statusCode,
		RawResponse: &http.Response{
			StatusCode: statusCode,
			Status:     fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
			Header:     make(http.Header),
			Body:       http.NoBody,
			Request: &http.Request{
				Method: http.MethodPut,
				URL: &url.URL{
					Scheme: "https",
					Host:   "management.azure.com",
					Path:   "/subscriptions/sub",
				},
			},
		},
	}
}
