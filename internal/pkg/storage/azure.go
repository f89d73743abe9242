// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"gocloud.dev/blob"
	"gocloud.dev/blob/azureblob"
)

// initAzure opens a blob container with the account shared key, or with
// the default Azure credential chain when no key is configured.
func initAzure(ctx context.Context, config AzureStorageConfig) (*blob.Bucket, error) {
	if config.AccountName == "" || config.Container == "" {
		return nil, fmt.Errorf("azure storage requires an account name and a container")
	}

	options := azureblob.NewDefaultServiceURLOptions()
	options.AccountName = config.AccountName

	serviceURL, err := azureblob.NewServiceURL(options)
	if err != nil {
		return nil, err
	}

	containerURL, err := url.JoinPath(string(serviceURL), config.Container)
	if err != nil {
		return nil, err
	}

	clientOptions := &container.ClientOptions{}
	clientOptions.Telemetry = policy.TelemetryOptions{
		ApplicationID: applicationID,
	}

	var client *container.Client

	if config.AccountKey != "" {
		sharedKeyCred, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("while creating azure shared key credential: %w", err)
		}
		client, err = container.NewClientWithSharedKeyCredential(containerURL, sharedKeyCred, clientOptions)
		if err != nil {
			return nil, err
		}
	} else {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("while creating azure default credential: %w", err)
		}
		client, err = container.NewClient(containerURL, cred, clientOptions)
		if err != nil {
			return nil, err
		}
	}

	return azureblob.OpenBucket(ctx, client, nil)
}
