// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"os"

	"gocloud.dev/blob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/gcp"
	"golang.org/x/oauth2/google"
	storagev1 "google.golang.org/api/storage/v1"
)

func gcsCredentials(ctx context.Context, keyfile string) (*google.Credentials, error) {
	if keyfile == "" {
		return google.FindDefaultCredentials(ctx, storagev1.DevstorageReadWriteScope)
	}

	data, err := os.ReadFile(keyfile)
	if err != nil {
		return nil, fmt.Errorf("while reading GCS keyfile: %w", err)
	}

	return google.CredentialsFromJSON(ctx, data, storagev1.DevstorageReadWriteScope)
}

func initGCS(ctx context.Context, config GCSStorageConfig) (*blob.Bucket, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("gcs storage requires a bucket")
	}

	creds, err := gcsCredentials(ctx, config.Keyfile)
	if err != nil {
		return nil, err
	}

	client, err := gcp.NewHTTPClient(
		gcp.DefaultTransport(),
		gcp.CredentialsTokenSource(creds),
	)
	if err != nil {
		return nil, err
	}

	return gcsblob.OpenBucket(ctx, client, config.Bucket, nil)
}
