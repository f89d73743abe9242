// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

// Package storage opens the bucket holding session database snapshots.
package storage

import (
	"context"
	"fmt"
	"strings"

	"gocloud.dev/blob"
)

const applicationID = "adfstage"

// GetPrefix normalizes the configured key prefix: no leading
// slash and a trailing one, empty for the bucket root.
func GetPrefix(config Config) string {
	prefix := strings.Trim(config.Prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// Open opens the configured bucket, keys are scoped by the
// configured prefix.
func Open(ctx context.Context, config Config) (*blob.Bucket, error) {
	var (
		bucket *blob.Bucket
		err    error
	)

	switch config.Driver {
	case S3StorageDriver:
		bucket, err = initS3(ctx, config.S3)
	case FSStorageDriver:
		bucket, err = initFS(ctx, config.Filesystem)
	case GCSStorageDriver:
		bucket, err = initGCS(ctx, config.GCS)
	case AzureStorageDriver:
		bucket, err = initAzure(ctx, config.Azure)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", config.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("while opening %s storage: %w", config.Driver, err)
	}

	if prefix := GetPrefix(config); prefix != "" {
		bucket = blob.PrefixedBucket(bucket, prefix)
	}

	return bucket, nil
}
