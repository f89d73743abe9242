// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"os"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

func initFS(_ context.Context, config FSStorageConfig) (*blob.Bucket, error) {
	if config.Directory == "" {
		return nil, fmt.Errorf("filesystem storage requires a directory")
	}

	if err := os.MkdirAll(config.Directory, 0o700); err != nil {
		return nil, err
	}

	return fileblob.OpenBucket(config.Directory, nil)
}
