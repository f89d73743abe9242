// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetPrefix(t *testing.T) {
	tests := []struct {
		prefix   string
		expected string
	}{
		{"", ""},
		{"/", ""},
		{"sessions", "sessions/"},
		{"/sessions", "sessions/"},
		{"sessions/", "sessions/"},
		{"/adfstage/sessions/", "adfstage/sessions/"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			require.Equal(t, tt.expected, GetPrefix(Config{Prefix: tt.prefix}))
		})
	}
}

func TestOpenFilesystem(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "bucket")

	bucket, err := Open(ctx, Config{
		Driver: FSStorageDriver,
		Prefix: "/sessions",
		Filesystem: FSStorageConfig{
			Directory: dir,
		},
	})
	require.NoError(t, err)
	defer bucket.Close()

	require.NoError(t, bucket.WriteAll(ctx, "abc/status.db.lz4", []byte("data"), nil))

	data, err := os.ReadFile(filepath.Join(dir, "sessions", "abc", "status.db.lz4"))
	require.NoError(t, err)
	require.Equal(t, "data", string(data))
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Driver: "ftp"})
	require.ErrorContains(t, err, "unknown storage driver")

	_, err = Open(ctx, Config{Driver: FSStorageDriver})
	require.Error(t, err)

	_, err = Open(ctx, Config{Driver: S3StorageDriver})
	require.Error(t, err)

	_, err = Open(ctx, Config{Driver: AzureStorageDriver, Azure: AzureStorageConfig{AccountName: "account"}})
	require.Error(t, err)
}

func TestS3Config(t *testing.T) {
	config := s3Config(S3StorageConfig{
		Endpoint:        "localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "id",
		SecretAccessKey: "key",
		DisableSSL:      true,
	})

	require.Equal(t, "localhost:9000", *config.Endpoint)
	require.Equal(t, "us-east-1", *config.Region)
	require.True(t, *config.DisableSSL)
	require.True(t, *config.S3ForcePathStyle)

	value, err := config.Credentials.Get()
	require.NoError(t, err)
	require.Equal(t, "id", value.AccessKeyID)
	require.Equal(t, "key", value.SecretAccessKey)

	require.Nil(t, s3Config(S3StorageConfig{}).Credentials)
}
