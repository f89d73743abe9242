// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/s3blob"
)

// s3Config returns the AWS configuration for an S3 compatible endpoint,
// static credentials are only set when configured, the default
// provider chain applies otherwise.
func s3Config(config S3StorageConfig) *aws.Config {
	awsConfig := &aws.Config{
		S3ForcePathStyle: aws.Bool(true),
		DisableSSL:       aws.Bool(config.DisableSSL),
	}

	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
	}
	if config.Region != "" {
		awsConfig.Region = aws.String(config.Region)
	}
	if config.AccessKeyID != "" || config.SecretAccessKey != "" || config.SessionToken != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			config.AccessKeyID,
			config.SecretAccessKey,
			config.SessionToken,
		)
	}

	return awsConfig
}

func initS3(ctx context.Context, config S3StorageConfig) (*blob.Bucket, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket")
	}

	sess, err := session.NewSession(s3Config(config))
	if err != nil {
		return nil, fmt.Errorf("while creating s3 session: %w", err)
	}

	return s3blob.OpenBucket(ctx, sess, config.Bucket, nil)
}
