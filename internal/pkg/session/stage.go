// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package session

// Stage identifies a wizard form step.
type Stage int

const (
	StageCredentials Stage = iota
	StageDestination
	StageUpstream
	// StageComplete means every form step was submitted.
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageCredentials:
		return "credentials"
	case StageDestination:
		return "destination"
	case StageUpstream:
		return "upstream"
	case StageComplete:
		return "complete"
	}
	return "unknown"
}

// Credentials are the values of the first form step.
type Credentials struct {
	TenantID       string
	SubscriptionID string
	ClientID       string
	KeyVaultName   string
	ResourceGroup  string
	FactoryName    string
}

// Destination are the values of the staging destination form step.
type Destination struct {
	URI        string
	FolderPath string
	SecretName string
}

// Upstream are the values of the staging upstream form step.
type Upstream struct {
	StorageType string
	SecretName  string
	URI         string
	FolderPath  string
	FileName    string
}
