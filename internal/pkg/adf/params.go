// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package adf

import (
	"fmt"
	"strings"
)

// SourceTypeADLS is the only supported upstream storage type.
const SourceTypeADLS = "ADLS"

type Step int

const (
	StepAuthenticate Step = iota
	StepPreflight
	StepFactory
	StepKeyVaultLinkedService
	StepStorageLinkedService
	StepSourceDataset
	StepSinkDataset
	StepCopyActivity
	StepPipeline
	StepRollback
	StepDelete
)

var stepNames = map[Step]string{
	StepAuthenticate:          "authenticate",
	StepPreflight:             "preflight",
	StepFactory:               "factory",
	StepKeyVaultLinkedService: "keyvault-linked-service",
	StepStorageLinkedService:  "storage-linked-service",
	StepSourceDataset:         "source-dataset",
	StepSinkDataset:           "sink-dataset",
	StepCopyActivity:          "copy-activity",
	StepPipeline:              "pipeline",
	StepRollback:              "rollback",
	StepDelete:                "delete",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

type Credentials struct {
	TenantID       string `yaml:"tenant-id"`
	SubscriptionID string `yaml:"subscription-id"`
	ClientID       string `yaml:"client-id"`
	ClientSecret   string `yaml:"-"`
}

// Params holds everything a provisioning run needs. It is built per
// session and never shared between runs.
type Params struct {
	Credentials Credentials `yaml:"credentials"`

	ResourceGroup string `yaml:"resource-group"`
	FactoryName   string `yaml:"factory-name"`
	Location      string `yaml:"location"`
	KeyVaultName  string `yaml:"keyvault-name"`

	SourceType       string `yaml:"source-type"`
	SourceURI        string `yaml:"source-uri"`
	SourceFolderPath string `yaml:"source-folder-path"`
	SourceSecretName string `yaml:"source-secret-name"`

	SinkURI        string `yaml:"sink-uri"`
	SinkFolderPath string `yaml:"sink-folder-path"`
	SinkSecretName string `yaml:"sink-secret-name"`

	FileName string `yaml:"file-name"`
}

func (p *Params) Validate() error {
	missing := make([]string, 0)

	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	check("tenant id", p.Credentials.TenantID)
	check("subscription id", p.Credentials.SubscriptionID)
	check("client id", p.Credentials.ClientID)
	check("client secret", p.Credentials.ClientSecret)
	check("resource group", p.ResourceGroup)
	check("factory name", p.FactoryName)
	check("key vault name", p.KeyVaultName)
	check("source uri", p.SourceURI)
	check("source secret name", p.SourceSecretName)
	check("file name", p.FileName)

	if len(missing) > 0 {
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}

	if !strings.EqualFold(p.SourceType, SourceTypeADLS) {
		return fmt.Errorf("unsupported source storage type %q", p.SourceType)
	}

	return nil
}

// Names are the deterministic names given to the resources
// created inside the factory.
type Names struct {
	KeyVaultLinkedService string `yaml:"keyvault-linked-service"`
	StorageLinkedService  string `yaml:"storage-linked-service"`
	SourceDataset         string `yaml:"source-dataset"`
	SinkDataset           string `yaml:"sink-dataset"`
	DatasetFolder         string `yaml:"dataset-folder"`
	CopyActivity          string `yaml:"copy-activity"`
	Pipeline              string `yaml:"pipeline"`
	CompressionCodec      string `yaml:"compression-codec"`
}

func DefaultNames() Names {
	return Names{
		KeyVaultLinkedService: "AzureKeyVaultLinkedService",
		StorageLinkedService:  "AzureDataLakeStorageLinkedService",
		SourceDataset:         "SourceprqDataset",
		SinkDataset:           "SinkprqDataset",
		DatasetFolder:         "staging",
		CopyActivity:          "COPYparquetfile",
		Pipeline:              "CopyAdlsToAdls",
		CompressionCodec:      "none",
	}
}

// withDefaults fills empty names with the default ones.
func (n Names) withDefaults() Names {
	d := DefaultNames()
	if n.KeyVaultLinkedService == "" {
		n.KeyVaultLinkedService = d.KeyVaultLinkedService
	}
	if n.StorageLinkedService == "" {
		n.StorageLinkedService = d.StorageLinkedService
	}
	if n.SourceDataset == "" {
		n.SourceDataset = d.SourceDataset
	}
	if n.SinkDataset == "" {
		n.SinkDataset = d.SinkDataset
	}
	if n.DatasetFolder == "" {
		n.DatasetFolder = d.DatasetFolder
	}
	if n.CopyActivity == "" {
		n.CopyActivity = d.CopyActivity
	}
	if n.Pipeline == "" {
		n.Pipeline = d.Pipeline
	}
	if n.CompressionCodec == "" {
		n.CompressionCodec = d.CompressionCodec
	}
	return n
}

type ResourceType string

const (
	FactoryResource       ResourceType = "factory"
	LinkedServiceResource ResourceType = "linkedservice"
	DatasetResource       ResourceType = "dataset"
	PipelineResource      ResourceType = "pipeline"
	ActivityResource      ResourceType = "activity"
)

// Resource describes a resource created or updated by a run.
type Resource struct {
	Type              ResourceType
	Name              string
	ID                string
	ProvisioningState string
}

type Result struct {
	FactoryName       string
	FactoryID         string
	ProvisioningState string
	Created           []Resource
}
