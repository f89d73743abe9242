// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package adf

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/datafactory/armdatafactory"
)

// Discriminators of the polymorphic data factory models.
const (
	typeAzureKeyVault              = "AzureKeyVault"
	typeAzureKeyVaultSecret        = "AzureKeyVaultSecret"
	typeAzureDataLakeStore         = "AzureDataLakeStore"
	typeAzureDataLakeStoreLocation = "AzureDataLakeStoreLocation"
	typeParquet                    = "Parquet"
	typeParquetSource              = "ParquetSource"
	typeParquetSink                = "ParquetSink"
	typeCopy                       = "Copy"
)

const DefaultKeyVaultDNSSuffix = "vault.azure.net"

func keyVaultBaseURL(vaultName, dnsSuffix string) string {
	if dnsSuffix == "" {
		dnsSuffix = DefaultKeyVaultDNSSuffix
	}
	return fmt.Sprintf("https://%s.%s/", vaultName, dnsSuffix)
}

func newFactory(location string) armdatafactory.Factory {
	return armdatafactory.Factory{
		Location: to.Ptr(location),
		Identity: &armdatafactory.FactoryIdentity{
			Type: to.Ptr(armdatafactory.FactoryIdentityTypeSystemAssigned),
		},
	}
}

func linkedServiceReference(name string) *armdatafactory.LinkedServiceReference {
	return &armdatafactory.LinkedServiceReference{
		ReferenceName: to.Ptr(name),
		Type:          to.Ptr(armdatafactory.LinkedServiceReferenceTypeLinkedServiceReference),
	}
}

func datasetReference(name string) *armdatafactory.DatasetReference {
	return &armdatafactory.DatasetReference{
		ReferenceName: to.Ptr(name),
		Type:          to.Ptr(armdatafactory.DatasetReferenceTypeDatasetReference),
	}
}

func newKeyVaultLinkedService(baseURL string) armdatafactory.LinkedServiceResource {
	return armdatafactory.LinkedServiceResource{
		Properties: &armdatafactory.AzureKeyVaultLinkedService{
			Type: to.Ptr(typeAzureKeyVault),
			TypeProperties: &armdatafactory.AzureKeyVaultLinkedServiceTypeProperties{
				BaseURL: baseURL,
			},
		},
	}
}

// newDataLakeStoreLinkedService returns a data lake store linked service
// authenticating with the service principal whose key is stored in
// the key vault referenced by keyVaultLinkedService.
func newDataLakeStoreLinkedService(uri string, creds Credentials, keyVaultLinkedService, secretName string) armdatafactory.LinkedServiceResource {
	return armdatafactory.LinkedServiceResource{
		Properties: &armdatafactory.AzureDataLakeStoreLinkedService{
			Type: to.Ptr(typeAzureDataLakeStore),
			TypeProperties: &armdatafactory.AzureDataLakeStoreLinkedServiceTypeProperties{
				DataLakeStoreURI:   uri,
				ServicePrincipalID: creds.ClientID,
				Tenant:             creds.TenantID,
				ServicePrincipalKey: &armdatafactory.AzureKeyVaultSecretReference{
					Type:       to.Ptr(typeAzureKeyVaultSecret),
					SecretName: secretName,
					Store:      linkedServiceReference(keyVaultLinkedService),
				},
			},
		},
	}
}

func newParquetDataset(linkedService, folder, folderPath, fileName, compressionCodec string) armdatafactory.DatasetResource {
	return armdatafactory.DatasetResource{
		Properties: &armdatafactory.ParquetDataset{
			Type:              to.Ptr(typeParquet),
			LinkedServiceName: linkedServiceReference(linkedService),
			Folder: &armdatafactory.DatasetFolder{
				Name: to.Ptr(folder),
			},
			TypeProperties: &armdatafactory.ParquetDatasetTypeProperties{
				Location: &armdatafactory.AzureDataLakeStoreLocation{
					Type:       to.Ptr(typeAzureDataLakeStoreLocation),
					FolderPath: folderPath,
					FileName:   fileName,
				},
				CompressionCodec: compressionCodec,
			},
		},
	}
}

func newCopyActivity(name, sourceDataset, sinkDataset string) *armdatafactory.CopyActivity {
	return &armdatafactory.CopyActivity{
		Name:    to.Ptr(name),
		Type:    to.Ptr(typeCopy),
		Inputs:  []*armdatafactory.DatasetReference{datasetReference(sourceDataset)},
		Outputs: []*armdatafactory.DatasetReference{datasetReference(sinkDataset)},
		TypeProperties: &armdatafactory.CopyActivityTypeProperties{
			Source: &armdatafactory.ParquetSource{
				Type: to.Ptr(typeParquetSource),
			},
			Sink: &armdatafactory.ParquetSink{
				Type: to.Ptr(typeParquetSink),
			},
		},
	}
}

func newPipeline(activities ...armdatafactory.ActivityClassification) armdatafactory.PipelineResource {
	return armdatafactory.PipelineResource{
		Properties: &armdatafactory.Pipeline{
			Activities: activities,
			Parameters: map[string]*armdatafactory.ParameterSpecification{},
		},
	}
}

func provisioningState(factory *armdatafactory.Factory) string {
	if factory == nil || factory.Properties == nil || factory.Properties.ProvisioningState == nil {
		return ""
	}
	return *factory.Properties.ProvisioningState
}
