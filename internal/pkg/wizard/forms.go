// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package wizard

import (
	"net/url"
	"strings"

	v "github.com/RussellLuo/validating/v3"
	"go.ciq.dev/adfstage/internal/pkg/session"
)

// Form field names.
const (
	FieldTenantID       = "TenantID"
	FieldSubscriptionID = "SubscriptionID"
	FieldClientID       = "AADAppClientID"
	FieldKeyVaultName   = "AzureKeyVaultName"
	FieldResourceGroup  = "ResourceGroupName"
	FieldFactoryName    = "AzureDataFactoryName"

	FieldDestinationURI        = "stagingDestinationADLSURL"
	FieldDestinationFolderPath = "stagingDestADLSFolderPath"
	FieldDestinationSecretName = "stagingDestAzureKeyVaultSecretName"

	FieldUpstreamStorageType = "UpstreamStorageType"
	FieldUpstreamSecretName  = "stagingUpstreamAzureKeyVaultSecretName"
	FieldUpstreamURI         = "stagingUpstreamADLSURL"
	FieldUpstreamFolderPath  = "stagingUpstreamADLSFolderPath"
	FieldUpstreamFileName    = "stagingUpstreamADLSFileName"
)

// StorageTypeADLS is the only supported upstream storage type.
const StorageTypeADLS = "ADLS"

type field struct {
	Name     string
	Label    string
	Value    string
	Optional bool
	Options  []string
}

// formValue returns the submitted value as is, values are
// stored unchanged.
func formValue(form url.Values, name string) string {
	return form.Get(name)
}

// required rejects empty and blank values.
func required(msg string) v.Validator {
	return v.Is(func(s string) bool {
		return strings.TrimSpace(s) != ""
	}).Msg(msg)
}

func validate(schema v.Schema) map[string]string {
	errs := v.Validate(schema)
	if len(errs) == 0 {
		return nil
	}

	fieldErrors := make(map[string]string, len(errs))
	for _, err := range errs {
		if _, ok := fieldErrors[err.Field()]; !ok {
			fieldErrors[err.Field()] = err.Message()
		}
	}

	return fieldErrors
}

type credentialsForm session.Credentials

func newCredentialsForm(form url.Values) *credentialsForm {
	return &credentialsForm{
		TenantID:       formValue(form, FieldTenantID),
		SubscriptionID: formValue(form, FieldSubscriptionID),
		ClientID:       formValue(form, FieldClientID),
		KeyVaultName:   formValue(form, FieldKeyVaultName),
		ResourceGroup:  formValue(form, FieldResourceGroup),
		FactoryName:    formValue(form, FieldFactoryName),
	}
}

func (f *credentialsForm) Schema() v.Schema {
	return v.Schema{
		v.F(FieldTenantID, f.TenantID):             required("tenant ID is required"),
		v.F(FieldSubscriptionID, f.SubscriptionID): required("subscription ID is required"),
		v.F(FieldClientID, f.ClientID):             required("application client ID is required"),
		v.F(FieldKeyVaultName, f.KeyVaultName):     required("key vault name is required"),
		v.F(FieldResourceGroup, f.ResourceGroup):   required("resource group is required"),
		v.F(FieldFactoryName, f.FactoryName):       required("data factory name is required"),
	}
}

func (f *credentialsForm) fields() []field {
	return []field{
		{Name: FieldTenantID, Label: "Tenant ID", Value: f.TenantID},
		{Name: FieldSubscriptionID, Label: "Subscription ID", Value: f.SubscriptionID},
		{Name: FieldClientID, Label: "Azure AD application client ID", Value: f.ClientID},
		{Name: FieldKeyVaultName, Label: "Azure key vault name", Value: f.KeyVaultName},
		{Name: FieldResourceGroup, Label: "Resource group name", Value: f.ResourceGroup},
		{Name: FieldFactoryName, Label: "Azure data factory name", Value: f.FactoryName},
	}
}

type destinationForm session.Destination

func newDestinationForm(form url.Values) *destinationForm {
	return &destinationForm{
		URI:        formValue(form, FieldDestinationURI),
		FolderPath: formValue(form, FieldDestinationFolderPath),
		SecretName: formValue(form, FieldDestinationSecretName),
	}
}

func (f *destinationForm) Schema() v.Schema {
	return v.Schema{
		v.F(FieldDestinationURI, f.URI):               required("data lake URL is required"),
		v.F(FieldDestinationSecretName, f.SecretName): required("key vault secret name is required"),
	}
}

func (f *destinationForm) fields() []field {
	return []field{
		{Name: FieldDestinationURI, Label: "Data lake storage URL", Value: f.URI},
		{Name: FieldDestinationFolderPath, Label: "Data lake folder path", Value: f.FolderPath, Optional: true},
		{Name: FieldDestinationSecretName, Label: "Key vault secret name", Value: f.SecretName},
	}
}

type upstreamForm session.Upstream

func newUpstreamForm(form url.Values) *upstreamForm {
	return &upstreamForm{
		StorageType: formValue(form, FieldUpstreamStorageType),
		SecretName:  formValue(form, FieldUpstreamSecretName),
		URI:         formValue(form, FieldUpstreamURI),
		FolderPath:  formValue(form, FieldUpstreamFolderPath),
		FileName:    formValue(form, FieldUpstreamFileName),
	}
}

func (f *upstreamForm) Schema() v.Schema {
	return v.Schema{
		v.F(FieldUpstreamStorageType, f.StorageType): v.In(StorageTypeADLS).Msg("storage type must be " + StorageTypeADLS),
		v.F(FieldUpstreamSecretName, f.SecretName):   required("key vault secret name is required"),
		v.F(FieldUpstreamURI, f.URI):                 required("data lake URL is required"),
		v.F(FieldUpstreamFileName, f.FileName):       required("file name is required"),
	}
}

func (f *upstreamForm) fields() []field {
	storageType := f.StorageType
	if storageType == "" {
		storageType = StorageTypeADLS
	}
	return []field{
		{Name: FieldUpstreamStorageType, Label: "Upstream storage type", Value: storageType, Options: []string{StorageTypeADLS}},
		{Name: FieldUpstreamSecretName, Label: "Key vault secret name", Value: f.SecretName},
		{Name: FieldUpstreamURI, Label: "Data lake storage URL", Value: f.URI},
		{Name: FieldUpstreamFolderPath, Label: "Data lake folder path", Value: f.FolderPath, Optional: true},
		{Name: FieldUpstreamFileName, Label: "Parquet file name", Value: f.FileName},
	}
}
