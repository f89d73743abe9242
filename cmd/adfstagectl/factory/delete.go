// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package factory

import (
	"github.com/spf13/cobra"
	"go.ciq.dev/adfstage/cmd/adfstagectl/ctl"
	"go.ciq.dev/adfstage/internal/pkg/adf"
)

const (
	flagNameTenantID       = "tenant-id"
	flagNameSubscriptionID = "subscription-id"
	flagNameClientID       = "client-id"
	flagNameResourceGroup  = "resource-group"
)

var deleteCmd = &cobra.Command{
	Use:   "delete-factory [name]",
	Short: "Delete a data factory and everything it contains.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		creds := adf.Credentials{}
		flags := map[string]*string{
			flagNameTenantID:       &creds.TenantID,
			flagNameSubscriptionID: &creds.SubscriptionID,
			flagNameClientID:       &creds.ClientID,
		}
		for name, value := range flags {
			v, err := cmd.Flags().GetString(name)
			if err != nil || v == "" {
				return ctl.Errf("missing %s flag", name)
			}
			*value = v
		}

		resourceGroup, err := cmd.Flags().GetString(flagNameResourceGroup)
		if err != nil || resourceGroup == "" {
			return ctl.Errf("missing %s flag", flagNameResourceGroup)
		}

		adfStageConfig, err := ctl.Config(cmd)
		if err != nil {
			return ctl.Errf("while parsing configuration: %s", err)
		}

		creds.ClientSecret, err = adfStageConfig.ClientSecret()
		if err != nil {
			return ctl.Errf("while reading client secret: %s", err)
		}

		ctx, driver, err := newDriver(cmd.Context(), adfStageConfig, cmd.OutOrStdout())
		if err != nil {
			return err
		}

		if err := driver.DeleteFactory(ctx, creds, resourceGroup, args[0]); err != nil {
			return ctl.Errf("while deleting data factory: %s", err)
		}
		return nil
	},
}

func DeleteCmd() *cobra.Command {
	deleteCmd.Flags().String(flagNameTenantID, "", "The Azure AD tenant ID.")
	deleteCmd.Flags().String(flagNameSubscriptionID, "", "The Azure subscription ID.")
	deleteCmd.Flags().String(flagNameClientID, "", "The service principal client ID.")
	deleteCmd.Flags().String(flagNameResourceGroup, "", "The resource group of the data factory.")
	return deleteCmd
}
