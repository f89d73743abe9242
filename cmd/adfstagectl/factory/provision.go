// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package factory

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.ciq.dev/adfstage/cmd/adfstagectl/ctl"
	"go.ciq.dev/adfstage/internal/pkg/adf"
	"gopkg.in/yaml.v3"
)

const flagNameFile = "file"

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision a data factory described by a parameters file.",
	Long: "Provision a data factory described by a YAML parameters file. The service " +
		"principal secret is taken from the adfstage configuration, the " +
		"ADFSTAGE_AZURE_CLIENTSECRET environment variable overrides it.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		file, err := cmd.Flags().GetString(flagNameFile)
		if err != nil || file == "" {
			return ctl.Err("a parameters file must be specified")
		}

		params, err := readParamsFile(file)
		if err != nil {
			return ctl.Errf("while reading parameters: %s", err)
		}

		adfStageConfig, err := ctl.Config(cmd)
		if err != nil {
			return ctl.Errf("while parsing configuration: %s", err)
		}

		params.Credentials.ClientSecret, err = adfStageConfig.ClientSecret()
		if err != nil {
			return ctl.Errf("while reading client secret: %s", err)
		}

		ctx, driver, err := newDriver(cmd.Context(), adfStageConfig, cmd.OutOrStdout())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(ctx, adfStageConfig.Provisioning.GetTimeout())
		defer cancel()

		if err := provision(ctx, driver, params, cmd.OutOrStdout()); err != nil {
			return ctl.Errf("while provisioning data factory: %s", err)
		}
		return nil
	},
}

func ProvisionCmd() *cobra.Command {
	provisionCmd.Flags().StringP(flagNameFile, "f", "", "The YAML parameters file.")
	return provisionCmd
}

func readParamsFile(path string) (adf.Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return adf.Params{}, err
	}
	defer f.Close()

	return readParams(f)
}

func readParams(r io.Reader) (adf.Params, error) {
	var params adf.Params

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&params); err != nil {
		return adf.Params{}, err
	}

	return params, nil
}

type provisioner interface {
	Provision(ctx context.Context, params adf.Params) (*adf.Result, error)
}

func provision(ctx context.Context, driver provisioner, params adf.Params, out io.Writer) error {
	result, err := driver.Provision(ctx, params)
	if result != nil && len(result.Created) > 0 {
		printResult(out, result)
	}
	return err
}

func printResult(out io.Writer, result *adf.Result) {
	fmt.Fprintf(out, "\nData factory %s (%s)\n\n", result.FactoryName, result.ProvisioningState)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tNAME\tSTATE\tID")
	for _, res := range result.Created {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", res.Type, res.Name, res.ProvisioningState, res.ID)
	}
	_ = w.Flush()
}
