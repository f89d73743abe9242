// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package deployment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.ciq.dev/adfstage/cmd/adfstagectl/ctl"
	apiv1 "go.ciq.dev/adfstage/pkg/api/v1"
	"go.ciq.dev/adfstage/pkg/httpcodec"
	"go.ciq.dev/adfstage/pkg/httperror"
)

const flagNameLogs = "logs"

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest deployment of a wizard session.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		server, err := ctl.Server(cmd)
		if err != nil {
			return err
		}
		session, err := ctl.Session(cmd)
		if err != nil {
			return err
		}
		logs, err := cmd.Flags().GetBool(flagNameLogs)
		if err != nil {
			return err
		}

		client, err := newClient(server, &http.Client{Timeout: 30 * time.Second})
		if err != nil {
			return ctl.Errf("while creating API client: %s", err)
		}

		if err := status(cmd.Context(), client, session, logs, cmd.OutOrStdout()); err != nil {
			return ctl.Errf("while getting deployment status: %s", httperror.Message(err))
		}
		return nil
	},
}

func StatusCmd() *cobra.Command {
	statusCmd.Flags().Bool(flagNameLogs, false, "Print the deployment logs.")
	return statusCmd
}

// newClient returns an API client for the adfstage server listening
// at the server URL.
func newClient(server string, httpClient *http.Client) (*apiv1.HTTPClient, error) {
	return apiv1.NewHTTPClient(httpcodec.JSONCodec, httpClient, server)
}

func status(ctx context.Context, staging apiv1.Staging, session string, logs bool, out io.Writer) error {
	deployment, err := staging.GetDeployment(ctx, session)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Deployment:    %s\n", deployment.ID)
	fmt.Fprintf(out, "State:         %s\n", deployment.State)
	fmt.Fprintf(out, "Factory:       %s/%s\n", deployment.ResourceGroup, deployment.FactoryName)
	if deployment.Step != "" {
		fmt.Fprintf(out, "Step:          %s\n", deployment.Step)
	}
	if deployment.ErrorKind != "" {
		fmt.Fprintf(out, "Error:         %s: %s\n", deployment.ErrorKind, deployment.Message)
	}
	fmt.Fprintf(out, "Started:       %s\n", deployment.StartTime)
	if deployment.EndTime != "" {
		fmt.Fprintf(out, "Finished:      %s\n", deployment.EndTime)
	}

	if len(deployment.Resources) > 0 {
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tNAME\tSTATE")
		for _, res := range deployment.Resources {
			fmt.Fprintf(w, "%s\t%s\t%s\n", res.Type, res.Name, res.ProvisioningState)
		}
		_ = w.Flush()
	}

	if !logs {
		return nil
	}

	deploymentLogs, err := staging.ListDeploymentLogs(ctx, session)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	for _, l := range deploymentLogs {
		fmt.Fprintf(out, "%s %-5s %-24s %s\n", l.Date, l.Level, l.Step, l.Message)
	}

	return nil
}
