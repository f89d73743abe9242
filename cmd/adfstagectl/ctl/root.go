// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package ctl

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.ciq.dev/adfstage/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:     "adfstagectl",
	Short:   "Operations related to staged Azure data factories.",
	Version: version.Semver,
}

// Execute runs the root command with the given subcommands.
func Execute(cmds ...*cobra.Command) {
	RegisterFlags(rootCmd)

	rootCmd.AddCommand(cmds...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}
