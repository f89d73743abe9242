// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package ctl

import (
	"github.com/spf13/cobra"
	"go.ciq.dev/adfstage/internal/pkg/config"
)

const (
	ErrMissingFlagServer  = Err("missing server flag")
	ErrMissingFlagSession = Err("missing session flag")
)

const (
	FlagNameConfigDir = "config-dir"
	FlagNameServer    = "server"
	FlagNameSession   = "session"
)

// RegisterFlags registers the flags that are common to all commands.
func RegisterFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(FlagNameConfigDir, "", "The adfstage configuration directory.")
	cmd.PersistentFlags().String(FlagNameServer, "http://127.0.0.1:8080", "The adfstage server URL.")
	cmd.PersistentFlags().String(FlagNameSession, "", "The wizard session identifier.")
}

// Config returns the adfstage configuration found in the configuration
// directory given on the command line or the default configuration.
func Config(cmd *cobra.Command) (*config.AdfStageConfig, error) {
	configDir, err := cmd.Flags().GetString(FlagNameConfigDir)
	if err != nil {
		return nil, err
	}
	return config.ParseAdfStageConfig(configDir)
}

// Server returns the adfstage server URL from the command line.
func Server(cmd *cobra.Command) (string, error) {
	server, err := cmd.Flags().GetString(FlagNameServer)
	if err != nil || server == "" {
		return "", ErrMissingFlagServer
	}
	return server, nil
}

// Session returns the wizard session identifier from the command line.
func Session(cmd *cobra.Command) (string, error) {
	session, err := cmd.Flags().GetString(FlagNameSession)
	if err != nil || session == "" {
		return "", ErrMissingFlagSession
	}
	return session, nil
}
