// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"syscall"

	"go.ciq.dev/adfstage/internal/pkg/adfstage"
	"go.ciq.dev/adfstage/internal/pkg/config"
	"go.ciq.dev/adfstage/internal/pkg/server"
	"go.ciq.dev/adfstage/pkg/sighandler"
	"go.ciq.dev/adfstage/pkg/version"
)

var configDir string

func serve(adfStageCmd *flag.FlagSet) error {
	if err := adfStageCmd.Parse(os.Args[1:]); err != nil {
		return err
	}

	errCh := make(chan error)

	ctx, wait := sighandler.New(errCh, syscall.SIGTERM, syscall.SIGINT)

	adfStageConfig, err := config.ParseAdfStageConfig(configDir)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", adfStageConfig.Addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	service, err := adfstage.New(ctx, adfStageConfig)
	if err != nil {
		return err
	}
	defer service.Close()

	go func() {
		errCh <- server.Serve(ln, service)
	}()

	return wait(false)
}

func main() {
	adfStageCmd := flag.NewFlagSet("adfstage", flag.ExitOnError)
	adfStageCmd.StringVar(&configDir, "config-dir", "", "configuration directory")

	subCommand := ""
	if len(os.Args) > 1 {
		subCommand = os.Args[1]
	}

	switch subCommand {
	case "version":
		fmt.Println(version.Semver)
	default:
		if err := serve(adfStageCmd); err != nil {
			log.Fatal(err)
		}
	}
}
