// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"go.ciq.dev/adfstage/cmd/adfstagectl/ctl"
	"go.ciq.dev/adfstage/cmd/adfstagectl/deployment"
	"go.ciq.dev/adfstage/cmd/adfstagectl/factory"
)

func main() {
	ctl.Execute(
		factory.ProvisionCmd(),
		factory.DeleteCmd(),
		deployment.StatusCmd(),
	)
}
