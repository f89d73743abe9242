// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package factory

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.ciq.dev/adfstage/internal/pkg/adf"
	"go.ciq.dev/adfstage/internal/pkg/config"
	"go.ciq.dev/adfstage/internal/pkg/log"
)

const applicationID = "adfstagectl"

// printEvents prints the progress of a driver operation to out.
func printEvents(out io.Writer) adf.Observer {
	return func(_ context.Context, event adf.Event) {
		switch event.Status {
		case adf.EventStarted:
			fmt.Fprintf(out, "%-24s %s\n", event.Step, event.Resource)
		case adf.EventDone:
			fmt.Fprintf(out, "%-24s %s done in %s\n", event.Step, event.Resource, event.Duration.Round(time.Millisecond))
		case adf.EventProgress:
			fmt.Fprintf(out, "%-24s %s\n", event.Step, event.Message)
		case adf.EventFailed:
			fmt.Fprintf(out, "%-24s %s failed: %v\n", event.Step, event.Resource, event.Err)
		}
	}
}

// newDriver returns a driver configured like the adfstage server.
func newDriver(ctx context.Context, adfStageConfig *config.AdfStageConfig, out io.Writer) (context.Context, *adf.Driver, error) {
	logger, err := adfStageConfig.Log.Logger(log.ContextHandler)
	if err != nil {
		return nil, nil, err
	}

	clients, err := adf.NewARMClientFactory(adfStageConfig.Azure.Cloud, applicationID)
	if err != nil {
		return nil, nil, err
	}

	driver := adf.NewDriver(adfStageConfig.DriverConfig(), clients, adf.WithObserver(printEvents(out)))

	return log.SetContextLogger(ctx, logger), driver, nil
}
