// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package sighandler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

// SignalError is the cancellation cause of a context canceled by a signal.
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("received signal %s", e.Signal)
}

// WaitFunc blocks until an error is received from the error channel,
// or until the context is canceled when returnOnCancel is true.
type WaitFunc func(returnOnCancel bool) error

// New returns a context canceled when one of signals is received
// or when an error is sent to errCh.
func New(errCh <-chan error, signals ...os.Signal) (context.Context, WaitFunc) {
	quit := make(chan os.Signal, 1)

	ctx, cancel := context.WithCancelCause(context.Background())

	signal.Notify(quit, signals...)

	return ctx, func(returnOnCancel bool) error {
		defer signal.Stop(quit)

		done := ctx.Done()

		for {
			select {
			case <-done:
				if returnOnCancel {
					return nil
				}
				done = nil
			case sig := <-quit:
				cancel(&SignalError{Signal: sig})
			case err := <-errCh:
				cancel(err)
				return err
			}
		}
	}
}
