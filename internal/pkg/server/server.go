// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.ciq.dev/adfstage/internal/pkg/log"
	"go.ciq.dev/adfstage/internal/pkg/session"
)

const shutdownTimeout = 10 * time.Second

type Service interface {
	// Context returns the service's context.
	Context() context.Context

	// Router returns the service's HTTP handler.
	Router() http.Handler

	// SessionManager returns the wizard session manager.
	SessionManager() *session.Manager
}

// Serve serves the service on ln until the service context is
// canceled, every wizard session is stopped before returning.
func Serve(ln net.Listener, service Service) (errFn error) {
	ctx := service.Context()

	errCh := make(chan error, 1)
	logger := log.GetContextLogger(ctx)
	if logger == nil {
		return fmt.Errorf("no logger found in service context")
	}
	slog.SetDefault(logger)

	httpContext := log.SetContextAttrs(ctx, slog.String("context", "http"))

	server := http.Server{
		Handler:           service.Router(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return httpContext
		},
	}

	manager := service.SessionManager()

	go manager.Run(ctx)

	// Gracefully shutdown session handlers
	defer func() {
		logger.Info("stopping sessions", "count", len(manager.GetAll()))
		if err := manager.StopAll(); err != nil {
			logger.Error("sessions stop failure", "error", err.Error())
			if errFn == nil {
				errFn = err
			}
		}
	}()

	go func() {
		logger.Info("server started", "listen_addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	var serverErr error

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failure", "error", err.Error())
			serverErr = err
		}
	case <-ctx.Done():
		logger.Info("server shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	_ = server.Shutdown(shutdownCtx)

	return serverErr
}
