// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package adfstage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.ciq.dev/adfstage/internal/pkg/adf"
	"go.ciq.dev/adfstage/internal/pkg/config"
	"go.ciq.dev/adfstage/internal/pkg/log"
	"go.ciq.dev/adfstage/internal/pkg/metrics"
	"go.ciq.dev/adfstage/internal/pkg/session"
	"go.ciq.dev/adfstage/internal/pkg/storage"
	"go.ciq.dev/adfstage/internal/pkg/wizard"
	apiv1 "go.ciq.dev/adfstage/pkg/api/v1"
	"go.ciq.dev/adfstage/pkg/httpcodec"
	"go.ciq.dev/adfstage/pkg/version"
	"gocloud.dev/blob"
)

const applicationID = "adfstage"

type Service struct {
	ctx    context.Context
	router *chi.Mux

	bucket  *blob.Bucket
	manager *session.Manager
}

// New wires the provisioning driver, the session manager and the
// wizard pages described by adfStageConfig.
func New(ctx context.Context, adfStageConfig *config.AdfStageConfig) (_ *Service, errFn error) {
	logger, err := adfStageConfig.Log.Logger(log.ContextHandler)
	if err != nil {
		return nil, err
	}

	if adfStageConfig.DataDir == "" {
		adfStageConfig.DataDir = config.DefaultAdfStageDataDir
	}

	ctx = log.SetContextLogger(ctx, logger)

	sessionDir := filepath.Join(adfStageConfig.DataDir, "_sessions_")
	if err := os.RemoveAll(sessionDir); err != nil {
		return nil, err
	} else if err := os.MkdirAll(sessionDir, 0o700); err != nil {
		return nil, err
	}

	// a missing secret only fails provisioning runs
	if _, err := adfStageConfig.ClientSecret(); err != nil {
		logger.Warn("azure client secret not available", "error", err.Error())
	}

	bucket, err := storage.Open(ctx, adfStageConfig.Storage)
	if err != nil {
		return nil, fmt.Errorf("while opening storage: %w", err)
	}
	defer func() {
		if errFn != nil {
			_ = bucket.Close()
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	serviceMetrics := metrics.New(registry)

	clients, err := adf.NewARMClientFactory(adfStageConfig.Azure.Cloud, applicationID)
	if err != nil {
		return nil, err
	}

	driver := adf.NewDriver(
		adfStageConfig.DriverConfig(),
		clients,
		adf.WithObserver(func(ctx context.Context, event adf.Event) {
			session.Observe(ctx, event)
			serviceMetrics.Observe(ctx, event)
		}),
	)

	service := &Service{
		ctx:    ctx,
		bucket: bucket,
		manager: session.NewManager(&session.Params{
			DataDir:      sessionDir,
			Bucket:       bucket,
			Provisioner:  driver,
			ClientSecret: adfStageConfig.ClientSecret,
			RunTimeout:   adfStageConfig.Provisioning.GetTimeout(),
			IdleTimeout:  adfStageConfig.Session.GetIdleTimeout(),
			Metrics:      serviceMetrics,
		}),
	}

	wiz, err := wizard.New(service.manager, adfStageConfig.Session.GetCookieName())
	if err != nil {
		return nil, fmt.Errorf("while loading wizard templates: %w", err)
	}

	router := chi.NewRouter()
	// for kubernetes probes
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(version.Semver))
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	if adfStageConfig.Profiling {
		router.Handle("/debug/pprof/", http.HandlerFunc(pprof.Index))
		router.Handle("/debug/pprof/cmdline", http.HandlerFunc(pprof.Cmdline))
		router.Handle("/debug/pprof/profile", http.HandlerFunc(pprof.Profile))
		router.Handle("/debug/pprof/symbol", http.HandlerFunc(pprof.Symbol))
		router.Handle("/debug/pprof/trace", http.HandlerFunc(pprof.Trace))
		router.Handle("/debug/pprof/{cmd}", http.HandlerFunc(pprof.Index))
	}

	wiz.Routes(router)

	router.Route(apiv1.URLPath, func(r chi.Router) {
		r.Use(wiz.APISessionMiddleware)
		r.Mount("/", apiv1.NewHTTPRouter(service, httpcodec.JSONCodec))
	})

	service.router = router

	return service, nil
}

func (s *Service) Context() context.Context {
	return s.ctx
}

func (s *Service) Router() http.Handler {
	return s.router
}

func (s *Service) SessionManager() *session.Manager {
	return s.manager
}

// Close releases the storage bucket, sessions must be stopped first.
func (s *Service) Close() error {
	return s.bucket.Close()
}
