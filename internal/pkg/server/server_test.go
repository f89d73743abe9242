// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.ciq.dev/adfstage/internal/pkg/log"
	"go.ciq.dev/adfstage/internal/pkg/session"
)

type testService struct {
	ctx     context.Context
	router  http.Handler
	manager *session.Manager
}

func (s *testService) Context() context.Context          { return s.ctx }
func (s *testService) Router() http.Handler              { return s.router }
func (s *testService) SessionManager() *session.Manager { return s.manager }

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(log.ContextHandler(slog.NewTextHandler(io.Discard, nil)))

	service := &testService{
		ctx: log.SetContextLogger(ctx, logger),
		router: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NotNil(t, log.GetContextLogger(r.Context()))
			_, _ = w.Write([]byte("ok"))
		}),
		manager: session.NewManager(&session.Params{
			DataDir: t.TempDir(),
		}),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- Serve(ln, service)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "ok", string(body))

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server didn't shutdown")
	}
}
