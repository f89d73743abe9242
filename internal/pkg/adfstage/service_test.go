// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package adfstage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/RussellLuo/kun/pkg/werror/gcode"
	"github.com/stretchr/testify/require"
	"go.ciq.dev/adfstage/internal/pkg/config"
	"go.ciq.dev/adfstage/internal/pkg/log"
	"go.ciq.dev/adfstage/internal/pkg/session"
	"go.ciq.dev/adfstage/internal/pkg/storage"
	"go.ciq.dev/adfstage/internal/pkg/wizard"
	apiv1 "go.ciq.dev/adfstage/pkg/api/v1"
	"go.ciq.dev/adfstage/pkg/httpcodec"
	"go.ciq.dev/adfstage/pkg/version"
)

func newTestService(t *testing.T) (*Service, *httptest.Server) {
	service, err := New(context.Background(), &config.AdfStageConfig{
		Log: log.Config{
			Level:  "error",
			Output: io.Discard,
		},
		DataDir: t.TempDir(),
		Storage: storage.Config{
			Driver: storage.FSStorageDriver,
			Filesystem: storage.FSStorageConfig{
				Directory: t.TempDir(),
			},
		},
		Azure: config.AzureConfig{
			Cloud:        "public",
			ClientSecret: "secret",
		},
	})
	require.NoError(t, err)

	server := httptest.NewServer(service.Router())

	t.Cleanup(func() {
		server.Close()
		require.NoError(t, service.SessionManager().StopAll())
		require.NoError(t, service.Close())
	})

	return service, server
}

func get(t *testing.T, c *http.Client, url string) (*http.Response, string) {
	resp, err := c.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServiceRoutes(t *testing.T) {
	_, server := newTestService(t)

	resp, body := get(t, server.Client(), server.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, version.Semver, body)

	resp, body = get(t, server.Client(), server.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "adfstage_provisioning_runs_in_progress")

	resp, _ = get(t, server.Client(), server.URL+"/debug/pprof/")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, server.Client(), server.URL+wizard.PathCredentials)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, wizard.FieldTenantID)
}

func TestServiceAPI(t *testing.T) {
	service, server := newTestService(t)

	client, err := apiv1.NewHTTPClient(httpcodec.JSONCodec, server.Client(), server.URL)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = client.GetDeployment(ctx, "not-a-session")
	require.True(t, errors.Is(err, gcode.ErrInvalidArgument))

	id := session.NewID()

	_, err = client.GetDeployment(ctx, id)
	require.True(t, errors.Is(err, gcode.ErrNotFound))

	_, err = client.ListDeploymentLogs(ctx, id)
	require.True(t, errors.Is(err, gcode.ErrNotFound))

	// unknown sessions are not created by API lookups
	require.False(t, service.SessionManager().Has(id))

	// the session cookie stands for the session parameter
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	browser := &http.Client{Jar: jar}

	resp, _ := get(t, browser, server.URL+wizard.PathIndex)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, browser, server.URL+apiv1.URLPath+"/deployment")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = get(t, server.Client(), server.URL+apiv1.URLPath+"/deployment")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnonymousRequestsCreateNoSession(t *testing.T) {
	service, server := newTestService(t)

	for i := 0; i < 20; i++ {
		for _, path := range []string{
			wizard.PathIndex,
			wizard.PathCredentials,
			wizard.PathDestination,
			wizard.PathUpstream,
			wizard.PathDeployment,
			apiv1.URLPath + "/deployment?session=" + session.NewID(),
		} {
			get(t, server.Client(), server.URL+path)
		}
	}

	require.Empty(t, service.SessionManager().GetAll())
}
