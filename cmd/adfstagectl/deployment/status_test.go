// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package deployment

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RussellLuo/kun/pkg/werror"
	"github.com/RussellLuo/kun/pkg/werror/gcode"
	"github.com/go-chi/chi"
	"github.com/stretchr/testify/require"
	apiv1 "go.ciq.dev/adfstage/pkg/api/v1"
	"go.ciq.dev/adfstage/pkg/httpcodec"
)

type staging map[string]*apiv1.Deployment

func (s staging) GetDeployment(_ context.Context, session string) (*apiv1.Deployment, error) {
	if d, ok := s[session]; ok {
		return d, nil
	}
	return nil, werror.Wrap(gcode.ErrNotFound, errors.New("no provisioning run"))
}

func (s staging) ListDeploymentLogs(_ context.Context, session string) ([]apiv1.DeploymentLog, error) {
	if _, ok := s[session]; !ok {
		return nil, werror.Wrap(gcode.ErrNotFound, errors.New("no provisioning run"))
	}
	return []apiv1.DeploymentLog{
		{Level: "INFO", Date: "2024-01-02 03:04:05 UTC", Step: "factory", Message: "factory created"},
	}, nil
}

func testStaging() staging {
	return staging{
		"s1": {
			ID:            "run",
			State:         "failed",
			Step:          "pipeline",
			ErrorKind:     "validation",
			Message:       "conflict",
			ResourceGroup: "group",
			FactoryName:   "factory",
			StartTime:     "2024-01-02 03:04:00 UTC",
			EndTime:       "2024-01-02 03:05:00 UTC",
			Resources: []apiv1.DeploymentResource{
				{Type: "factory", Name: "factory", ProvisioningState: "Succeeded"},
			},
		},
	}
}

func TestStatus(t *testing.T) {
	svc := testStaging()

	out := new(bytes.Buffer)
	require.NoError(t, status(context.Background(), svc, "s1", true, out))

	output := out.String()
	require.Contains(t, output, "group/factory")
	require.Contains(t, output, "validation: conflict")
	require.Contains(t, output, "Succeeded")
	require.Contains(t, output, "factory created")

	err := status(context.Background(), svc, "s2", false, out)
	require.Equal(t, http.StatusNotFound, gcode.HTTPStatusCode(err))
}

func TestStatusOverHTTP(t *testing.T) {
	router := chi.NewRouter()
	router.Route(apiv1.URLPath, func(r chi.Router) {
		r.Mount("/", apiv1.NewHTTPRouter(testStaging(), httpcodec.JSONCodec))
	})

	server := httptest.NewServer(router)
	defer server.Close()

	client, err := newClient(server.URL, server.Client())
	require.NoError(t, err)

	out := new(bytes.Buffer)
	require.NoError(t, status(context.Background(), client, "s1", true, out))
	require.Contains(t, out.String(), "group/factory")
	require.Contains(t, out.String(), "factory created")

	err = status(context.Background(), client, "s2", false, out)
	require.True(t, errors.Is(err, gcode.ErrNotFound))
	require.Equal(t, http.StatusNotFound, gcode.HTTPStatusCode(err))
}
