// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package apiv1

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/RussellLuo/kun/pkg/httpcodec"
	kithttp "github.com/go-kit/kit/transport/http"
)

type HTTPClient struct {
	codecs     httpcodec.Codecs
	httpClient *http.Client
	scheme     string
	host       string
	pathPrefix string
}

// NewHTTPClient returns a Staging client for the server at baseURL,
// the API path is appended to the base URL path.
func NewHTTPClient(codecs httpcodec.Codecs, httpClient *http.Client, baseURL string) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	} else if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{
		codecs:     codecs,
		httpClient: httpClient,
		scheme:     u.Scheme,
		host:       u.Host,
		pathPrefix: strings.TrimSuffix(u.Path, "/") + URLPath,
	}, nil
}

func (c *HTTPClient) url(path, session string) *url.URL {
	return &url.URL{
		Scheme:   c.scheme,
		Host:     c.host,
		Path:     c.pathPrefix + path,
		RawQuery: url.Values{SessionParam: []string{session}}.Encode(),
	}
}

func (c *HTTPClient) call(ctx context.Context, name, path, session string, out interface{}) error {
	codec := c.codecs.EncodeDecoder(name)

	client := kithttp.NewClient(
		http.MethodGet,
		c.url(path, session),
		func(context.Context, *http.Request, interface{}) error { return nil },
		func(_ context.Context, resp *http.Response) (interface{}, error) {
			if resp.StatusCode < http.StatusOK || resp.StatusCode > http.StatusNoContent {
				var respErr error
				if err := codec.DecodeFailureResponse(resp.Body, &respErr); err != nil {
					return nil, fmt.Errorf("while decoding %s failure response: %w", name, err)
				}
				return nil, respErr
			}
			return nil, codec.DecodeSuccessResponse(resp.Body, out)
		},
		kithttp.SetClient(c.httpClient),
	)

	_, err := client.Endpoint()(ctx, nil)
	return err
}

func (c *HTTPClient) GetDeployment(ctx context.Context, session string) (deployment *Deployment, err error) {
	deployment = new(Deployment)
	if err := c.call(ctx, "GetDeployment", "/deployment", session, deployment); err != nil {
		return nil, err
	}
	return deployment, nil
}

func (c *HTTPClient) ListDeploymentLogs(ctx context.Context, session string) (logs []DeploymentLog, err error) {
	logs = make([]DeploymentLog, 0)
	if err := c.call(ctx, "ListDeploymentLogs", "/deployment/logs", session, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}
