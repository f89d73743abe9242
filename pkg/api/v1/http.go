// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package apiv1

import (
	"context"
	"net/http"

	"github.com/RussellLuo/kun/pkg/httpcodec"
	"github.com/RussellLuo/kun/pkg/werror"
	"github.com/RussellLuo/kun/pkg/werror/gcode"
	v "github.com/RussellLuo/validating/v3"
	"github.com/go-chi/chi"
	"github.com/go-kit/kit/endpoint"
	kithttp "github.com/go-kit/kit/transport/http"
)

// SessionParam is the query parameter carrying the session identifier.
const SessionParam = "session"

func NewHTTPRouter(svc Staging, codecs httpcodec.Codecs) chi.Router {
	r := chi.NewRouter()

	codec := codecs.EncodeDecoder("GetDeployment")
	r.Method(
		http.MethodGet, "/deployment",
		kithttp.NewServer(
			MakeEndpointOfGetDeployment(svc),
			decodeSessionRequest,
			encodeResponse(codec, func(resp interface{}) interface{} {
				return resp.(*GetDeploymentResponse).Deployment
			}),
			kithttp.ServerErrorEncoder(encodeError(codec)),
		),
	)

	codec = codecs.EncodeDecoder("ListDeploymentLogs")
	r.Method(
		http.MethodGet, "/deployment/logs",
		kithttp.NewServer(
			MakeEndpointOfListDeploymentLogs(svc),
			decodeSessionRequest,
			encodeResponse(codec, func(resp interface{}) interface{} {
				return resp.(*ListDeploymentLogsResponse).Logs
			}),
			kithttp.ServerErrorEncoder(encodeError(codec)),
		),
	)

	return r
}

func decodeSessionRequest(_ context.Context, r *http.Request) (interface{}, error) {
	req := &SessionRequest{
		Session: r.URL.Query().Get(SessionParam),
	}

	if errs := v.Validate(req.Schema()); len(errs) > 0 {
		return nil, werror.Wrap(gcode.ErrInvalidArgument, errs)
	}

	return req, nil
}

func encodeResponse(codec httpcodec.Codec, body func(interface{}) interface{}) kithttp.EncodeResponseFunc {
	return func(_ context.Context, w http.ResponseWriter, response interface{}) error {
		if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
			return codec.EncodeFailureResponse(w, f.Failed())
		}
		return codec.EncodeSuccessResponse(w, http.StatusOK, body(response))
	}
}

func encodeError(codec httpcodec.Codec) kithttp.ErrorEncoder {
	return func(_ context.Context, err error, w http.ResponseWriter) {
		_ = codec.EncodeFailureResponse(w, err)
	}
}
