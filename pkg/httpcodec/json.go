// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package httpcodec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/RussellLuo/kun/pkg/httpcodec"
	"github.com/RussellLuo/kun/pkg/werror"
	"go.ciq.dev/adfstage/pkg/httperror"
)

var JSONCodec = httpcodec.NewDefaultCodecs(JSON{})

// JSON is the kun JSON codec decoding failure
// responses as *httperror.Error.
type JSON struct {
	httpcodec.JSON
}

func (j JSON) DecodeFailureResponse(body io.ReadCloser, out *error) error {
	var resp httpcodec.FailureResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return fmt.Errorf("while decoding failure response: %w", err)
	}

	*out = &httperror.Error{
		Werror: &werror.Error{
			Code:    resp.Error.Code,
			Message: resp.Error.Message,
		},
	}

	return nil
}
