// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package httperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/RussellLuo/kun/pkg/werror"
	"github.com/RussellLuo/kun/pkg/werror/gcode"
	"github.com/stretchr/testify/require"
)

func newError(code, message string) *Error {
	return &Error{
		Werror: gcode.FromCodeMessage(code, message).(*werror.Error),
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{
			name:           "ErrInvalidArgument",
			err:            newError(gcode.ErrInvalidArgument.Error(), "session is required"),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "ErrNotFound",
			err:            newError(gcode.ErrNotFound.Error(), "no provisioning run"),
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Unknown",
			err:            newError("unknown", "testing"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expectedStatus, gcode.HTTPStatusCode(tt.err))
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("while getting deployment: %w", newError(gcode.ErrNotFound.Error(), "no provisioning run"))

	require.True(t, errors.Is(err, gcode.ErrNotFound))
	require.False(t, errors.Is(err, gcode.ErrInvalidArgument))
	require.Equal(t, "no provisioning run", Message(err))
	require.Equal(t, "plain", Message(errors.New("plain")))
}
