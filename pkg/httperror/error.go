// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

// Package httperror holds the errors decoded from API failure responses.
package httperror

import (
	"errors"

	"github.com/RussellLuo/kun/pkg/werror"
)

type Werror = *werror.Error

// Error is an API failure decoded client side, errors.Is
// matches it against gcode errors by code.
type Error struct {
	Werror
}

func (e *Error) Is(target error) bool {
	if te, ok := target.(*werror.Error); ok {
		if te.Code == "" {
			return e.Code == te.Message
		}
		return e.Code == te.Code
	}
	return false
}

// Message returns the message of an API failure or the error
// string of any other error.
func Message(err error) string {
	var httpErr *Error
	if errors.As(err, &httpErr) && httpErr.Werror != nil {
		return httpErr.Message
	}
	return err.Error()
}
