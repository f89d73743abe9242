// SPDX-FileCopyrightText: Copyright (c) 2024, CIQ, Inc. All rights reserved
// SPDX-License-Identifier: Apache-2.0

package adf

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Error kinds, test them with errors.Is.
var (
	ErrAuthentication = errors.New("authentication failure")
	ErrValidation     = errors.New("validation failure")
	ErrProvisioning   = errors.New("provisioning failure")
	ErrTimeout        = errors.New("provisioning timeout")
)

// Error is returned by every Driver operation.
type Error struct {
	Kind     error
	Step     Step
	Resource string
	Err      error
}

func (e *Error) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: step %s (%s): %v", e.Kind, e.Step, e.Resource, e.Err)
	}
	return fmt.Sprintf("%s: step %s: %v", e.Kind, e.Step, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Kind returns the error kind of err or nil if err doesn't carry one.
func Kind(err error) error {
	for _, kind := range []error{ErrAuthentication, ErrValidation, ErrTimeout, ErrProvisioning} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// KindName is the short name displayed to users and stored in the run database.
func KindName(kind error) string {
	switch kind {
	case ErrAuthentication:
		return "authentication"
	case ErrValidation:
		return "validation"
	case ErrTimeout:
		return "timeout"
	case ErrProvisioning:
		return "provisioning"
	}
	return ""
}

func newError(kind error, step Step, resource string, err error) *Error {
	return &Error{
		Kind:     kind,
		Step:     step,
		Resource: resource,
		Err:      err,
	}
}

// classify wraps err returned by a cloud call into an *Error.
func classify(step Step, resource string, err error) error {
	var adfErr *Error
	if errors.As(err, &adfErr) {
		return err
	}

	var authErr *azidentity.AuthenticationFailedError
	if errors.As(err, &authErr) {
		return newError(ErrAuthentication, step, resource, err)
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return newError(ErrAuthentication, step, resource, err)
		case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
			return newError(ErrValidation, step, resource, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrTimeout, step, resource, err)
	}

	return newError(ErrProvisioning, step, resource, err)
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound
	}
	return errors.Is(err, ErrNotFound)
}

// ErrNotFound may be returned by ManagementClient implementations
// which are not backed by ARM when a resource doesn't exist.
var ErrNotFound = errors.New("resource not found")
