// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors defines the failure taxonomy of the platform connection
// flows. Each flow failure carries a message that is safe to show to the
// user that started the flow.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"
)

// Error types
const (
	// ErrConfiguration is returned when a provider is unknown or not available
	ErrConfiguration = "configuration"

	// ErrUserFlow is returned when the provider or the browser sent an
	// incomplete or denied authorization response
	ErrUserFlow = "user_flow"

	// ErrSecurity is returned when a state token is invalid, expired or bound
	// to a different provider
	ErrSecurity = "security"

	// ErrUpstream is returned when the provider token endpoint fails
	ErrUpstream = "upstream"

	// ErrInternal is returned when there is an internal error
	ErrInternal = "internal"
)

// Error represents a failure of a connection flow
type Error struct {
	// Type is the error type
	Type string

	// Message is the user-facing message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new error
func NewError(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string, cause error) *Error {
	return NewError(ErrConfiguration, message, cause)
}

// NewUserFlowError creates a new user flow error
func NewUserFlowError(message string, cause error) *Error {
	return NewError(ErrUserFlow, message, cause)
}

// NewSecurityError creates a new security error
func NewSecurityError(message string, cause error) *Error {
	return NewError(ErrSecurity, message, cause)
}

// NewUpstreamError creates a new upstream error
func NewUpstreamError(message string, cause error) *Error {
	return NewError(ErrUpstream, message, cause)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *Error {
	return NewError(ErrInternal, message, cause)
}

func isType(err error, errorType string) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == errorType
}

// IsConfiguration checks if the error is a configuration error
func IsConfiguration(err error) bool {
	return isType(err, ErrConfiguration)
}

// IsUserFlow checks if the error is a user flow error
func IsUserFlow(err error) bool {
	return isType(err, ErrUserFlow)
}

// IsSecurity checks if the error is a security error
func IsSecurity(err error) bool {
	return isType(err, ErrSecurity)
}

// IsUpstream checks if the error is an upstream error
func IsUpstream(err error) bool {
	return isType(err, ErrUpstream)
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	return isType(err, ErrInternal)
}

// UserMessage returns the message to show the user for a flow error. Errors
// outside the taxonomy, and internal errors, get a generic message so that no
// internal detail leaks into a redirect.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Type == ErrInternal {
		return "An unexpected error occurred"
	}
	return e.Message
}

// Code returns the HTTP status code for an error. Flow errors map by type,
// anything else falls back to the code attached with httperr.WithCode.
func Code(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return httperr.Code(err)
	}

	switch e.Type {
	case ErrConfiguration, ErrUserFlow:
		return http.StatusBadRequest
	case ErrSecurity:
		return http.StatusForbidden
	case ErrUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
