// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/toolhive-core/httperr"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "error with cause",
			err: &Error{
				Type:    ErrUpstream,
				Message: "test message",
				Cause:   errors.New("underlying error"),
			},
			want: "upstream: test message: underlying error",
		},
		{
			name: "error without cause",
			err: &Error{
				Type:    ErrSecurity,
				Message: "test message",
			},
			want: "security: test message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := NewInternalError("test message", cause)
	assert.Equal(t, cause, err.Unwrap())
	assert.True(t, errors.Is(err, cause))

	assert.Nil(t, NewInternalError("test message", nil).Unwrap())
}

func TestTypeChecks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"configuration", NewConfigurationError("m", nil), IsConfiguration},
		{"user flow", NewUserFlowError("m", nil), IsUserFlow},
		{"security", NewSecurityError("m", nil), IsSecurity},
		{"upstream", NewUpstreamError("m", nil), IsUpstream},
		{"internal", NewInternalError("m", nil), IsInternal},
		{"wrapped security", fmt.Errorf("callback: %w", NewSecurityError("m", nil)), IsSecurity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tt.check(tt.err))
		})
	}

	assert.False(t, IsSecurity(NewUpstreamError("m", nil)))
	assert.False(t, IsInternal(errors.New("plain")))
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Provider mismatch", UserMessage(NewSecurityError("Provider mismatch", nil)))
	assert.Equal(t, "An unexpected error occurred", UserMessage(NewInternalError("database exploded", nil)))
	assert.Equal(t, "An unexpected error occurred", UserMessage(errors.New("plain")))
}

func TestCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"configuration", NewConfigurationError("m", nil), http.StatusBadRequest},
		{"user flow", NewUserFlowError("m", nil), http.StatusBadRequest},
		{"security", NewSecurityError("m", nil), http.StatusForbidden},
		{"upstream", NewUpstreamError("m", nil), http.StatusBadGateway},
		{"internal", NewInternalError("m", nil), http.StatusInternalServerError},
		{"httperr code", httperr.WithCode(errors.New("gone"), http.StatusNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}
