// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stacklok/toolhive-core/httperr"

	herrors "github.com/stacklok/hirehive/pkg/errors"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no error",
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name:       "coded client error",
			err:        httperr.WithCode(errors.New("connection has no refresh token"), http.StatusConflict),
			wantStatus: http.StatusConflict,
			wantBody:   "connection has no refresh token\n",
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("failed to load connection: %w", httperr.WithCode(errors.New("resource not found"), http.StatusNotFound)),
			wantStatus: http.StatusNotFound,
			wantBody:   "failed to load connection: resource not found\n",
		},
		{
			name:       "flow error shows user message",
			err:        herrors.NewConfigurationError("OAuth credentials are not configured for Indeed", errors.New("no client credentials configured")),
			wantStatus: http.StatusBadRequest,
			wantBody:   "OAuth credentials are not configured for Indeed\n",
		},
		{
			name:       "upstream error hides detail",
			err:        herrors.NewUpstreamError("Failed to refresh access token", errors.New("HTTP 400: invalid_grant")),
			wantStatus: http.StatusBadGateway,
			wantBody:   "Bad Gateway\n",
		},
		{
			name:       "plain error hides detail",
			err:        errors.New("database is locked"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Internal Server Error\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := ErrorHandler(func(w http.ResponseWriter, _ *http.Request) error {
				if tt.err != nil {
					return tt.err
				}
				_, _ = w.Write([]byte("ok"))
				return nil
			})

			rec := httptest.NewRecorder()
			handler(rec, httptest.NewRequest(http.MethodGet, "/api/platforms", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}
