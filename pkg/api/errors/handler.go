// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package errors provides HTTP error handling utilities for the API.
package errors

import (
	"errors"
	"net/http"

	herrors "github.com/stacklok/hirehive/pkg/errors"
	"github.com/stacklok/hirehive/pkg/logger"
)

// HandlerWithError is an HTTP handler that can return an error.
// This signature allows handlers to return errors instead of manually
// writing error responses, enabling centralized error handling.
type HandlerWithError func(http.ResponseWriter, *http.Request) error

// ErrorHandler wraps a HandlerWithError and converts returned errors
// into appropriate HTTP responses.
//
// The decorator:
//   - Returns early if no error is returned (handler already wrote response)
//   - Extracts HTTP status code from the error using errors.Code()
//   - For 5xx errors: logs full error details, returns generic message to client
//   - For 4xx errors: returns the user message of flow errors, or the error text
//
// Usage:
//
//	r.Post("/{provider}/refresh", apierrors.ErrorHandler(routes.refresh))
func ErrorHandler(fn HandlerWithError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		code := herrors.Code(err)

		if code >= http.StatusInternalServerError {
			logger.Errorw("request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", code,
				"error", err,
			)
			http.Error(w, http.StatusText(code), code)
			return
		}

		var flowErr *herrors.Error
		if errors.As(err, &flowErr) {
			http.Error(w, herrors.UserMessage(err), code)
			return
		}
		http.Error(w, err.Error(), code)
	}
}
