// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package storage holds the errors shared by the persistence backends.
package storage

import (
	"errors"
	"net/http"

	"github.com/stacklok/toolhive-core/httperr"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = httperr.WithCode(
		errors.New("resource not found"),
		http.StatusNotFound,
	)

	// ErrUnavailable is returned when a backend cannot be reached.
	ErrUnavailable = httperr.WithCode(
		errors.New("storage unavailable"),
		http.StatusServiceUnavailable,
	)
)
