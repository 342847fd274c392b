// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/hirehive/pkg/logger"
	"github.com/stacklok/hirehive/pkg/versions"
)

// VersionRouter sets up the version route.
func VersionRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", getVersion)
	return r
}

// getVersion reports the build metadata of the running server.
//
//	GET /api/v1/version -> 200 versions.VersionInfo
func getVersion(w http.ResponseWriter, _ *http.Request) {
	if err := writeJSON(w, http.StatusOK, versions.GetVersionInfo()); err != nil {
		logger.Errorf("failed to write version info: %v", err)
	}
}
