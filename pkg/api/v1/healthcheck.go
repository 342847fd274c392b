// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package v1 contains the HTTP routes of the hirehive API.
package v1

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/hirehive/pkg/logger"
)

// Pinger is a backend whose reachability decides the health of the service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthcheckRouter sets up healthcheck route.
func HealthcheckRouter(backends ...Pinger) http.Handler {
	routes := &healthcheckRoutes{backends: backends}
	r := chi.NewRouter()
	r.Get("/", routes.getHealthcheck)
	return r
}

type healthcheckRoutes struct {
	backends []Pinger
}

//	 getHealthcheck
//		@Summary		Health check
//		@Description	Check that the state and connection stores are reachable
//		@Tags			system
//		@Success		204	{string}	string	"No Content"
//		@Failure		503	{string}	string	"Service Unavailable"
//		@Router			/health [get]
func (h *healthcheckRoutes) getHealthcheck(w http.ResponseWriter, r *http.Request) {
	for _, backend := range h.backends {
		if err := backend.Ping(r.Context()); err != nil {
			logger.Warnw("health check failed", "error", err)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
