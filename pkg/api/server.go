// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api contains the HTTP server of hirehive.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"

	v1 "github.com/stacklok/hirehive/pkg/api/v1"
	"github.com/stacklok/hirehive/pkg/logger"
	"github.com/stacklok/hirehive/pkg/platforms/connect"
	"github.com/stacklok/hirehive/pkg/platforms/identity"
)

const (
	middlewareTimeout = 60 * time.Second
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// RouterConfig holds the collaborators mounted on the router.
type RouterConfig struct {
	Service  *connect.Service
	Identity identity.Resolver
	// Backends are pinged by /health.
	Backends []v1.Pinger
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// MeterProvider instruments inbound requests when set.
	MeterProvider metric.MeterProvider
}

func headersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter builds the HTTP handler of the service.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(middlewareTimeout),
		headersMiddleware,
	)

	routers := map[string]http.Handler{
		"/health":         v1.HealthcheckRouter(cfg.Backends...),
		"/api/v1/version": v1.VersionRouter(),
		"/api/platforms":  v1.PlatformsRouter(cfg.Service, cfg.Identity),
	}
	if cfg.MetricsHandler != nil {
		routers["/metrics"] = cfg.MetricsHandler
	}

	for prefix, router := range routers {
		r.Mount(prefix, router)
	}

	if cfg.MeterProvider == nil {
		return r
	}
	return otelhttp.NewHandler(r, "hirehive",
		otelhttp.WithMeterProvider(cfg.MeterProvider),
		otelhttp.WithFilter(func(req *http.Request) bool {
			return req.URL.Path != "/health" && req.URL.Path != "/metrics"
		}),
	)
}

// Serve listens on address and serves handler until ctx is cancelled.
// It is assumed that the caller sets up appropriate signal handling.
func Serve(ctx context.Context, address string, handler http.Handler) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return ServeListener(ctx, listener, handler)
}

// ServeListener serves handler on listener until ctx is cancelled, then
// shuts down gracefully.
func ServeListener(ctx context.Context, listener net.Listener, handler http.Handler) error {
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.Infow("starting HTTP server", "address", listener.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped with error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Infof("HTTP server stopped")
	return nil
}
