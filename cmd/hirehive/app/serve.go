// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stacklok/hirehive/pkg/api"
	v1 "github.com/stacklok/hirehive/pkg/api/v1"
	"github.com/stacklok/hirehive/pkg/config"
	"github.com/stacklok/hirehive/pkg/logger"
	"github.com/stacklok/hirehive/pkg/networking"
	"github.com/stacklok/hirehive/pkg/platforms/connect"
	"github.com/stacklok/hirehive/pkg/platforms/credentials"
	"github.com/stacklok/hirehive/pkg/platforms/exchange"
	"github.com/stacklok/hirehive/pkg/platforms/identity"
	"github.com/stacklok/hirehive/pkg/platforms/state"
	"github.com/stacklok/hirehive/pkg/telemetry"
	"github.com/stacklok/hirehive/pkg/versions"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the hirehive API server",
		Long: `Starts the hirehive API server and listens for HTTP requests.
Expired authorization states are swept in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Ensure server is shutdown gracefully on Ctrl+C.
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().String("address", "127.0.0.1:8080", "Address to bind the server to")
	cmd.Flags().String("settings-path", connect.DefaultSettingsPath, "Path flows redirect back to")
	cmd.Flags().Bool("metrics", true, "Serve Prometheus metrics on /metrics")
	bindFlag(cmd, config.KeyAddress, "address")
	bindFlag(cmd, config.KeySettingsPath, "settings-path")
	bindFlag(cmd, config.KeyMetricsEnabled, "metrics")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	backends, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logger.Warnw("failed to close storage backends", "error", err)
		}
	}()

	metricsProvider, err := telemetry.NewProvider(telemetry.Config{
		MetricsEnabled:        cfg.Metrics.Enabled,
		IncludeRuntimeMetrics: true,
		ServiceVersion:        versions.GetVersionInfo().Version,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := metricsProvider.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warnw("failed to shut down metrics provider", "error", err)
		}
	}()

	httpClient, err := networking.NewHttpClientBuilder().
		WithCABundle(cfg.TokenClient.CABundle).
		WithPrivateIPs(cfg.TokenClient.AllowPrivateIPs).
		WithInsecureHTTP(cfg.TokenClient.AllowHTTP).
		Build()
	if err != nil {
		return fmt.Errorf("failed to create token client: %w", err)
	}

	creds := credentials.NewEnvResolver(nil)
	service := connect.NewService(cfg.BaseURL, connect.Dependencies{
		Credentials: creds,
		States:      backends.states,
		Connections: backends.connections,
		Exchange:    exchange.NewOAuth2Client(creds, httpClient),
		Metrics:     telemetry.NewOAuthMetrics(metricsProvider.MeterProvider()),
	}, connect.WithSettingsPath(cfg.SettingsPath))

	handler := api.NewRouter(api.RouterConfig{
		Service:        service,
		Identity:       identity.NewHeaderResolver(cfg.Identity.Header, cfg.Identity.DefaultUser),
		Backends:       []v1.Pinger{backends.states, backends.connections},
		MetricsHandler: metricsProvider.PrometheusHandler(),
		MeterProvider:  metricsProvider.MeterProvider(),
	})

	logger.Infow("serving platform connections",
		"base_url", cfg.BaseURL,
		"state_backend", cfg.State.Backend,
		"connections_backend", cfg.Connections.Backend,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, cfg.Address, handler)
	})
	g.Go(func() error {
		return state.RunCleanup(gctx, backends.states, cfg.State.CleanupInterval)
	})
	return g.Wait()
}
