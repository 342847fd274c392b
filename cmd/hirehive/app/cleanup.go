// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stacklok/hirehive/pkg/config"
	"github.com/stacklok/hirehive/pkg/logger"
)

// errMemoryCleanup is returned when cleanup targets the in-process memory backend.
var errMemoryCleanup = errors.New(
	"the memory state backend lives inside the server process and cannot be swept from another process; " +
		"use --state-backend sqlite or redis")

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete expired authorization states",
		Long: `Deletes expired authorization states from the configured state store once
and exits. The server sweeps periodically on its own; this command is meant
for cron jobs against a shared store (sqlite or redis).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runCleanup(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}
}

func runCleanup(ctx context.Context, cfg *config.Config, w io.Writer) error {
	if cfg.State.Backend == config.BackendMemory {
		return errMemoryCleanup
	}

	backends, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logger.Warnw("failed to close storage backends", "error", err)
		}
	}()

	n, err := backends.states.CleanupExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to clean up expired states: %w", err)
	}
	fmt.Fprintf(w, "Removed %d expired authorization state(s)\n", n)
	return nil
}
