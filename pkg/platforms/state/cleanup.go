// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"time"

	"github.com/stacklok/hirehive/pkg/logger"
)

// DefaultCleanupInterval is how often RunCleanup sweeps expired states.
const DefaultCleanupInterval = 5 * time.Minute

// RunCleanup sweeps expired states every interval until ctx is cancelled.
// Sweep failures are logged and retried on the next tick.
func RunCleanup(ctx context.Context, store Store, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := store.CleanupExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Warnw("failed to clean up expired oauth states", "error", err)
				continue
			}
			if n > 0 {
				logger.Debugw("removed expired oauth states", "count", n)
			}
		}
	}
}
