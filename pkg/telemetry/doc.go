// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package telemetry provides OpenTelemetry metrics for the platform
// connection flows and the Prometheus /metrics endpoint that exposes them.
package telemetry
