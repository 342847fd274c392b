// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/stacklok/hirehive/pkg/logger"
)

const instrumentationName = "github.com/stacklok/hirehive/pkg/telemetry"

// Flow stages.
const (
	StageAuthorize  = "authorize"
	StageCallback   = "callback"
	StageRefresh    = "refresh"
	StageDisconnect = "disconnect"
)

// UnknownProvider labels requests for providers that are not registered.
const UnknownProvider = "unknown"

// Flow outcomes.
const (
	OutcomeRedirected   = "redirected"
	OutcomeSimulated    = "simulated"
	OutcomeConnected    = "connected"
	OutcomeRefreshed    = "refreshed"
	OutcomeDisconnected = "disconnected"
	OutcomeRejected     = "rejected"
	OutcomeFailed       = "failed"
)

// ExchangeDurationBuckets are the histogram boundaries for token endpoint calls, in seconds.
var ExchangeDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// OAuthMetrics records the outcome of connection flows.
type OAuthMetrics struct {
	outcomes         metric.Int64Counter
	exchangeDuration metric.Float64Histogram
}

// NewOAuthMetrics creates the flow instruments on meterProvider. A nil
// meterProvider records nothing.
func NewOAuthMetrics(meterProvider metric.MeterProvider) *OAuthMetrics {
	if meterProvider == nil {
		meterProvider = noop.NewMeterProvider()
	}
	meter := meterProvider.Meter(instrumentationName)

	fallback := noop.NewMeterProvider().Meter(instrumentationName)

	outcomes, err := meter.Int64Counter(
		"hirehive_oauth_outcomes", // The exporter adds the _total suffix automatically
		metric.WithDescription("Outcomes of platform connection flows"),
	)
	if err != nil {
		logger.Warnw("failed to create oauth outcome counter, outcomes will not be recorded", "error", err)
		outcomes, _ = fallback.Int64Counter("hirehive_oauth_outcomes")
	}

	exchangeDuration, err := meter.Float64Histogram(
		"hirehive_oauth_token_exchange_duration",
		metric.WithDescription("Duration of provider token endpoint calls"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(ExchangeDurationBuckets...),
	)
	if err != nil {
		logger.Warnw("failed to create token exchange histogram, durations will not be recorded", "error", err)
		exchangeDuration, _ = fallback.Float64Histogram("hirehive_oauth_token_exchange_duration")
	}

	return &OAuthMetrics{
		outcomes:         outcomes,
		exchangeDuration: exchangeDuration,
	}
}

// RecordOutcome counts one flow outcome.
func (m *OAuthMetrics) RecordOutcome(ctx context.Context, provider, stage, outcome string) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}

// RecordExchange records the duration of a token endpoint call.
func (m *OAuthMetrics) RecordExchange(ctx context.Context, provider, grant string, d time.Duration, err error) {
	m.exchangeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("grant_type", grant),
		attribute.Bool("success", err == nil),
	))
}
