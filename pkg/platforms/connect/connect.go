// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package connect implements the platform connection flows: the OAuth2
// authorization-code handshake, the simulated connection used when a
// provider has no client credentials, token refresh and disconnect.
//
// Authorize and Callback return the URL the browser is sent to next. Flow
// failures (unknown provider, denied consent, invalid state, exchange
// failure) are returned as *errors.Error values carrying a user-facing
// message, which the HTTP layer turns into an oauth_error redirect. Store
// faults are internal errors.
package connect

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stacklok/toolhive-core/httperr"

	herrors "github.com/stacklok/hirehive/pkg/errors"
	"github.com/stacklok/hirehive/pkg/logger"
	"github.com/stacklok/hirehive/pkg/platforms/connections"
	"github.com/stacklok/hirehive/pkg/platforms/credentials"
	"github.com/stacklok/hirehive/pkg/platforms/exchange"
	"github.com/stacklok/hirehive/pkg/platforms/providers"
	"github.com/stacklok/hirehive/pkg/platforms/state"
	"github.com/stacklok/hirehive/pkg/storage"
	"github.com/stacklok/hirehive/pkg/telemetry"
)

// DefaultSettingsPath is where the browser is sent when a flow ends.
const DefaultSettingsPath = "/settings"

const (
	simulatedTokenLength   = 12
	simulatedTokenAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// ErrNoRefreshToken is returned by Refresh when the connection has no refresh token.
var ErrNoRefreshToken = httperr.WithCode(errors.New("connection has no refresh token"), http.StatusConflict)

// CallbackParams are the query parameters of a provider callback.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// PlatformStatus is a registered provider merged with its connection, if any.
// Tokens are never included.
type PlatformStatus struct {
	ID              string     `json:"id"`
	PlatformName    string     `json:"platform_name"`
	Available       bool       `json:"available"`
	Configured      bool       `json:"configured"`
	Status          string     `json:"status,omitempty"`
	Type            string     `json:"type,omitempty"`
	MonthlyCost     float64    `json:"monthly_cost,omitempty"`
	ConnectedAt     *time.Time `json:"connected_at,omitempty"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	HasRefreshToken bool       `json:"has_refresh_token"`
}

// Dependencies are the collaborators of a Service.
type Dependencies struct {
	Credentials credentials.Resolver
	States      state.Store
	Connections connections.Store
	Exchange    exchange.Client
	Metrics     *telemetry.OAuthMetrics
}

// Service runs the connection flows.
type Service struct {
	creds        credentials.Resolver
	states       state.Store
	conns        connections.Store
	exchange     exchange.Client
	metrics      *telemetry.OAuthMetrics
	baseURL      string
	settingsPath string
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSettingsPath overrides the path flows redirect back to.
func WithSettingsPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.settingsPath = path
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. baseURL is the externally visible origin of
// the application, without a trailing slash.
func NewService(baseURL string, deps Dependencies, opts ...Option) *Service {
	s := &Service{
		creds:        deps.Credentials,
		states:       deps.States,
		conns:        deps.Connections,
		exchange:     deps.Exchange,
		metrics:      deps.Metrics,
		baseURL:      strings.TrimRight(baseURL, "/"),
		settingsPath: DefaultSettingsPath,
		now:          time.Now,
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewOAuthMetrics(nil)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CallbackURL is the redirect URI registered with providerID.
func (s *Service) CallbackURL(providerID string) string {
	return s.baseURL + "/api/platforms/" + providerID + "/callback"
}

// SuccessURL is the settings URL reporting a connected platform.
func (s *Service) SuccessURL(platformName string) string {
	return s.settingsURL("oauth_success", platformName)
}

// ErrorURL is the settings URL reporting a failed flow.
func (s *Service) ErrorURL(message string) string {
	return s.settingsURL("oauth_error", message)
}

func (s *Service) settingsURL(key, value string) string {
	q := url.Values{}
	q.Set(key, value)
	return s.baseURL + s.settingsPath + "?" + q.Encode()
}

// Authorize starts a connection flow for userID. It returns the provider
// consent URL, or the settings URL when the connection was simulated.
func (s *Service) Authorize(ctx context.Context, providerID, userID string) (string, error) {
	provider, err := lookupAvailable(providerID)
	if err != nil {
		s.metrics.RecordOutcome(ctx, providerLabel(providerID), telemetry.StageAuthorize, telemetry.OutcomeRejected)
		return "", err
	}

	creds, ok := s.creds.Resolve(provider)
	if !ok {
		return s.simulate(ctx, provider)
	}

	redirectURI := s.CallbackURL(provider.ID)
	value, err := s.states.Create(ctx, provider.ID, userID, redirectURI)
	if err != nil {
		s.metrics.RecordOutcome(ctx, provider.ID, telemetry.StageAuthorize, telemetry.OutcomeFailed)
		return "", herrors.NewInternalError("failed to create authorization state", err)
	}

	logger.Debugw("redirecting to provider consent",
		"provider", provider.ID,
		"user_id", userID,
		"state", logger.Redact(value),
	)
	s.metrics.RecordOutcome(ctx, provider.ID, telemetry.StageAuthorize, telemetry.OutcomeRedirected)
	return exchange.AuthCodeURL(provider, creds, redirectURI, value), nil
}

func (s *Service) simulate(ctx context.Context, provider providers.Config) (string, error) {
	token, err := simulatedToken(provider.SimulatedTokenPrefix)
	if err != nil {
		return "", herrors.NewInternalError("failed to generate simulated token", err)
	}

	_, err = s.conns.Upsert(ctx, connections.Upsert{
		PlatformName:  provider.PlatformName,
		OAuthProvider: provider.ID,
		APIKey:        token,
		TokenScopes:   strings.Join(provider.Scopes, " "),
		MonthlyCost:   provider.MonthlyCost,
		ConnectedAt:   s.now().UTC(),
		Simulated:     true,
	})
	if err != nil {
		s.metrics.RecordOutcome(ctx, provider.ID, telemetry.StageAuthorize, telemetry.OutcomeFailed)
		return "", herrors.NewInternalError("failed to store simulated connection", err)
	}

	logger.Infow("connected platform without credentials",
		"provider", provider.ID,
		"platform", provider.PlatformName,
	)
	s.metrics.RecordOutcome(ctx, provider.ID, telemetry.StageAuthorize, telemetry.OutcomeSimulated)
	return s.SuccessURL(provider.PlatformName), nil
}

// Callback completes a connection flow. It returns the settings URL
// reporting the connected platform.
func (s *Service) Callback(ctx context.Context, providerID string, params CallbackParams) (string, error) {
	location, err := s.callback(ctx, providerID, params)
	label := providerLabel(providerID)
	switch {
	case err == nil:
		s.metrics.RecordOutcome(ctx, label, telemetry.StageCallback, telemetry.OutcomeConnected)
	case herrors.IsInternal(err):
		s.metrics.RecordOutcome(ctx, label, telemetry.StageCallback, telemetry.OutcomeFailed)
	default:
		logger.Infow("platform connection rejected", "provider", label, "error", err)
		s.metrics.RecordOutcome(ctx, label, telemetry.StageCallback, telemetry.OutcomeRejected)
	}
	return location, err
}

func (s *Service) callback(ctx context.Context, providerID string, params CallbackParams) (string, error) {
	if params.Error != "" {
		message := params.ErrorDescription
		if message == "" {
			message = params.Error
		}
		return "", herrors.NewUserFlowError(message, nil)
	}

	if params.Code == "" || params.State == "" {
		return "", herrors.NewUserFlowError("Missing authorization code or state", nil)
	}

	bound, err := s.states.ValidateAndConsume(ctx, params.State)
	if err != nil {
		if errors.Is(err, state.ErrInvalidState) {
			return "", herrors.NewSecurityError("Invalid or expired state", err)
		}
		return "", herrors.NewInternalError("failed to validate authorization state", err)
	}

	if bound.Provider != providerID {
		logger.Warnw("authorization state bound to another provider",
			"provider", providerID,
			"state_provider", bound.Provider,
			"user_id", bound.UserID,
		)
		return "", herrors.NewSecurityError("Provider mismatch", nil)
	}

	provider, ok := providers.Lookup(providerID)
	if !ok {
		return "", herrors.NewConfigurationError(unknownProviderMessage(providerID), nil)
	}

	started := s.now()
	tokens, err := s.exchange.ExchangeCode(ctx, provider, params.Code, bound.RedirectURI)
	s.metrics.RecordExchange(ctx, provider.ID, "authorization_code", s.now().Sub(started), err)
	if err != nil {
		return "", herrors.NewUpstreamError("Failed to exchange authorization code for tokens", err)
	}

	now := s.now().UTC()
	scopes := tokens.Scope
	if scopes == "" {
		scopes = strings.Join(provider.Scopes, " ")
	}

	var refreshToken *string
	if tokens.RefreshToken != "" {
		refreshToken = &tokens.RefreshToken
	}

	_, err = s.conns.Upsert(ctx, connections.Upsert{
		PlatformName:   provider.PlatformName,
		OAuthProvider:  provider.ID,
		APIKey:         tokens.AccessToken,
		RefreshToken:   refreshToken,
		TokenExpiresAt: tokens.ExpiresAt(now),
		TokenScopes:    scopes,
		MonthlyCost:    provider.MonthlyCost,
		ConnectedAt:    now,
	})
	if err != nil {
		return "", herrors.NewInternalError("failed to store platform connection", err)
	}

	logger.Infow("connected platform",
		"provider", provider.ID,
		"platform", provider.PlatformName,
		"user_id", bound.UserID,
	)
	return s.SuccessURL(provider.PlatformName), nil
}

// List returns every registered provider with its connection status.
func (s *Service) List(ctx context.Context) ([]PlatformStatus, error) {
	conns, err := s.conns.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list platform connections: %w", err)
	}
	byName := make(map[string]connections.PlatformConnection, len(conns))
	for _, c := range conns {
		byName[c.PlatformName] = c
	}

	all := providers.All()
	statuses := make([]PlatformStatus, 0, len(all))
	for _, p := range all {
		_, configured := s.creds.Resolve(p)
		st := PlatformStatus{
			ID:           p.ID,
			PlatformName: p.PlatformName,
			Available:    p.Available,
			Configured:   configured,
		}
		if c, ok := byName[p.PlatformName]; ok {
			st.applyConnection(&c)
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

func (st *PlatformStatus) applyConnection(c *connections.PlatformConnection) {
	st.Status = string(c.Status)
	st.Type = string(c.Type)
	st.MonthlyCost = c.MonthlyCost
	st.ConnectedAt = c.ConnectedAt
	st.TokenExpiresAt = c.TokenExpiresAt
	st.HasRefreshToken = c.RefreshToken != nil && *c.RefreshToken != ""
}

// Refresh redeems the stored refresh token of providerID's connection.
func (s *Service) Refresh(ctx context.Context, providerID string) (*PlatformStatus, error) {
	provider, ok := providers.Lookup(providerID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", unknownProviderMessage(providerID), storage.ErrNotFound)
	}

	conn, err := s.conns.Get(ctx, provider.PlatformName)
	if err != nil {
		return nil, fmt.Errorf("failed to load connection for %s: %w", provider.PlatformName, err)
	}
	if conn.RefreshToken == nil || *conn.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	started := s.now()
	tokens, err := s.exchange.RefreshToken(ctx, provider, *conn.RefreshToken)
	s.metrics.RecordExchange(ctx, provider.ID, "refresh_token", s.now().Sub(started), err)
	if err != nil {
		s.metrics.RecordOutcome(ctx, provider.ID, telemetry.StageRefresh, telemetry.OutcomeFailed)
		if errors.Is(err, exchange.ErrNoCredentials) {
			return nil, herrors.NewConfigurationError(
				fmt.Sprintf("OAuth credentials are not configured for %s", provider.PlatformName), err)
		}
		return nil, herrors.NewUpstreamError("Failed to refresh access token", err)
	}

	update := connections.TokenUpdate{
		APIKey:         tokens.AccessToken,
		TokenExpiresAt: tokens.ExpiresAt(s.now()),
		TokenScopes:    tokens.Scope,
	}
	if tokens.RefreshToken != "" {
		update.RefreshToken = &tokens.RefreshToken
	}

	updated, err := s.conns.UpdateTokens(ctx, provider.PlatformName, update)
	if err != nil {
		return nil, fmt.Errorf("failed to store refreshed tokens for %s: %w", provider.PlatformName, err)
	}

	s.metrics.RecordOutcome(ctx, provider.ID, telemetry.StageRefresh, telemetry.OutcomeRefreshed)
	logger.Infow("refreshed platform tokens", "provider", provider.ID)

	_, configured := s.creds.Resolve(provider)
	st := &PlatformStatus{
		ID:           provider.ID,
		PlatformName: provider.PlatformName,
		Available:    provider.Available,
		Configured:   configured,
	}
	st.applyConnection(updated)
	return st, nil
}

// Disconnect marks providerID's connection inactive and drops its tokens.
func (s *Service) Disconnect(ctx context.Context, providerID string) error {
	provider, ok := providers.Lookup(providerID)
	if !ok {
		return fmt.Errorf("%s: %w", unknownProviderMessage(providerID), storage.ErrNotFound)
	}

	if err := s.conns.Disconnect(ctx, provider.PlatformName); err != nil {
		return fmt.Errorf("failed to disconnect %s: %w", provider.PlatformName, err)
	}

	s.metrics.RecordOutcome(ctx, provider.ID, telemetry.StageDisconnect, telemetry.OutcomeDisconnected)
	logger.Infow("disconnected platform", "provider", provider.ID)
	return nil
}

// IsFlowError reports whether err ends a flow with an oauth_error redirect
// rather than an HTTP error response.
func IsFlowError(err error) bool {
	var e *herrors.Error
	return errors.As(err, &e) && e.Type != herrors.ErrInternal
}

func lookupAvailable(providerID string) (providers.Config, error) {
	provider, ok := providers.Lookup(providerID)
	if !ok {
		return providers.Config{}, herrors.NewConfigurationError(unknownProviderMessage(providerID), nil)
	}
	if !provider.Available {
		return providers.Config{}, herrors.NewConfigurationError(
			fmt.Sprintf("OAuth is not yet available for %s", provider.PlatformName), nil)
	}
	return provider, nil
}

func unknownProviderMessage(providerID string) string {
	return fmt.Sprintf("Unknown platform provider: %s", providerID)
}

// providerLabel is the metric label for a requested provider. IDs outside
// the registry all map to telemetry.UnknownProvider.
func providerLabel(providerID string) string {
	if _, ok := providers.Lookup(providerID); ok {
		return providerID
	}
	return telemetry.UnknownProvider
}

func simulatedToken(prefix string) (string, error) {
	limit := big.NewInt(int64(len(simulatedTokenAlphabet)))
	suffix := make([]byte, simulatedTokenLength)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		suffix[i] = simulatedTokenAlphabet[n.Int64()]
	}
	return prefix + string(suffix), nil
}
