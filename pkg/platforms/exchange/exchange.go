// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package exchange talks to provider token endpoints: it turns authorization
// codes and refresh tokens into access tokens.
//
// Token endpoint failures are routine (expired codes, revoked consent,
// provider outages). They are reported as ErrExchangeFailed so the caller can
// send the user back with a readable message. Nothing is retried.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/stacklok/hirehive/pkg/logger"
	"github.com/stacklok/hirehive/pkg/networking"
	"github.com/stacklok/hirehive/pkg/platforms/credentials"
	"github.com/stacklok/hirehive/pkg/platforms/providers"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=exchange.go Client

var (
	// ErrNoCredentials is returned when the provider has no client credentials configured.
	ErrNoCredentials = errors.New("no client credentials configured")

	// ErrExchangeFailed is returned when the token endpoint did not issue a token.
	ErrExchangeFailed = errors.New("token exchange failed")
)

// Default outbound limits, shared by all providers.
const (
	defaultRateLimit = rate.Limit(20)
	defaultBurst     = 40
)

// TokenResult is a successful token endpoint response.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the token lifetime in seconds, 0 when the provider did not say.
	ExpiresIn int64
	// Scope is the space-separated granted scope, empty when the provider did not say.
	Scope string
}

// ExpiresAt returns the absolute expiry relative to now, or nil when unknown.
func (r *TokenResult) ExpiresAt(now time.Time) *time.Time {
	if r.ExpiresIn <= 0 {
		return nil
	}
	t := now.Add(time.Duration(r.ExpiresIn) * time.Second).UTC()
	return &t
}

// Client exchanges codes and refresh tokens at a provider token endpoint.
type Client interface {
	// ExchangeCode redeems an authorization code. redirectURI must be the
	// URI the authorization request was made with.
	ExchangeCode(ctx context.Context, provider providers.Config, code, redirectURI string) (*TokenResult, error)
	// RefreshToken redeems a refresh token.
	RefreshToken(ctx context.Context, provider providers.Config, refreshToken string) (*TokenResult, error)
}

// OAuth2Client implements Client with golang.org/x/oauth2.
type OAuth2Client struct {
	creds      credentials.Resolver
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
}

var _ Client = (*OAuth2Client)(nil)

// Option configures an OAuth2Client.
type Option func(*OAuth2Client)

// WithRateLimit overrides the outbound request rate limit.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *OAuth2Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithClock overrides the time source used to derive ExpiresIn.
func WithClock(now func() time.Time) Option {
	return func(c *OAuth2Client) {
		c.now = now
	}
}

// NewOAuth2Client creates a client. Credentials are resolved on every call so
// a provider whose credentials were removed fails closed.
func NewOAuth2Client(creds credentials.Resolver, httpClient *http.Client, opts ...Option) *OAuth2Client {
	c := &OAuth2Client{
		creds:      creds,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(defaultRateLimit, defaultBurst),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ExchangeCode implements Client.
func (c *OAuth2Client) ExchangeCode(
	ctx context.Context, provider providers.Config, code, redirectURI string,
) (*TokenResult, error) {
	cfg, err := c.config(provider, redirectURI)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	token, err := cfg.Exchange(c.clientContext(ctx), code)
	if err != nil {
		return nil, c.failure(provider, "authorization_code", err)
	}
	return c.result(token), nil
}

// RefreshToken implements Client.
func (c *OAuth2Client) RefreshToken(
	ctx context.Context, provider providers.Config, refreshToken string,
) (*TokenResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", ErrExchangeFailed)
	}
	cfg, err := c.config(provider, "")
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}

	token, err := cfg.TokenSource(c.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, c.failure(provider, "refresh_token", err)
	}
	return c.result(token), nil
}

func (c *OAuth2Client) config(provider providers.Config, redirectURI string) (*oauth2.Config, error) {
	creds, ok := c.creds.Resolve(provider)
	if !ok {
		return nil, fmt.Errorf("%w for provider %s", ErrNoCredentials, provider.ID)
	}
	return Config(provider, creds, redirectURI), nil
}

func (c *OAuth2Client) clientContext(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *OAuth2Client) failure(provider providers.Config, grant string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		httpErr := networking.NewHTTPErrorFromBody(retrieveErr.Response.StatusCode, provider.TokenURL, retrieveErr.Body)
		logger.Warnw("provider token endpoint rejected request",
			"provider", provider.ID,
			"grant_type", grant,
			"status", retrieveErr.Response.StatusCode,
			"error_code", retrieveErr.ErrorCode,
		)
		return fmt.Errorf("%w: %w", ErrExchangeFailed, httpErr)
	}

	logger.Warnw("provider token request failed",
		"provider", provider.ID,
		"grant_type", grant,
		"error", err,
	)
	return fmt.Errorf("%w: %w", ErrExchangeFailed, err)
}

func (c *OAuth2Client) result(token *oauth2.Token) *TokenResult {
	res := &TokenResult{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	}
	if res.ExpiresIn <= 0 && !token.Expiry.IsZero() {
		res.ExpiresIn = int64(math.Round(token.Expiry.Sub(c.now()).Seconds()))
		if res.ExpiresIn < 0 {
			res.ExpiresIn = 0
		}
	}
	if scope, ok := token.Extra("scope").(string); ok {
		res.Scope = scope
	}
	return res
}

// Config builds the oauth2 configuration for provider. Client credentials are
// sent in the request body, which every supported provider accepts.
func Config(provider providers.Config, creds credentials.Credentials, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       provider.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   provider.AuthorizationURL,
			TokenURL:  provider.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL returns the provider consent URL carrying response_type=code,
// client_id, redirect_uri, state and the space-joined scopes.
func AuthCodeURL(provider providers.Config, creds credentials.Credentials, redirectURI, state string) string {
	return Config(provider, creds, redirectURI).AuthCodeURL(state)
}
