// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package networking builds the outbound HTTP clients used to talk to
// provider token endpoints.
package networking

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TokenRequestTimeout bounds a single call to a provider token endpoint.
const TokenRequestTimeout = 10 * time.Second

// ErrPrivateAddress is returned when a dial targets a private or loopback address.
var ErrPrivateAddress = fmt.Errorf("address references a private IP")

// AddressReferencesPrivateIp returns ErrPrivateAddress when the host part of
// address is a loopback, private, link-local or unspecified IP.
func AddressReferencesPrivateIp(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return fmt.Errorf("%w: %s", ErrPrivateAddress, host)
	}
	return nil
}

// Dialer control function for validating addresses prior to connection
func protectedDialerControl(_, address string, _ syscall.RawConn) error {
	return AddressReferencesPrivateIp(address)
}

// ValidatingTransport rejects requests whose scheme is not HTTPS, unless
// AllowHTTP is set.
type ValidatingTransport struct {
	Transport http.RoundTripper
	AllowHTTP bool
}

// RoundTrip validates the request URL prior to forwarding
func (t *ValidatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	switch req.URL.Scheme {
	case "https":
	case "http":
		if !t.AllowHTTP {
			return nil, fmt.Errorf("the supplied URL %s is not HTTPS scheme", req.URL.Redacted())
		}
	default:
		return nil, fmt.Errorf("the supplied URL %s is not HTTPS scheme", req.URL.Redacted())
	}

	return t.Transport.RoundTrip(req)
}

// HttpClientBuilder provides a fluent interface for building HTTP clients
type HttpClientBuilder struct {
	clientTimeout         time.Duration
	tlsHandshakeTimeout   time.Duration
	responseHeaderTimeout time.Duration
	caCertPath            string
	allowPrivate          bool
	allowHTTP             bool
}

// NewHttpClientBuilder returns a new HttpClientBuilder
func NewHttpClientBuilder() *HttpClientBuilder {
	return &HttpClientBuilder{
		clientTimeout:         TokenRequestTimeout,
		tlsHandshakeTimeout:   5 * time.Second,
		responseHeaderTimeout: TokenRequestTimeout,
	}
}

// WithTimeout sets the overall client timeout
func (b *HttpClientBuilder) WithTimeout(timeout time.Duration) *HttpClientBuilder {
	b.clientTimeout = timeout
	return b
}

// WithCABundle sets the CA certificate bundle path
func (b *HttpClientBuilder) WithCABundle(path string) *HttpClientBuilder {
	b.caCertPath = path
	return b
}

// WithPrivateIPs allows connections to private IP addresses
func (b *HttpClientBuilder) WithPrivateIPs(allow bool) *HttpClientBuilder {
	b.allowPrivate = allow
	return b
}

// WithInsecureHTTP allows plain HTTP URLs. Only meant for local provider fakes.
func (b *HttpClientBuilder) WithInsecureHTTP(allow bool) *HttpClientBuilder {
	b.allowHTTP = allow
	return b
}

// Build creates the configured HTTP client
func (b *HttpClientBuilder) Build() (*http.Client, error) {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   b.tlsHandshakeTimeout,
		ResponseHeaderTimeout: b.responseHeaderTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	if !b.allowPrivate {
		transport.DialContext = (&net.Dialer{
			Control: protectedDialerControl,
		}).DialContext
	}

	if b.caCertPath != "" {
		caCert, err := os.ReadFile(b.caCertPath) // #nosec G304 - path is provided by the operator via config
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate bundle: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate bundle")
		}
		transport.TLSClientConfig.RootCAs = caCertPool
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(&ValidatingTransport{
			Transport: transport,
			AllowHTTP: b.allowHTTP,
		}),
		Timeout: b.clientTimeout,
	}, nil
}
