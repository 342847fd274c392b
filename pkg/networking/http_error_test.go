// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package networking

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPError(t *testing.T) {
	t.Parallel()

	err := NewHTTPError(400, "https://example.com/token", "invalid_grant")

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, 400, httpErr.StatusCode)
	assert.Equal(t, "https://example.com/token", httpErr.URL)
	assert.Equal(t, "invalid_grant", httpErr.Message)
	assert.Equal(t, "HTTP 400 for URL https://example.com/token: invalid_grant", err.Error())
}

func TestNewHTTPErrorFromBody(t *testing.T) {
	t.Parallel()

	err := NewHTTPErrorFromBody(401, "https://example.com/token", []byte("  {\"error\":\"invalid_client\"}\n"))

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, `{"error":"invalid_client"}`, httpErr.Message)
}

func TestBodyPreview(t *testing.T) {
	t.Parallel()

	short := "short body"
	assert.Equal(t, short, BodyPreview([]byte(short)))

	long := strings.Repeat("a", maxBodyPreview+50)
	got := BodyPreview([]byte(long))
	assert.Equal(t, strings.Repeat("a", maxBodyPreview)+"...", got)

	// a multi-byte rune straddling the cut point is dropped whole
	multi := strings.Repeat("a", maxBodyPreview-1) + "é" + "tail"
	got = BodyPreview([]byte(multi))
	assert.Equal(t, strings.Repeat("a", maxBodyPreview-1)+"...", got)
}

func TestIsHTTPError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   bool
	}{
		{
			name:       "matching HTTPError",
			err:        &HTTPError{StatusCode: 400, URL: "https://example.com"},
			statusCode: 400,
			expected:   true,
		},
		{
			name:       "non-matching status code",
			err:        &HTTPError{StatusCode: 400, URL: "https://example.com"},
			statusCode: 500,
			expected:   false,
		},
		{
			name:       "any HTTPError with statusCode 0",
			err:        &HTTPError{StatusCode: 403, URL: "https://example.com"},
			statusCode: 0,
			expected:   true,
		},
		{
			name:       "wrapped HTTPError",
			err:        fmt.Errorf("exchange: %w", &HTTPError{StatusCode: 502}),
			statusCode: 502,
			expected:   true,
		},
		{
			name:       "non-HTTPError",
			err:        errors.New("some other error"),
			statusCode: 0,
			expected:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsHTTPError(tt.err, tt.statusCode))
		})
	}
}
