package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapUpstreamErrorByType(t *testing.T) {
	cases := []struct {
		name    string
		errType string
		status  int
		want    UpstreamKind
	}{
		{"auth", "authentication_error", 401, UpstreamAuth},
		{"permission", "permission_error", 403, UpstreamPermission},
		{"rate", "rate_limit_error", 429, UpstreamRateLimit},
		{"invalid", "invalid_request_error", 400, UpstreamInvalidRequest},
		{"invalid wins over 401", "invalid_request_error", 401, UpstreamInvalidRequest},
		{"missing resource", "invalid_request_error", 404, UpstreamNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapUpstreamError(&APIError{StatusCode: tc.status, Type: tc.errType, Message: "boom"})
			require.NotNil(t, mapped)
			require.Equal(t, tc.want, mapped.Kind)
			require.Equal(t, "boom", mapped.Message)
		})
	}
}

func TestMapUpstreamErrorByStatus(t *testing.T) {
	cases := []struct {
		status int
		want   UpstreamKind
	}{
		{401, UpstreamAuth},
		{403, UpstreamPermission},
		{429, UpstreamRateLimit},
		{404, UpstreamNotFound},
		{422, UpstreamInvalidRequest},
		{503, UpstreamUnavailable},
		{302, UpstreamUnknown},
	}

	for _, tc := range cases {
		mapped := MapUpstreamError(&APIError{StatusCode: tc.status})
		require.Equal(t, tc.want, mapped.Kind, "status %d", tc.status)
	}
}

func TestMapUpstreamErrorNonAPI(t *testing.T) {
	require.Nil(t, MapUpstreamError(nil))

	timeout := MapUpstreamError(fmt.Errorf("request failed: %w", context.DeadlineExceeded))
	require.Equal(t, UpstreamTimeout, timeout.Kind)

	plain := MapUpstreamError(errors.New("dial tcp: refused"))
	require.Equal(t, UpstreamUnknown, plain.Kind)

	missing := MapUpstreamError(ErrMissingAPIKey)
	require.ErrorIs(t, missing, ErrMissingAPIKey)

	again := MapUpstreamError(missing)
	require.Same(t, missing, again)
}
