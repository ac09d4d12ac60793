package controller_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"domainwatch/pkg/controller"

	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	okCheck := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	tests := []struct {
		name     string
		checks   map[string]controller.HealthCheck
		wantCode int
		want     map[string]any
	}{
		{
			name:     "no checks",
			wantCode: http.StatusOK,
			want:     map[string]any{"status": "ok"},
		},
		{
			name:     "all passing",
			checks:   map[string]controller.HealthCheck{"postgres": okCheck, "redis": okCheck},
			wantCode: http.StatusOK,
			want: map[string]any{
				"status": "ok",
				"checks": map[string]any{"postgres": "ok", "redis": "ok"},
			},
		},
		{
			name:     "one failing",
			checks:   map[string]controller.HealthCheck{"postgres": okCheck, "redis": failing},
			wantCode: http.StatusServiceUnavailable,
			want: map[string]any{
				"status": "degraded",
				"checks": map[string]any{"postgres": "ok", "redis": "failing"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			controller.Health(tt.checks, time.Second).
				ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			require.Equal(t, tt.wantCode, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var got map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			require.Equal(t, tt.want, got)
		})
	}
}
